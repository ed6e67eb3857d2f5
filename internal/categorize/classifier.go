// Package categorize maps free-text transaction descriptions to a category
// with ordered keyword rules.
package categorize

import (
	"strings"

	"fintrack/internal/core"
)

// Rule lists the keywords that select a category.
type Rule struct {
	Category core.Category
	Keywords []string
}

// Classifier checks rules in order; the first rule with a keyword contained
// in the description wins.
type Classifier struct {
	rules []Rule
}

// DefaultRules returns the built-in rule list. Order matters: descriptions
// like "uber eats food" must resolve to transport.
func DefaultRules() []Rule {
	return []Rule{
		{Category: core.Transport, Keywords: []string{"uber", "ola", "bus", "train", "cab", "metro", "fuel"}},
		{Category: core.Food, Keywords: []string{"zomato", "swiggy", "restaurant", "cafe", "food", "pizza", "burger"}},
		{Category: core.Rent, Keywords: []string{"rent", "landlord", "room"}},
		{Category: core.Subscriptions, Keywords: []string{"netflix", "spotify", "prime", "subscription", "subscr"}},
		{Category: core.Shopping, Keywords: []string{"amazon", "flipkart", "myntra", "shopping", "store"}},
	}
}

// New builds a classifier over rules. Keywords are lower-cased and blanks dropped.
func New(rules []Rule) *Classifier {
	c := &Classifier{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		c.rules = append(c.rules, Rule{Category: r.Category, Keywords: kws})
	}
	return c
}

// NewDefault returns a classifier with DefaultRules.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Classify never fails; unmatched descriptions are others.
func (c *Classifier) Classify(description string) core.Category {
	text := strings.ToLower(description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Category
			}
		}
	}
	return core.Others
}

// Resolve keeps a valid explicit category and classifies otherwise.
func (c *Classifier) Resolve(explicit, description string) core.Category {
	if strings.TrimSpace(explicit) != "" {
		if cat, err := core.ParseCategory(explicit); err == nil {
			return cat
		}
	}
	return c.Classify(description)
}

// Rules returns a copy of the configured rules.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}
