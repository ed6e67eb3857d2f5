package categorize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

// RulesFile is the on-disk shape of extra keywords:
//
//	keywords:
//	  food: [dominos, blinkit]
//	  transport: [rapido]
type RulesFile struct {
	Keywords map[string][]string `yaml:"keywords"`
}

// LoadRules reads extra keywords from path and appends them to the matching
// default rules. Rule order is never changed.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules merges YAML rules into DefaultRules.
func ParseRules(data []byte) ([]Rule, error) {
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	rules := DefaultRules()
	index := make(map[core.Category]int, len(rules))
	for i, r := range rules {
		index[r.Category] = i
	}

	for name, kws := range file.Keywords {
		cat, err := core.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("rules file: %w", err)
		}
		if cat == core.Others {
			return nil, fmt.Errorf("rules file: %q is the fallback category and takes no keywords", name)
		}
		i := index[cat]
		rules[i].Keywords = append(rules[i].Keywords, kws...)
	}
	return rules, nil
}
