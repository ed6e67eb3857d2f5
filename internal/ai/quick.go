package ai

import (
	"fmt"
	"sort"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/format"
)

// QuickAnalysis is the local stand-in for Analyze. It ranks categories by
// absolute amount and proposes saving 15% of the total.
func QuickAnalysis(txns []core.Transaction, cur format.Currency) core.Analysis {
	var total core.Money
	byCat := make(map[core.Category]core.Money)
	var order []core.Category
	for _, t := range txns {
		amt := t.Amount.Abs()
		total = total.Add(amt)
		if _, seen := byCat[t.Category]; !seen {
			order = append(order, t.Category)
		}
		byCat[t.Category] = byCat[t.Category].Add(amt)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byCat[order[i]].Cents > byCat[order[j]].Cents
	})
	if len(order) > 3 {
		order = order[:3]
	}

	names := make([]string, len(order))
	for i, c := range order {
		names[i] = string(c)
	}
	listed := "none"
	if len(names) > 0 {
		listed = strings.Join(names, ", ")
	}

	suggestions := "No clear suggestions."
	if len(names) > 0 {
		n := min(len(names), 2)
		suggestions = fmt.Sprintf("Consider trimming %s and review subscriptions.", strings.Join(names[:n], ", "))
	}

	return core.Analysis{
		SummaryText:    fmt.Sprintf("You spent approximately %s in the selected range. Top categories: %s.", cur.Whole(total), listed),
		TopCategories:  order,
		CutSuggestions: suggestions,
		SavingGoal:     total.Percent(15),
	}
}
