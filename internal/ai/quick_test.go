package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/core"
	"fintrack/internal/format"
)

func TestQuickAnalysis(t *testing.T) {
	cur := format.NewCurrency("en-US", "$")
	txns := []core.Transaction{
		{Amount: core.Units(100), Category: core.Food},
		{Amount: core.Units(300), Category: core.Rent},
		{Amount: core.Units(-50), Category: core.Others},
		{Amount: core.Units(150), Category: core.Food},
		{Amount: core.Units(20), Category: core.Transport},
	}

	got := QuickAnalysis(txns, cur)

	assert.Equal(t, []core.Category{core.Rent, core.Food, core.Others}, got.TopCategories)
	assert.Equal(t, "You spent approximately $620 in the selected range. Top categories: rent, food, others.", got.SummaryText)
	assert.Equal(t, "Consider trimming rent, food and review subscriptions.", got.CutSuggestions)
	assert.Equal(t, core.Units(93), got.SavingGoal)
}

func TestQuickAnalysisEmpty(t *testing.T) {
	got := QuickAnalysis(nil, format.NewCurrency("en-US", "$"))

	assert.Empty(t, got.TopCategories)
	assert.Equal(t, "You spent approximately $0 in the selected range. Top categories: none.", got.SummaryText)
	assert.Equal(t, "No clear suggestions.", got.CutSuggestions)
	assert.True(t, got.SavingGoal.IsZero())
}
