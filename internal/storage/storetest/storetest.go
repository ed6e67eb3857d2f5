// Package storetest holds a behaviour suite every storage.Store must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Run exercises a fresh store from open in every subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("transactions", func(t *testing.T) { testTransactions(t, open(t)) })
	t.Run("duplicates", func(t *testing.T) { testDuplicates(t, open(t)) })
	t.Run("budgets", func(t *testing.T) { testBudgets(t, open(t)) })
	t.Run("summaries", func(t *testing.T) { testSummaries(t, open(t)) })
}

func newTxn(owner string, date core.Date, desc string, cents int64, cat core.Category) core.Transaction {
	return core.Transaction{
		ID:          uuid.New().String(),
		Owner:       owner,
		Date:        date,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Category:    cat,
		CreatedAt:   time.Now().UTC(),
	}
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	seed := []core.Transaction{
		newTxn("alice", core.NewDate(2024, 3, 1), "Zomato", 50000, core.Food),
		newTxn("alice", core.NewDate(2024, 3, 20), "Uber", 20000, core.Transport),
		newTxn("alice", core.NewDate(2024, 3, 15), "Swiggy", 150000, core.Food),
		newTxn("alice", core.NewDate(2024, 4, 1), "Rent April", 2000000, core.Rent),
		newTxn("bob", core.NewDate(2024, 3, 10), "Netflix", 64900, core.Subscriptions),
	}
	for _, tx := range seed {
		require.NoError(t, s.CreateTransaction(ctx, tx))
	}

	from, to := core.MonthRange(2024, 3)
	got, err := s.ListTransactions(ctx, "alice", storage.TransactionFilter{From: from, To: to})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Uber", got[0].Description, "newest first")
	assert.Equal(t, "Swiggy", got[1].Description)
	assert.Equal(t, "Zomato", got[2].Description)
	assert.Equal(t, core.NewDate(2024, 3, 20).String(), got[0].Date.String())
	assert.Equal(t, core.Money{Cents: 20000}, got[0].Amount)
	assert.Equal(t, core.Transport, got[0].Category)
	assert.Equal(t, seed[1].ID, got[0].ID)

	food, err := s.ListTransactions(ctx, "alice", storage.TransactionFilter{Category: core.Food})
	require.NoError(t, err)
	assert.Len(t, food, 2)

	limited, err := s.ListTransactions(ctx, "alice", storage.TransactionFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "Rent April", limited[0].Description)

	none, err := s.ListTransactions(ctx, "carol", storage.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDuplicates(t *testing.T, s storage.Store) {
	ctx := context.Background()
	original := newTxn("alice", core.NewDate(2024, 3, 1), "Zomato order", 50000, core.Food)
	require.NoError(t, s.CreateTransaction(ctx, original))

	key := storage.DuplicateKey{Date: core.NewDate(2024, 3, 1), Description: "  Zomato order ", Amount: core.Money{Cents: 50000}}
	found, err := s.FindDuplicate(ctx, "alice", key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, original.ID, found.ID)

	misses := map[string]storage.DuplicateKey{
		"other day":    {Date: core.NewDate(2024, 3, 2), Description: "Zomato order", Amount: core.Money{Cents: 50000}},
		"other amount": {Date: core.NewDate(2024, 3, 1), Description: "Zomato order", Amount: core.Money{Cents: 50001}},
		"other text":   {Date: core.NewDate(2024, 3, 1), Description: "zomato order", Amount: core.Money{Cents: 50000}},
	}
	for name, k := range misses {
		found, err := s.FindDuplicate(ctx, "alice", k)
		require.NoError(t, err, name)
		assert.Nil(t, found, name)
	}

	found, err = s.FindDuplicate(ctx, "bob", key)
	require.NoError(t, err)
	assert.Nil(t, found, "owners are isolated")
}

func testBudgets(t *testing.T, s storage.Store) {
	ctx := context.Background()

	b, err := s.GetBudget(ctx, "alice", 3, 2024)
	require.NoError(t, err)
	assert.Nil(t, b)

	total := core.Units(2000)
	require.NoError(t, s.UpsertBudget(ctx, core.Budget{
		Owner: "alice", Month: 3, Year: 2024, Total: &total,
		PerCategory: core.CategoryLimits{core.Food: core.Units(1800), core.Rent: core.Units(500)},
		UpdatedAt:   time.Now().UTC(),
	}))

	b, err = s.GetBudget(ctx, "alice", 3, 2024)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NotNil(t, b.Total)
	assert.Equal(t, core.Units(2000), *b.Total)
	assert.Equal(t, core.CategoryLimits{core.Food: core.Units(1800), core.Rent: core.Units(500)}, b.PerCategory)

	// Later saves overwrite the whole record.
	require.NoError(t, s.UpsertBudget(ctx, core.Budget{
		Owner: "alice", Month: 3, Year: 2024,
		PerCategory: core.CategoryLimits{core.Transport: core.Units(300)},
		UpdatedAt:   time.Now().UTC(),
	}))
	b, err = s.GetBudget(ctx, "alice", 3, 2024)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Nil(t, b.Total)
	assert.Equal(t, core.CategoryLimits{core.Transport: core.Units(300)}, b.PerCategory)

	other, err := s.GetBudget(ctx, "alice", 4, 2024)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func testSummaries(t *testing.T, s storage.Store) {
	ctx := context.Background()

	sum, err := s.GetSummary(ctx, "alice", 3, 2024)
	require.NoError(t, err)
	assert.Nil(t, sum)

	require.NoError(t, s.SetSavingGoal(ctx, "alice", 3, 2024, core.Units(8000)))
	sum, err = s.GetSummary(ctx, "alice", 3, 2024)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, core.Units(8000), sum.SavingGoal)
	assert.True(t, sum.GoalSetByUser)
	assert.Empty(t, sum.SummaryText)
	assert.Empty(t, sum.TopCategories)

	require.NoError(t, s.UpsertSummary(ctx, core.MonthlySummary{
		Owner: "alice", Month: 3, Year: 2024,
		SummaryText:    "text",
		TopCategories:  []core.Category{core.Food, core.Transport},
		CutSuggestions: "cut",
		SavingGoal:     core.Units(8000),
		GoalSetByUser:  true,
		Source:         "fallback",
		UpdatedAt:      time.Now().UTC(),
	}))

	// Goal updates leave the narrative untouched.
	require.NoError(t, s.SetSavingGoal(ctx, "alice", 3, 2024, core.Units(9000)))
	sum, err = s.GetSummary(ctx, "alice", 3, 2024)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, "text", sum.SummaryText)
	assert.Equal(t, "cut", sum.CutSuggestions)
	assert.Equal(t, []core.Category{core.Food, core.Transport}, sum.TopCategories)
	assert.Equal(t, "fallback", sum.Source)
	assert.Equal(t, core.Units(9000), sum.SavingGoal)
	assert.True(t, sum.GoalSetByUser)

	// A regeneration that read the month before the goal was set keeps the goal.
	require.NoError(t, s.UpsertSummary(ctx, core.MonthlySummary{
		Owner: "alice", Month: 3, Year: 2024,
		SummaryText:   "regenerated",
		TopCategories: []core.Category{core.Rent},
		SavingGoal:    core.Units(150),
		Source:        "ai",
		UpdatedAt:     time.Now().UTC(),
	}))
	sum, err = s.GetSummary(ctx, "alice", 3, 2024)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, "regenerated", sum.SummaryText)
	assert.Equal(t, core.Units(9000), sum.SavingGoal)
	assert.True(t, sum.GoalSetByUser)

	// Without a user goal the derived goal is stored as given.
	require.NoError(t, s.UpsertSummary(ctx, core.MonthlySummary{
		Owner: "alice", Month: 4, Year: 2024,
		SummaryText: "april", SavingGoal: core.Units(150), Source: "fallback", UpdatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.UpsertSummary(ctx, core.MonthlySummary{
		Owner: "alice", Month: 4, Year: 2024,
		SummaryText: "april again", SavingGoal: core.Units(200), Source: "fallback", UpdatedAt: time.Now().UTC(),
	}))
	sum, err = s.GetSummary(ctx, "alice", 4, 2024)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, core.Units(200), sum.SavingGoal)
	assert.False(t, sum.GoalSetByUser)
}
