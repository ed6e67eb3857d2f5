package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// BudgetService compares a month of spending with the configured limits.
type BudgetService struct {
	txns      storage.TransactionStore
	budgets   storage.BudgetStore
	publisher amqp.Publisher
	logger    *log.Logger
	now       func() time.Time
}

func NewBudgetService(txns storage.TransactionStore, budgets storage.BudgetStore, publisher amqp.Publisher) *BudgetService {
	if publisher == nil {
		publisher = amqp.NopPublisher{}
	}
	return &BudgetService{
		txns:      txns,
		budgets:   budgets,
		publisher: publisher,
		logger:    log.Component(log.ComponentBudget),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Status aggregates the month's transactions and classifies the totals.
// Amounts are summed with their sign, so inflows offset spending.
// PerCategoryStatus only holds categories that have a limit.
func (s *BudgetService) Status(ctx context.Context, owner string, month, year int) (core.BudgetStatus, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return core.BudgetStatus{}, invalid("period", err)
	}

	budget, err := s.budgets.GetBudget(ctx, owner, month, year)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("get budget: %w", err)
	}

	from, to := core.MonthRange(year, month)
	txns, err := s.txns.ListTransactions(ctx, owner, storage.TransactionFilter{From: from, To: to})
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("list transactions: %w", err)
	}

	st := core.BudgetStatus{
		Month:             month,
		Year:              year,
		Budget:            budget,
		ByCategory:        make(map[core.Category]core.Money),
		TotalStatus:       core.StatusNoBudget,
		PerCategoryStatus: make(map[core.Category]core.Status),
	}
	for _, t := range txns {
		st.TotalSpent = st.TotalSpent.Add(t.Amount)
		st.ByCategory[t.Category] = st.ByCategory[t.Category].Add(t.Amount)
	}

	if budget == nil {
		return st, nil
	}
	st.TotalStatus = core.StatusFor(st.TotalSpent, budget.Total)
	for cat, limit := range budget.PerCategory {
		st.PerCategoryStatus[cat] = core.StatusFor(st.ByCategory[cat], &limit)
	}
	return st, nil
}

// SetBudget replaces the budget of a month. A nil or zero total clears the
// overall limit; zero category limits are dropped.
func (s *BudgetService) SetBudget(ctx context.Context, owner string, month, year int, total *core.Money, limits map[string]core.Money) (core.Budget, error) {
	per := make(core.CategoryLimits, len(limits))
	for name, v := range limits {
		cat, err := core.ParseCategory(name)
		if err != nil {
			return core.Budget{}, invalid("perCategory", err)
		}
		per[cat] = v
	}
	if total != nil && total.IsZero() {
		total = nil
	}

	b := core.Budget{
		Owner:       owner,
		Month:       month,
		Year:        year,
		Total:       total,
		PerCategory: per,
		UpdatedAt:   s.now(),
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, invalid("budget", err)
	}
	b.PerCategory = per.Compact()

	if err := s.budgets.UpsertBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget saved",
		log.NewFields().WithPeriod(owner, month, year).WithOperation(log.OpUpsert).ToSlice()...)
	if err := s.publisher.Publish(ctx, amqp.NewBudgetUpdated(owner, month, year)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish budget event", log.FieldOwner, owner, log.FieldError, err)
	}
	return b, nil
}
