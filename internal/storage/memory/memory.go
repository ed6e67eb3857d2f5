// Package memory is an in-process Store used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type periodKey struct {
	owner       string
	year, month int
}

// Store keeps everything in maps guarded by a single RWMutex.
type Store struct {
	mu           sync.RWMutex
	transactions []core.Transaction
	budgets      map[periodKey]core.Budget
	summaries    map[periodKey]core.MonthlySummary
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		budgets:   make(map[periodKey]core.Budget),
		summaries: make(map[periodKey]core.MonthlySummary),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	t.Description = strings.TrimSpace(t.Description)
	s.mu.Lock()
	s.transactions = append(s.transactions, t)
	s.mu.Unlock()
	return nil
}

func (s *Store) FindDuplicate(_ context.Context, owner string, key storage.DuplicateKey) (*core.Transaction, error) {
	desc := strings.TrimSpace(key.Description)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions {
		if t.Owner == owner && t.Date.Equal(key.Date.Time) && t.Description == desc && t.Amount == key.Amount {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) ListTransactions(_ context.Context, owner string, filter storage.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.Owner != owner || !t.Date.Between(filter.From, filter.To) {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, owner string, month, year int) (*core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[periodKey{owner, year, month}]
	if !ok {
		return nil, nil
	}
	b.PerCategory = copyLimits(b.PerCategory)
	if b.Total != nil {
		total := *b.Total
		b.Total = &total
	}
	return &b, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	b.PerCategory = copyLimits(b.PerCategory)
	if b.Total != nil {
		total := *b.Total
		b.Total = &total
	}
	s.mu.Lock()
	s.budgets[periodKey{b.Owner, b.Year, b.Month}] = b
	s.mu.Unlock()
	return nil
}

func (s *Store) GetSummary(_ context.Context, owner string, month, year int) (*core.MonthlySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[periodKey{owner, year, month}]
	if !ok {
		return nil, nil
	}
	sum.TopCategories = append([]core.Category{}, sum.TopCategories...)
	return &sum, nil
}

func (s *Store) UpsertSummary(_ context.Context, sum core.MonthlySummary) error {
	sum.TopCategories = append([]core.Category{}, sum.TopCategories...)
	key := periodKey{sum.Owner, sum.Year, sum.Month}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.summaries[key]; ok && prev.GoalSetByUser {
		sum.SavingGoal = prev.SavingGoal
		sum.GoalSetByUser = true
	}
	s.summaries[key] = sum
	return nil
}

func (s *Store) SetSavingGoal(_ context.Context, owner string, month, year int, goal core.Money) error {
	key := periodKey{owner, year, month}
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[key]
	if !ok {
		sum = core.MonthlySummary{Owner: owner, Month: month, Year: year, TopCategories: []core.Category{}}
	}
	sum.SavingGoal = goal
	sum.GoalSetByUser = true
	sum.UpdatedAt = time.Now().UTC()
	s.summaries[key] = sum
	return nil
}

func copyLimits(in core.CategoryLimits) core.CategoryLimits {
	out := make(core.CategoryLimits, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
