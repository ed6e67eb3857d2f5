// Package storage defines the persistence ports used by the services and
// their SQL implementations.
package storage

//go:generate mockgen -source=store.go -destination=store_mock.go -package=storage

import (
	"context"

	"fintrack/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values are ignored.
type TransactionFilter struct {
	From     core.Date
	To       core.Date
	Category core.Category
	Limit    int
}

// DuplicateKey is the logical identity of a transaction for one owner.
type DuplicateKey struct {
	Date        core.Date
	Description string
	Amount      core.Money
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) error
	// FindDuplicate returns nil, nil when no transaction matches key exactly.
	FindDuplicate(ctx context.Context, owner string, key DuplicateKey) (*core.Transaction, error)
	// ListTransactions returns matches newest first.
	ListTransactions(ctx context.Context, owner string, filter TransactionFilter) ([]core.Transaction, error)
}

type BudgetStore interface {
	// GetBudget returns nil, nil when no budget is stored for the period.
	GetBudget(ctx context.Context, owner string, month, year int) (*core.Budget, error)
	UpsertBudget(ctx context.Context, b core.Budget) error
}

type SummaryStore interface {
	// GetSummary returns nil, nil when no summary is stored for the period.
	GetSummary(ctx context.Context, owner string, month, year int) (*core.MonthlySummary, error)
	// UpsertSummary never replaces a goal the user already set.
	UpsertSummary(ctx context.Context, s core.MonthlySummary) error
	// SetSavingGoal touches only the goal fields, creating an empty row if needed.
	SetSavingGoal(ctx context.Context, owner string, month, year int, goal core.Money) error
}

// Store is everything a backend provides.
type Store interface {
	TransactionStore
	BudgetStore
	SummaryStore
	Ping(ctx context.Context) error
	Close() error
}
