package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Candidate is the identity of an incoming transaction. A nil Amount means
// the amount was not supplied.
type Candidate struct {
	Date        core.Date
	Description string
	Amount      *core.Money
}

func (c Candidate) complete() bool {
	return !c.Date.IsZero() && strings.TrimSpace(c.Description) != "" && c.Amount != nil
}

// DuplicateDetector finds stored transactions with the same owner, day,
// trimmed description and amount. Matching is exact; near-duplicates such as
// an off-by-one day are not detected.
type DuplicateDetector struct {
	store storage.TransactionStore
}

func NewDuplicateDetector(store storage.TransactionStore) *DuplicateDetector {
	return &DuplicateDetector{store: store}
}

// FindDuplicate returns the matching transaction, or nil when there is none
// or the candidate is incomplete.
func (d *DuplicateDetector) FindDuplicate(ctx context.Context, owner string, c Candidate) (*core.Transaction, error) {
	if !c.complete() {
		return nil, nil
	}
	existing, err := d.store.FindDuplicate(ctx, owner, storage.DuplicateKey{
		Date:        c.Date,
		Description: strings.TrimSpace(c.Description),
		Amount:      *c.Amount,
	})
	if err != nil {
		return nil, fmt.Errorf("find duplicate: %w", err)
	}
	return existing, nil
}

func (d *DuplicateDetector) IsDuplicate(ctx context.Context, owner string, c Candidate) (bool, error) {
	existing, err := d.FindDuplicate(ctx, owner, c)
	return existing != nil, err
}
