package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/format"
	"fintrack/internal/storage/memory"
)

var testCurrency = format.NewCurrency("en-US", "$")

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func seed(t *testing.T, store *memory.Store, owner string, txns ...core.Transaction) {
	t.Helper()
	for i, tx := range txns {
		tx.Owner = owner
		if tx.ID == "" {
			tx.ID = tx.Description + "-" + tx.Date.String()
		}
		tx.CreatedAt = time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC)
		require.NoError(t, store.CreateTransaction(context.Background(), tx))
	}
}

func txn(date core.Date, desc string, units int64, cat core.Category) core.Transaction {
	return core.Transaction{Date: date, Description: desc, Amount: core.Units(units), Category: cat}
}
