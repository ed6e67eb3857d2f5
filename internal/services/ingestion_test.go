package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"fintrack/internal/amqp"
	"fintrack/internal/categorize"
	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func TestParseDuplicatePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DuplicatePolicy
		wantErr bool
	}{
		{"", PolicySkip, false},
		{"skip", PolicySkip, false},
		{" ALLOW ", PolicyAllow, false},
		{"merge", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDuplicatePolicy(tt.in)
		if tt.wantErr {
			assert.True(t, IsValidation(err), tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestAddTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies and stores", func(t *testing.T) {
		store := memory.New()
		pub := &recordingPublisher{}
		svc := NewIngestionService(store, nil, pub, 0)

		got, err := svc.AddTransaction(ctx, "alice", Record{Date: "2024-03-20", Description: " Uber ride ", Amount: "200"}, PolicySkip)
		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "alice", got.Owner)
		assert.Equal(t, "Uber ride", got.Description)
		assert.Equal(t, core.Transport, got.Category)
		assert.Equal(t, core.Units(200), got.Amount)

		stored, err := store.ListTransactions(ctx, "alice", storage.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, got.ID, stored[0].ID)

		require.Len(t, pub.events, 1)
		assert.Equal(t, amqp.EventTransactionsIngested, pub.events[0].Type)
		assert.Equal(t, []amqp.Period{{Month: 3, Year: 2024}}, pub.events[0].Periods)
	})

	t.Run("explicit category wins when valid", func(t *testing.T) {
		svc := NewIngestionService(memory.New(), categorize.NewDefault(), nil, 0)

		got, err := svc.AddTransaction(ctx, "alice", Record{Date: "2024-03-20", Description: "Uber gift card", Amount: "50", Category: "Shopping"}, PolicySkip)
		require.NoError(t, err)
		assert.Equal(t, core.Shopping, got.Category)

		got, err = svc.AddTransaction(ctx, "alice", Record{Date: "2024-03-21", Description: "Zomato order", Amount: "50", Category: "groceries"}, PolicySkip)
		require.NoError(t, err)
		assert.Equal(t, core.Food, got.Category)
	})

	t.Run("credit type flips sign", func(t *testing.T) {
		svc := NewIngestionService(memory.New(), nil, nil, 0)

		got, err := svc.AddTransaction(ctx, "alice", Record{Date: "2024-03-01", Description: "Salary", Amount: "50000", Type: "credit"}, PolicySkip)
		require.NoError(t, err)
		assert.Equal(t, core.Units(-50000), got.Amount)
		assert.Equal(t, core.Credit, got.Kind())
	})

	t.Run("validation", func(t *testing.T) {
		svc := NewIngestionService(memory.New(), nil, nil, 0)
		tests := []struct {
			name   string
			owner  string
			rec    Record
			target error
		}{
			{"missing date", "alice", Record{Description: "x", Amount: "1"}, core.ErrInvalidDate},
			{"bad amount", "alice", Record{Date: "2024-03-01", Description: "x", Amount: "abc"}, core.ErrInvalidAmount},
			{"missing amount", "alice", Record{Date: "2024-03-01", Description: "x"}, core.ErrInvalidAmount},
			{"blank description", "alice", Record{Date: "2024-03-01", Description: "  ", Amount: "1"}, core.ErrEmptyDescription},
			{"bad type", "alice", Record{Date: "2024-03-01", Description: "x", Amount: "1", Type: "refund"}, core.ErrInvalidType},
			{"no owner", "", Record{Date: "2024-03-01", Description: "x", Amount: "1"}, errMissingOwner},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.AddTransaction(ctx, tt.owner, tt.rec, PolicySkip)
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				assert.ErrorIs(t, err, tt.target)
			})
		}
	})
}

func TestAddTransaction_DuplicatePolicy(t *testing.T) {
	ctx := context.Background()
	rec := Record{Date: "2024-03-01", Description: "Zomato order", Amount: "500"}

	t.Run("skip inserts once", func(t *testing.T) {
		store := memory.New()
		svc := NewIngestionService(store, nil, nil, 0)

		first, err := svc.AddTransaction(ctx, "alice", rec, PolicySkip)
		require.NoError(t, err)

		_, err = svc.AddTransaction(ctx, "alice", rec, PolicySkip)
		require.ErrorIs(t, err, ErrDuplicate)
		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, first.ID, conflict.Existing.ID)

		stored, err := store.ListTransactions(ctx, "alice", storage.TransactionFilter{})
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("allow inserts twice", func(t *testing.T) {
		store := memory.New()
		svc := NewIngestionService(store, nil, nil, 0)

		_, err := svc.AddTransaction(ctx, "alice", rec, PolicyAllow)
		require.NoError(t, err)
		_, err = svc.AddTransaction(ctx, "alice", rec, PolicyAllow)
		require.NoError(t, err)

		stored, err := store.ListTransactions(ctx, "alice", storage.TransactionFilter{})
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("other owners do not conflict", func(t *testing.T) {
		svc := NewIngestionService(memory.New(), nil, nil, 0)
		_, err := svc.AddTransaction(ctx, "alice", rec, PolicySkip)
		require.NoError(t, err)
		_, err = svc.AddTransaction(ctx, "bob", rec, PolicySkip)
		require.NoError(t, err)
	})
}

func TestImportBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("skips invalid and duplicate rows", func(t *testing.T) {
		store := memory.New()
		seed(t, store, "alice", txn(core.NewDate(2024, 3, 1), "Zomato order", 500, core.Food))
		pub := &recordingPublisher{}
		svc := NewIngestionService(store, nil, pub, 2)

		res, err := svc.ImportBatch(ctx, "alice", []Record{
			{Date: "2024-03-15", Description: "Swiggy dinner", Amount: "1500"},
			{Date: "2024-03-20", Description: "Uber ride", Amount: "200"},
			{Date: "2024-03-01", Description: "Zomato order", Amount: "500.00"},
			{Date: "2024-03-05", Description: "Amazon", Amount: ""},
		}, PolicySkip)
		require.NoError(t, err)

		assert.Equal(t, 2, res.Inserted)
		assert.Equal(t, 1, res.Duplicates)
		assert.Equal(t, 1, res.Invalid)
		assert.Equal(t, 0, res.Failed)
		assert.False(t, res.NothingToInsert())
		require.Len(t, res.Created, 2)
		assert.Equal(t, "Swiggy dinner", res.Created[0].Description)
		assert.Equal(t, core.Food, res.Created[0].Category)
		assert.Equal(t, core.Transport, res.Created[1].Category)

		stored, err := store.ListTransactions(ctx, "alice", storage.TransactionFilter{})
		require.NoError(t, err)
		assert.Len(t, stored, 3)

		require.Len(t, pub.events, 1)
		assert.Len(t, pub.events[0].TransactionIDs, 2)
		assert.Equal(t, 1, pub.events[0].Duplicates)
	})

	t.Run("collapses repeats inside the batch under skip", func(t *testing.T) {
		svc := NewIngestionService(memory.New(), nil, nil, 4)
		rows := []Record{
			{Date: "2024-03-02", Description: "Netflix", Amount: "649"},
			{Date: "2024-03-02", Description: "Netflix ", Amount: "649"},
		}

		res, err := svc.ImportBatch(ctx, "alice", rows, PolicySkip)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Inserted)
		assert.Equal(t, 1, res.Duplicates)
		assert.Equal(t, core.Subscriptions, res.Created[0].Category)
	})

	t.Run("allow keeps everything", func(t *testing.T) {
		store := memory.New()
		seed(t, store, "alice", txn(core.NewDate(2024, 3, 2), "Netflix", 649, core.Subscriptions))
		svc := NewIngestionService(store, nil, nil, 4)

		res, err := svc.ImportBatch(ctx, "alice", []Record{
			{Date: "2024-03-02", Description: "Netflix", Amount: "649"},
			{Date: "2024-03-02", Description: "Netflix", Amount: "649"},
		}, PolicyAllow)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Inserted)
		assert.Zero(t, res.Duplicates)
	})

	t.Run("nothing to insert is not an error", func(t *testing.T) {
		store := memory.New()
		seed(t, store, "alice", txn(core.NewDate(2024, 3, 1), "Rent March", 20000, core.Rent))
		pub := &recordingPublisher{}
		svc := NewIngestionService(store, nil, pub, 0)

		res, err := svc.ImportBatch(ctx, "alice", []Record{
			{Date: "2024-03-01", Description: "Rent March", Amount: "20000"},
			{Date: "bad", Description: "Rent April", Amount: "20000"},
		}, PolicySkip)
		require.NoError(t, err)
		assert.True(t, res.NothingToInsert())
		assert.Equal(t, 1, res.Duplicates)
		assert.Equal(t, 1, res.Invalid)
		assert.Empty(t, pub.events)
	})

	t.Run("grouped amounts keep their magnitude", func(t *testing.T) {
		store := memory.New()
		svc := NewIngestionService(store, nil, nil, 0)

		res, err := svc.ImportBatch(ctx, "alice", []Record{
			{Date: "2024-03-01", Description: "Rent march", Amount: "1,500"},
			{Date: "2024-03-02", Description: "Laptop", Amount: "1,23,456"},
			{Date: "2024-03-03", Description: "Cafe", Amount: "1,2345"},
		}, PolicySkip)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Inserted)
		assert.Equal(t, 1, res.Invalid)

		require.Len(t, res.Created, 2)
		assert.Equal(t, core.Units(1500), res.Created[0].Amount)
		assert.Equal(t, core.Money{Cents: 12345600}, res.Created[1].Amount)
	})

	t.Run("publish failure does not fail the import", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("broker down")}
		svc := NewIngestionService(memory.New(), nil, pub, 0)

		res, err := svc.ImportBatch(ctx, "alice", []Record{{Date: "2024-03-01", Description: "Cafe", Amount: "120"}}, PolicySkip)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Inserted)
	})
}

func TestImportBatch_StorageErrors(t *testing.T) {
	ctx := context.Background()
	rows := []Record{
		{Date: "2024-03-01", Description: "Cafe", Amount: "120"},
		{Date: "2024-03-02", Description: "Metro card", Amount: "300"},
	}

	t.Run("one failed insert does not stop the rest", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := storage.NewMockStore(ctrl)
		store.EXPECT().FindDuplicate(gomock.Any(), "alice", gomock.Any()).Return(nil, nil).Times(2)
		gomock.InOrder(
			store.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
			store.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil),
		)

		res, err := NewIngestionService(store, nil, nil, 0).ImportBatch(ctx, "alice", rows, PolicySkip)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Inserted)
		assert.Equal(t, 1, res.Failed)
		assert.False(t, res.NothingToInsert())
	})

	t.Run("every insert failing is an error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := storage.NewMockStore(ctrl)
		store.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(2)

		res, err := NewIngestionService(store, nil, nil, 0).ImportBatch(ctx, "alice", rows, PolicyAllow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, 2, res.Failed)
	})

	t.Run("lookup failure aborts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := storage.NewMockStore(ctrl)
		store.EXPECT().FindDuplicate(gomock.Any(), "alice", gomock.Any()).Return(nil, errors.New("connection reset")).MinTimes(1)

		_, err := NewIngestionService(store, nil, nil, 1).ImportBatch(ctx, "alice", rows, PolicySkip)
		require.Error(t, err)
		assert.False(t, IsValidation(err))
	})
}

func TestDuplicateDetector(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store, "alice", txn(core.NewDate(2024, 3, 1), "Zomato order", 500, core.Food))
	d := NewDuplicateDetector(store)
	amount := core.Units(500)

	tests := []struct {
		name string
		c    Candidate
		want bool
	}{
		{"exact", Candidate{Date: core.NewDate(2024, 3, 1), Description: " Zomato order ", Amount: &amount}, true},
		{"next day", Candidate{Date: core.NewDate(2024, 3, 2), Description: "Zomato order", Amount: &amount}, false},
		{"missing amount", Candidate{Date: core.NewDate(2024, 3, 1), Description: "Zomato order"}, false},
		{"missing date", Candidate{Description: "Zomato order", Amount: &amount}, false},
		{"missing description", Candidate{Date: core.NewDate(2024, 3, 1), Amount: &amount}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.IsDuplicate(ctx, "alice", tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store, "alice",
		txn(core.NewDate(2024, 3, 1), "Zomato order", 500, core.Food),
		txn(core.NewDate(2024, 3, 20), "Uber ride", 200, core.Transport),
	)
	svc := NewIngestionService(store, nil, nil, 0)

	got, err := svc.ListTransactions(ctx, "alice", storage.TransactionFilter{Category: core.Food})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Zomato order", got[0].Description)

	_, err = svc.ListTransactions(ctx, "alice", storage.TransactionFilter{From: core.NewDate(2024, 4, 1), To: core.NewDate(2024, 3, 1)})
	assert.True(t, IsValidation(err))

	_, err = svc.ListTransactions(ctx, "alice", storage.TransactionFilter{Category: "groceries"})
	assert.True(t, IsValidation(err))
}
