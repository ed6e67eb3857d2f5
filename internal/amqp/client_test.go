package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"not connected", errNotConnected, true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "fintrack", queueName: "fintrack_events"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit should be closed initially")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)

		client.recordSuccess()

		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("failure count should be reset")
		}
		if atomic.LoadInt32(&client.state) != StateClosed {
			t.Error("state should be closed after success")
		}
	})

	t.Run("failures open the circuit", func(t *testing.T) {
		client.recordSuccess()
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit should be open after max failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("circuit should let a probe through after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		client.recordSuccess()
		atomic.StoreInt32(&client.state, StateHalfOpen)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed probe should reopen the circuit")
		}
	})
}

func TestClient_Publish(t *testing.T) {
	client := &Client{exchangeName: "fintrack", queueName: "fintrack_events"}
	ev := NewBudgetUpdated("alice", 3, 2024)

	t.Run("fails fast when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.Publish(context.Background(), ev)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("Publish() error = %v, want %v", err, ErrCircuitOpen)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		client.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.Publish(ctx, ev); err != context.Canceled {
			t.Errorf("Publish() error = %v, want context.Canceled", err)
		}
	})
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), NewBudgetUpdated("alice", 1, 2024)); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	if err := (&Client{}).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewTransactionsIngested(t *testing.T) {
	ev := NewTransactionsIngested("alice", []string{"a", "b"}, []Period{{Month: 3, Year: 2024}}, 1)

	if ev.Type != EventTransactionsIngested {
		t.Errorf("Type = %v, want %v", ev.Type, EventTransactionsIngested)
	}
	if len(ev.TransactionIDs) != 2 || ev.Duplicates != 1 {
		t.Errorf("unexpected payload: %+v", ev)
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestEvent_JSON(t *testing.T) {
	ev := &Event{
		Type:      EventSummaryGenerated,
		Owner:     "alice",
		Periods:   []Period{{Month: 3, Year: 2024}},
		Source:    "fallback",
		Timestamp: time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC),
	}

	data, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(data), `"type":"summary.generated"`) {
		t.Errorf("unexpected encoding: %s", data)
	}
	if strings.Contains(string(data), "transactionIds") {
		t.Errorf("empty fields should be omitted: %s", data)
	}

	parsed, err := EventFromJSON(data)
	if err != nil {
		t.Fatalf("EventFromJSON() error = %v", err)
	}
	if parsed.Owner != ev.Owner || parsed.Periods[0] != ev.Periods[0] || !parsed.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("EventFromJSON() = %+v, want %+v", parsed, ev)
	}
}

func TestEventFromJSON_Invalid(t *testing.T) {
	if _, err := EventFromJSON([]byte(`{"owner": 42}`)); err == nil {
		t.Error("EventFromJSON() should fail on a mistyped field")
	}
}
