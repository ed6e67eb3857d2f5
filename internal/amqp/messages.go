package amqp

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventTransactionsIngested EventType = "transactions.ingested"
	EventBudgetUpdated        EventType = "budget.updated"
	EventSummaryGenerated     EventType = "summary.generated"
)

// Period identifies one calendar month.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Event is a lightweight notification about a change in an owner's data.
// Consumers reload whatever they need from storage.
type Event struct {
	Type           EventType `json:"type"`
	Owner          string    `json:"owner"`
	Periods        []Period  `json:"periods,omitempty"`
	TransactionIDs []string  `json:"transactionIds,omitempty"`
	Duplicates     int       `json:"duplicates,omitempty"`
	Source         string    `json:"source,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewTransactionsIngested reports newly stored transactions and the months they touch.
func NewTransactionsIngested(owner string, ids []string, periods []Period, duplicates int) *Event {
	return &Event{
		Type:           EventTransactionsIngested,
		Owner:          owner,
		Periods:        periods,
		TransactionIDs: ids,
		Duplicates:     duplicates,
		Timestamp:      time.Now(),
	}
}

func NewBudgetUpdated(owner string, month, year int) *Event {
	return &Event{
		Type:      EventBudgetUpdated,
		Owner:     owner,
		Periods:   []Period{{Month: month, Year: year}},
		Timestamp: time.Now(),
	}
}

func NewSummaryGenerated(owner string, month, year int, source string) *Event {
	return &Event{
		Type:      EventSummaryGenerated,
		Owner:     owner,
		Periods:   []Period{{Month: month, Year: year}},
		Source:    source,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
