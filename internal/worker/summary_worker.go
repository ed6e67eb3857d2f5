// Package worker reacts to data-change events published by the services.
package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Summarizer regenerates and stores the summary of one month.
type Summarizer interface {
	MonthlySummary(ctx context.Context, owner string, month, year int) (core.MonthlySummary, error)
}

// SummaryWorker keeps stored monthly summaries current as transactions arrive.
type SummaryWorker struct {
	summaries Summarizer
	logger    *log.Logger
}

func NewSummaryWorker(summaries Summarizer) *SummaryWorker {
	return &SummaryWorker{
		summaries: summaries,
		logger:    log.Component(log.ComponentWorker),
	}
}

// HandleEvent refreshes every month touched by a transactions.ingested event.
// Other event types are acknowledged without work. A failed month does not
// stop the others; the joined error makes the consumer requeue the event.
func (w *SummaryWorker) HandleEvent(ctx context.Context, ev *amqp.Event) error {
	if ev.Type != amqp.EventTransactionsIngested {
		w.logger.DebugContext(ctx, "Ignoring event", log.FieldEvent, ev.Type, log.FieldOwner, ev.Owner)
		return nil
	}
	if ev.Owner == "" {
		w.logger.WarnContext(ctx, "Dropping event without owner", log.FieldEvent, ev.Type)
		return nil
	}

	var errs []error
	seen := make(map[amqp.Period]bool, len(ev.Periods))
	for _, p := range ev.Periods {
		if seen[p] {
			continue
		}
		seen[p] = true

		if err := core.ValidatePeriod(p.Month, p.Year); err != nil {
			w.logger.WarnContext(ctx, "Skipping invalid period",
				log.NewFields().WithPeriod(ev.Owner, p.Month, p.Year).WithError(err).ToSlice()...)
			continue
		}

		sum, err := w.summaries.MonthlySummary(ctx, ev.Owner, p.Month, p.Year)
		if err != nil {
			errs = append(errs, fmt.Errorf("refresh %02d/%d: %w", p.Month, p.Year, err))
			continue
		}
		w.logger.InfoContext(ctx, "Summary refreshed",
			append(log.NewFields().WithPeriod(ev.Owner, p.Month, p.Year).WithOperation(log.OpSummarize).ToSlice(),
				log.FieldSource, sum.Source)...)
	}
	return errors.Join(errs...)
}

// Consumer delivers events to a handler until its context ends.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.Event) error) error
}

// Run consumes events until ctx is cancelled. Cancellation is not an error.
func (w *SummaryWorker) Run(ctx context.Context, c Consumer) error {
	err := c.Consume(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
