package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/categorize"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type DuplicatePolicy string

const (
	PolicySkip  DuplicatePolicy = "skip"
	PolicyAllow DuplicatePolicy = "allow"
)

// DefaultLookupWorkers bounds concurrent duplicate lookups in ImportBatch.
const DefaultLookupWorkers = 8

var (
	errMissingOwner  = errors.New("owner is required")
	errUnknownPolicy = errors.New("duplicate policy must be skip or allow")
)

// ParseDuplicatePolicy accepts skip or allow, case-insensitively. An empty
// value means skip.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicySkip, nil
	case PolicySkip, PolicyAllow:
		return p, nil
	default:
		return "", invalid("duplicatePolicy", fmt.Errorf("%w: %q", errUnknownPolicy, s))
	}
}

// Record is one incoming transaction as typed by a user or read from a file.
type Record struct {
	Date        string
	Description string
	Amount      string
	Category    string
	Type        string
}

// BatchResult counts the outcome of ImportBatch. Invalid rows are neither
// inserted nor counted as duplicates.
type BatchResult struct {
	Inserted   int
	Duplicates int
	Invalid    int
	Failed     int
	Created    []core.Transaction
}

// NothingToInsert reports that no row survived validation and deduplication.
func (r BatchResult) NothingToInsert() bool {
	return r.Inserted == 0 && r.Failed == 0
}

// IngestionService validates, deduplicates, categorizes and stores transactions.
type IngestionService struct {
	store      storage.TransactionStore
	detector   *DuplicateDetector
	classifier *categorize.Classifier
	publisher  amqp.Publisher
	workers    int
	logger     *log.Logger
	now        func() time.Time
	newID      func() string
}

// NewIngestionService wires the pipeline. A nil classifier uses the default
// rules; a nil publisher disables events; workers <= 0 uses DefaultLookupWorkers.
func NewIngestionService(store storage.TransactionStore, classifier *categorize.Classifier, publisher amqp.Publisher, workers int) *IngestionService {
	if classifier == nil {
		classifier = categorize.NewDefault()
	}
	if publisher == nil {
		publisher = amqp.NopPublisher{}
	}
	if workers <= 0 {
		workers = DefaultLookupWorkers
	}
	return &IngestionService{
		store:      store,
		detector:   NewDuplicateDetector(store),
		classifier: classifier,
		publisher:  publisher,
		workers:    workers,
		logger:     log.Component(log.ComponentIngest),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.NewString() },
	}
}

func (s *IngestionService) normalize(rec Record) (core.Transaction, error) {
	date, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Transaction{}, invalid("date", err)
	}

	desc := strings.TrimSpace(rec.Description)
	if desc == "" {
		return core.Transaction{}, invalid("description", core.ErrEmptyDescription)
	}
	if len(desc) > core.MaxDescriptionLength {
		return core.Transaction{}, invalid("description", core.ErrDescriptionTooLong)
	}

	amount, err := core.ParseMoney(rec.Amount)
	if err != nil {
		return core.Transaction{}, invalid("amount", err)
	}

	typ, err := core.ParseTransactionType(rec.Type)
	if err != nil {
		return core.Transaction{}, invalid("type", err)
	}

	return core.Transaction{
		Date:        date,
		Description: desc,
		Amount:      typ.ApplySign(amount),
		Category:    s.classifier.Resolve(rec.Category, desc),
	}, nil
}

func candidateOf(t core.Transaction) Candidate {
	amount := t.Amount
	return Candidate{Date: t.Date, Description: t.Description, Amount: &amount}
}

// AddTransaction stores a single record. Under PolicySkip a duplicate yields
// a *ConflictError carrying the stored transaction.
func (s *IngestionService) AddTransaction(ctx context.Context, owner string, rec Record, policy DuplicatePolicy) (*core.Transaction, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, invalid("owner", errMissingOwner)
	}
	t, err := s.normalize(rec)
	if err != nil {
		return nil, err
	}

	if policy != PolicyAllow {
		existing, err := s.detector.FindDuplicate(ctx, owner, candidateOf(t))
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.InfoContext(ctx, "Duplicate transaction rejected",
				log.FieldOwner, owner, "existing_id", existing.ID)
			return nil, &ConflictError{Existing: *existing}
		}
	}

	t.ID = s.newID()
	t.Owner = owner
	t.CreatedAt = s.now()
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldOwner, owner,
		log.FieldCategory, t.Category,
		log.FieldAmountCents, t.Amount.Cents)
	s.publish(ctx, owner, []core.Transaction{t}, 0)
	return &t, nil
}

// ImportBatch ingests many records. Bad rows are skipped and counted; one
// failed insert does not stop the rest. An error is returned only when a
// duplicate lookup fails or every surviving record fails to persist.
func (s *IngestionService) ImportBatch(ctx context.Context, owner string, recs []Record, policy DuplicatePolicy) (BatchResult, error) {
	var res BatchResult
	if strings.TrimSpace(owner) == "" {
		return res, invalid("owner", errMissingOwner)
	}

	parsed := make([]*core.Transaction, len(recs))
	for i, rec := range recs {
		t, err := s.normalize(rec)
		if err != nil {
			res.Invalid++
			s.logger.DebugContext(ctx, "Skipping invalid row", "row", i+1, log.FieldError, err)
			continue
		}
		parsed[i] = &t
	}

	var stored []bool
	if policy != PolicyAllow {
		var err error
		if stored, err = s.lookupDuplicates(ctx, owner, parsed); err != nil {
			return BatchResult{}, err
		}
	}

	// Decisions are taken in input order so counts do not depend on lookup timing.
	var survivors []core.Transaction
	seen := make(map[string]struct{})
	for i, t := range parsed {
		if t == nil {
			continue
		}
		if policy != PolicyAllow {
			key := identity(*t)
			_, inBatch := seen[key]
			if stored[i] || inBatch {
				res.Duplicates++
				continue
			}
			seen[key] = struct{}{}
		}
		survivors = append(survivors, *t)
	}

	var lastErr error
	for _, t := range survivors {
		t.ID = s.newID()
		t.Owner = owner
		t.CreatedAt = s.now()
		if err := s.store.CreateTransaction(ctx, t); err != nil {
			res.Failed++
			lastErr = err
			s.logger.WarnContext(ctx, "Failed to store imported row",
				log.FieldOwner, owner, log.FieldError, err)
			continue
		}
		res.Inserted++
		res.Created = append(res.Created, t)
	}

	s.logger.InfoContext(ctx, "Batch import finished",
		log.NewFields().
			WithOperation(log.OpImport).
			WithBatch(res.Inserted, res.Duplicates, res.Invalid, res.Failed).
			ToSlice()...)

	if len(survivors) > 0 && res.Inserted == 0 {
		return res, fmt.Errorf("persist batch: %w", lastErr)
	}
	s.publish(ctx, owner, res.Created, res.Duplicates)
	return res, nil
}

// lookupDuplicates checks every parsed row against stored transactions with
// at most s.workers lookups in flight.
func (s *IngestionService) lookupDuplicates(ctx context.Context, owner string, parsed []*core.Transaction) ([]bool, error) {
	found := make([]bool, len(parsed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, t := range parsed {
		if t == nil {
			continue
		}
		g.Go(func() error {
			existing, err := s.detector.FindDuplicate(gctx, owner, candidateOf(*t))
			if err != nil {
				return err
			}
			found[i] = existing != nil
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

func identity(t core.Transaction) string {
	return fmt.Sprintf("%s|%d|%s", t.Date.String(), t.Amount.Cents, t.Description)
}

// ListTransactions returns the owner's transactions newest first.
func (s *IngestionService) ListTransactions(ctx context.Context, owner string, filter storage.TransactionFilter) ([]core.Transaction, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To.Time) {
		return nil, invalid("dateRange", fmt.Errorf("start %s is after end %s", filter.From, filter.To))
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, invalid("category", core.ErrInvalidCategory)
	}
	txns, err := s.store.ListTransactions(ctx, owner, filter)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

func (s *IngestionService) publish(ctx context.Context, owner string, created []core.Transaction, duplicates int) {
	if len(created) == 0 {
		return
	}
	ids := make([]string, len(created))
	var periods []amqp.Period
	seen := make(map[amqp.Period]bool)
	for i, t := range created {
		ids[i] = t.ID
		p := amqp.Period{Month: t.Date.Month(), Year: t.Date.Year()}
		if !seen[p] {
			seen[p] = true
			periods = append(periods, p)
		}
	}
	ev := amqp.NewTransactionsIngested(owner, ids, periods, duplicates)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ingestion event",
			log.FieldOwner, owner, log.FieldEvent, ev.Type, log.FieldError, err)
	}
}
