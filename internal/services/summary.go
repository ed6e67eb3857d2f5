package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"fintrack/internal/ai"
	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/format"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	SourceFallback = "fallback"
	SourceAI       = "ai"
)

// derivedGoalPercent is the share of inflows proposed as a goal when the
// user has not set one.
const derivedGoalPercent = 15

// Summarize builds the deterministic narrative for one month. userGoal is the
// goal the user set, zero when none. Transactions are expected newest first
// as the stores list them; ranking ties keep that order.
func Summarize(txns []core.Transaction, month, year int, userGoal core.Money, cur format.Currency) core.Analysis {
	if len(txns) == 0 {
		return core.Analysis{
			SummaryText:   fmt.Sprintf("No transactions recorded yet for %d/%d. Once you add income and expenses, your monthly insight will appear here.", month, year),
			TopCategories: []core.Category{},
			SavingGoal:    userGoal,
		}
	}

	var credit, debit core.Money
	byCat := make(map[core.Category]core.Money)
	var cats []core.Category
	for _, t := range txns {
		if t.Kind() == core.Credit {
			credit = credit.Add(t.Amount.Abs())
			continue
		}
		debit = debit.Add(t.Amount)
		if _, ok := byCat[t.Category]; !ok {
			cats = append(cats, t.Category)
		}
		byCat[t.Category] = byCat[t.Category].Add(t.Amount)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return byCat[cats[i]].Cents > byCat[cats[j]].Cents
	})
	top := slices.Clone(cats[:min(len(cats), 3)])
	if top == nil {
		top = []core.Category{}
	}

	net := credit.Sub(debit)
	goal := userGoal
	if !goal.IsPositive() {
		goal = credit.Percent(derivedGoalPercent)
	}

	direction := "surplus"
	if net.IsNegative() {
		direction = "deficit"
	}
	mainCategories := "not clearly defined yet"
	if len(top) > 0 {
		mainCategories = joinCategories(top)
	}

	lines := []string{
		fmt.Sprintf("For %d/%d, your total inflow (credits) is %s, and your total spending (debits) is %s.",
			month, year, cur.Amount(credit), cur.Amount(debit)),
		fmt.Sprintf("That leaves you with a net %s of %s for the month.", direction, cur.Amount(net.Abs())),
		fmt.Sprintf("Your main spending categories are %s.", mainCategories),
		goalSentence(goal, net, cur),
	}

	return core.Analysis{
		SummaryText:    strings.Join(lines, "\n"),
		TopCategories:  top,
		CutSuggestions: suggestions(top, goal),
		SavingGoal:     goal,
	}
}

func goalSentence(goal, net core.Money, cur format.Currency) string {
	if !goal.IsPositive() {
		return "You have not set a specific saving goal for this month. Configure it in Settings to get more precise suggestions."
	}
	gap := goal.Sub(net)
	if !gap.IsPositive() {
		return fmt.Sprintf("You are currently on track with your saving goal of %s, with a net surplus that already meets or exceeds it.", cur.Amount(goal))
	}
	return fmt.Sprintf("To reach your saving goal of %s, you need an additional net surplus of about %s this month.", cur.Amount(goal), cur.Amount(gap))
}

func suggestions(top []core.Category, goal core.Money) string {
	if len(top) == 0 {
		return "Once more expense data is available, we’ll highlight where you can cut or rebalance your spending."
	}
	if goal.IsPositive() {
		return strings.Join([]string{
			fmt.Sprintf("To move closer to your saving goal, start by trimming non-essential spend in %s.", top[0]),
			"Even small reductions across food, shopping and transport can close the gap.",
			"Try reviewing your weekly spending and assigning a hard cap per category that matches your target savings.",
		}, "\n")
	}
	return strings.Join([]string{
		fmt.Sprintf("Focus first on %s, since cutting even small recurring costs there can meaningfully improve your monthly surplus.", top[0]),
		"Try to keep discretionary categories like food, shopping and transport under a simple monthly cap.",
	}, "\n")
}

func joinCategories(cats []core.Category) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// SummaryService computes, stores and serves monthly summaries.
type SummaryService struct {
	txns      storage.TransactionStore
	summaries storage.SummaryStore
	analyzer  ai.Analyzer
	currency  format.Currency
	timeout   time.Duration
	publisher amqp.Publisher
	logger    *log.Logger
	now       func() time.Time
}

// NewSummaryService wires the engine. A nil analyzer behaves like ai.Disabled;
// aiTimeout <= 0 leaves the analyzer call bounded only by ctx.
func NewSummaryService(txns storage.TransactionStore, summaries storage.SummaryStore, analyzer ai.Analyzer, cur format.Currency, aiTimeout time.Duration, publisher amqp.Publisher) *SummaryService {
	if analyzer == nil {
		analyzer = ai.Disabled{}
	}
	if publisher == nil {
		publisher = amqp.NopPublisher{}
	}
	return &SummaryService{
		txns:      txns,
		summaries: summaries,
		analyzer:  analyzer,
		currency:  cur,
		timeout:   aiTimeout,
		publisher: publisher,
		logger:    log.Component(log.ComponentSummary),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// MonthlySummary recomputes and stores the summary of a month. The analyzer
// result replaces the deterministic text when it succeeds; any analyzer error
// keeps the deterministic text. A goal set by the user is never replaced.
func (s *SummaryService) MonthlySummary(ctx context.Context, owner string, month, year int) (core.MonthlySummary, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return core.MonthlySummary{}, invalid("period", err)
	}

	existing, err := s.summaries.GetSummary(ctx, owner, month, year)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("get summary: %w", err)
	}
	var userGoal core.Money
	goalSetByUser := existing != nil && existing.GoalSetByUser
	if goalSetByUser {
		userGoal = existing.SavingGoal
	}

	from, to := core.MonthRange(year, month)
	txns, err := s.txns.ListTransactions(ctx, owner, storage.TransactionFilter{From: from, To: to})
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("list transactions: %w", err)
	}

	content := Summarize(txns, month, year, userGoal, s.currency)
	source := SourceFallback
	if len(txns) > 0 {
		if analysis, ok := s.analyze(ctx, owner, txns); ok {
			content.SummaryText = analysis.SummaryText
			content.TopCategories = analysis.TopCategories
			content.CutSuggestions = analysis.CutSuggestions
			if !goalSetByUser && analysis.SavingGoal.IsPositive() {
				content.SavingGoal = analysis.SavingGoal
			}
			source = SourceAI
		}
	}

	sum := core.MonthlySummary{
		Owner:          owner,
		Month:          month,
		Year:           year,
		SummaryText:    content.SummaryText,
		TopCategories:  content.TopCategories,
		CutSuggestions: content.CutSuggestions,
		SavingGoal:     content.SavingGoal,
		GoalSetByUser:  goalSetByUser,
		Source:         source,
		UpdatedAt:      s.now(),
	}
	if err := s.summaries.UpsertSummary(ctx, sum); err != nil {
		return core.MonthlySummary{}, fmt.Errorf("save summary: %w", err)
	}

	s.logger.InfoContext(ctx, "Monthly summary generated",
		log.NewFields().WithPeriod(owner, month, year).WithOperation(log.OpSummarize).ToSlice()...)
	if err := s.publisher.Publish(ctx, amqp.NewSummaryGenerated(owner, month, year, source)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish summary event", log.FieldOwner, owner, log.FieldError, err)
	}
	return sum, nil
}

func (s *SummaryService) analyze(ctx context.Context, owner string, txns []core.Transaction) (core.Analysis, bool) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	analysis, err := s.analyzer.Analyze(ctx, txns)
	switch {
	case errors.Is(err, ai.ErrDisabled):
		return core.Analysis{}, false
	case err != nil:
		s.logger.WarnContext(ctx, "AI analysis unavailable, using fallback summary",
			log.FieldOwner, owner, log.FieldError, err)
		return core.Analysis{}, false
	}
	if analysis.TopCategories == nil {
		analysis.TopCategories = []core.Category{}
	}
	return analysis, true
}

// SetSavingGoal stores the user's goal without touching the rest of the summary.
func (s *SummaryService) SetSavingGoal(ctx context.Context, owner string, month, year int, goal core.Money) error {
	if err := core.ValidatePeriod(month, year); err != nil {
		return invalid("period", err)
	}
	if goal.IsNegative() {
		return invalid("savingGoal", core.ErrInvalidAmount)
	}
	if err := s.summaries.SetSavingGoal(ctx, owner, month, year, goal); err != nil {
		return fmt.Errorf("set saving goal: %w", err)
	}
	s.logger.InfoContext(ctx, "Saving goal updated",
		log.NewFields().WithPeriod(owner, month, year).WithOperation(log.OpSetGoal).ToSlice()...)
	return nil
}

// SavingGoal returns the stored goal of a month, zero when there is none.
func (s *SummaryService) SavingGoal(ctx context.Context, owner string, month, year int) (core.Money, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return core.Money{}, invalid("period", err)
	}
	sum, err := s.summaries.GetSummary(ctx, owner, month, year)
	if err != nil {
		return core.Money{}, fmt.Errorf("get summary: %w", err)
	}
	if sum == nil {
		return core.Money{}, nil
	}
	return sum.SavingGoal, nil
}
