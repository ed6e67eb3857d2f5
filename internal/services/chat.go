package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/ai"
	"fintrack/internal/core"
	"fintrack/internal/format"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// chatHistoryLimit is how many recent transactions are analysed when the
// caller asks for an answer without date context.
const chatHistoryLimit = 200

var errEmptyMessage = errors.New("empty message")

// ChatReply answers a free-text spending question.
type ChatReply struct {
	Reply    string
	Category core.Category
	From     core.Date
	To       core.Date
	Analysis *core.Analysis
}

// ChatService answers spending questions from stored transactions.
type ChatService struct {
	txns     storage.TransactionStore
	analyzer ai.Analyzer
	currency format.Currency
	timeout  time.Duration
	logger   *log.Logger
	now      func() time.Time
}

func NewChatService(txns storage.TransactionStore, analyzer ai.Analyzer, cur format.Currency, aiTimeout time.Duration) *ChatService {
	if analyzer == nil {
		analyzer = ai.Disabled{}
	}
	return &ChatService{
		txns:     txns,
		analyzer: analyzer,
		currency: cur,
		timeout:  aiTimeout,
		logger:   log.Component(log.ComponentChat),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// chatCategories is checked in order; the first keyword hit wins.
var chatCategories = []struct {
	category core.Category
	keywords []string
}{
	{core.Food, []string{"food"}},
	{core.Rent, []string{"rent"}},
	{core.Transport, []string{"transport", "cab", "uber", "ola"}},
	{core.Shopping, []string{"shop", "amazon", "flipkart"}},
	{core.Subscriptions, []string{"subscr", "netflix", "spotify", "prime"}},
}

func detectCategory(text string) (core.Category, bool) {
	t := strings.ToLower(text)
	for _, c := range chatCategories {
		for _, kw := range c.keywords {
			if strings.Contains(t, kw) {
				return c.category, true
			}
		}
	}
	return "", false
}

// dateRange maps phrases like "today" or "this month" to a day range. Anything
// else covers the last 14 days.
func dateRange(text string, now time.Time) (core.Date, core.Date) {
	t := strings.ToLower(text)
	today := core.DateOf(now)
	switch {
	case strings.Contains(t, "today"):
		return today, today
	case strings.Contains(t, "yesterday"):
		y := core.DateOf(now.AddDate(0, 0, -1))
		return y, y
	case strings.Contains(t, "month"):
		return core.MonthRange(today.Year(), today.Month())
	default:
		return core.DateOf(now.AddDate(0, 0, -14)), today
	}
}

// Query answers message. With includeContext the answer is limited to the
// period named in the message; a recognised category yields a spend total,
// anything else an analysis of the period.
func (s *ChatService) Query(ctx context.Context, owner, message string, includeContext bool) (ChatReply, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return ChatReply{}, invalid("message", errEmptyMessage)
	}

	category, hasCategory := detectCategory(msg)
	from, to := dateRange(msg, s.now())
	reply := ChatReply{Category: category, From: from, To: to}

	var txns []core.Transaction
	if includeContext {
		var err error
		txns, err = s.txns.ListTransactions(ctx, owner, storage.TransactionFilter{From: from, To: to})
		if err != nil {
			return ChatReply{}, fmt.Errorf("list transactions: %w", err)
		}
	}

	if hasCategory && len(txns) > 0 {
		var total core.Money
		for _, t := range txns {
			if t.Category == category {
				total = total.Add(t.Amount)
			}
		}
		advice := "No recorded transactions in this category for that period."
		if total.IsPositive() {
			advice = "Consider reducing small recurring purchases to lower this."
		}
		reply.Reply = fmt.Sprintf("You spent %s on %s between %s and %s. %s",
			s.currency.Amount(total), category, from, to, advice)
		return reply, nil
	}

	if !includeContext {
		var err error
		txns, err = s.txns.ListTransactions(ctx, owner, storage.TransactionFilter{Limit: chatHistoryLimit})
		if err != nil {
			return ChatReply{}, fmt.Errorf("list transactions: %w", err)
		}
		reply.From, reply.To = core.Date{}, core.Date{}
	}

	analysis := s.analyze(ctx, owner, txns)
	top := "none"
	if len(analysis.TopCategories) > 0 {
		top = joinCategories(analysis.TopCategories)
	}
	reply.Analysis = &analysis
	reply.Reply = fmt.Sprintf("%s\n\nSuggestions: %s\n\nTop categories: %s. Suggested monthly saving goal: %s",
		analysis.SummaryText, analysis.CutSuggestions, top, s.currency.Whole(analysis.SavingGoal))
	return reply, nil
}

func (s *ChatService) analyze(ctx context.Context, owner string, txns []core.Transaction) core.Analysis {
	if len(txns) > 0 {
		actx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		analysis, err := s.analyzer.Analyze(actx, txns)
		if err == nil {
			return analysis
		}
		if !errors.Is(err, ai.ErrDisabled) {
			s.logger.WarnContext(ctx, "AI analysis unavailable, using quick analysis",
				log.FieldOwner, owner, log.FieldError, err)
		}
	}
	return ai.QuickAnalysis(txns, s.currency)
}
