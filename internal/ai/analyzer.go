// Package ai wraps the external text service that turns a list of
// transactions into a spending narrative.
package ai

//go:generate mockgen -source=analyzer.go -destination=analyzer_mock.go -package=ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"fintrack/internal/core"
)

// ErrDisabled is returned by Disabled for every call.
var ErrDisabled = errors.New("ai analysis not configured")

// ErrMalformedResponse wraps every parse failure of a service reply.
var ErrMalformedResponse = errors.New("malformed ai response")

// Analyzer produces an analysis or an error; callers treat any error as
// "service unavailable".
type Analyzer interface {
	Analyze(ctx context.Context, txns []core.Transaction) (core.Analysis, error)
}

// Disabled is the Analyzer used when no service is configured.
type Disabled struct{}

func (Disabled) Analyze(context.Context, []core.Transaction) (core.Analysis, error) {
	return core.Analysis{}, ErrDisabled
}

type analysisPayload struct {
	SummaryText    string   `json:"summaryText"`
	TopCategories  []string `json:"topCategories"`
	CutSuggestions string   `json:"cutSuggestions"`
	SavingGoal     *float64 `json:"savingGoal"`
}

var fencePattern = regexp.MustCompile("(?i)```(json)?")

// ParseAnalysis decodes a service reply. Markdown code fences are stripped.
// Empty text, unknown categories or a negative goal are rejected.
func ParseAnalysis(raw string) (core.Analysis, error) {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return core.Analysis{}, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var p analysisPayload
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&p); err != nil {
		return core.Analysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := core.Analysis{
		SummaryText:    strings.TrimSpace(p.SummaryText),
		CutSuggestions: strings.TrimSpace(p.CutSuggestions),
		TopCategories:  make([]core.Category, 0, len(p.TopCategories)),
	}
	if out.SummaryText == "" {
		return core.Analysis{}, fmt.Errorf("%w: missing summaryText", ErrMalformedResponse)
	}
	for _, c := range p.TopCategories {
		cat, err := core.ParseCategory(c)
		if err != nil {
			return core.Analysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		out.TopCategories = append(out.TopCategories, cat)
	}
	if p.SavingGoal != nil {
		goal, err := core.MoneyFromFloat(*p.SavingGoal)
		if err != nil || goal.IsNegative() {
			return core.Analysis{}, fmt.Errorf("%w: savingGoal %v", ErrMalformedResponse, *p.SavingGoal)
		}
		out.SavingGoal = goal
	}
	return out, nil
}
