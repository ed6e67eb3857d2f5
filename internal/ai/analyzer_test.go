package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    core.Analysis
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"summaryText":"You spent a lot","topCategories":["food","Transport"],"cutSuggestions":"Cook at home","savingGoal":1500}`,
			want: core.Analysis{
				SummaryText:    "You spent a lot",
				TopCategories:  []core.Category{core.Food, core.Transport},
				CutSuggestions: "Cook at home",
				SavingGoal:     core.Units(1500),
			},
		},
		{
			name: "fenced",
			raw:  "```json\n{\"summaryText\":\"ok\",\"topCategories\":[],\"cutSuggestions\":\"\"}\n```",
			want: core.Analysis{SummaryText: "ok", TopCategories: []core.Category{}},
		},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "not json", raw: "Sure! Here is your summary.", wantErr: true},
		{name: "missing text", raw: `{"topCategories":["food"]}`, wantErr: true},
		{name: "unknown category", raw: `{"summaryText":"x","topCategories":["groceries"]}`, wantErr: true},
		{name: "negative goal", raw: `{"summaryText":"x","savingGoal":-5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnalysis(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewWithoutKeyIsDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, closeFn := New(context.Background(), "", "", logger)
	assert.IsType(t, Disabled{}, a)
	assert.NoError(t, closeFn())
}

func TestBuildPromptKeepsMostRecent(t *testing.T) {
	// newest first, as the stores list them
	txns := make([]core.Transaction, 0, 75)
	for i := 0; i < 75; i++ {
		txns = append(txns, core.Transaction{
			Date:        core.NewDate(2024, 3, 1),
			Description: fmt.Sprintf("txn-%02d", i),
			Amount:      core.Units(10),
			Category:    core.Food,
		})
	}

	prompt, err := BuildPrompt(txns)
	require.NoError(t, err)
	assert.Contains(t, prompt, "txn-00")
	assert.Contains(t, prompt, "txn-59")
	assert.NotContains(t, prompt, "txn-60")
	assert.NotContains(t, prompt, "txn-74")
	assert.Contains(t, prompt, "summaryText")
	assert.Contains(t, prompt, "subscriptions")
}

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(parts) != 1 {
		return nil, errors.New("expected a single prompt part")
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(f.reply)}},
		}},
	}, nil
}

func TestGeminiAnalyze(t *testing.T) {
	txns := []core.Transaction{{Date: core.NewDate(2024, 3, 2), Description: "Swiggy", Amount: core.Units(300), Category: core.Food}}

	t.Run("success", func(t *testing.T) {
		gen := &fakeGenerator{reply: "```json\n{\"summaryText\":\"Mostly food\",\"topCategories\":[\"food\"],\"cutSuggestions\":\"Order less\",\"savingGoal\":45}\n```"}
		g := &Gemini{model: gen, name: DefaultModel}

		got, err := g.Analyze(context.Background(), txns)
		require.NoError(t, err)
		assert.Equal(t, 1, gen.calls)
		assert.Equal(t, "Mostly food", got.SummaryText)
		assert.Equal(t, []core.Category{core.Food}, got.TopCategories)
		assert.Equal(t, core.Units(45), got.SavingGoal)
	})

	t.Run("transport error", func(t *testing.T) {
		g := &Gemini{model: &fakeGenerator{err: errors.New("quota exceeded")}}
		_, err := g.Analyze(context.Background(), txns)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "quota exceeded"))
	})

	t.Run("garbage reply", func(t *testing.T) {
		g := &Gemini{model: &fakeGenerator{reply: "I cannot help with that"}}
		_, err := g.Analyze(context.Background(), txns)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("close without client", func(t *testing.T) {
		assert.NoError(t, (&Gemini{}).Close())
	})
}
