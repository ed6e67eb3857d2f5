package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"fintrack/internal/core"
)

const (
	DefaultModel = "gemini-1.5-flash"

	// maxPromptTransactions caps how many of the most recent transactions are sent.
	maxPromptTransactions = 60
)

// contentGenerator is the slice of *genai.GenerativeModel that Gemini uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini calls the Gemini API.
type Gemini struct {
	client *genai.Client
	model  contentGenerator
	name   string
}

// NewGemini creates a client for apiKey. An empty model name selects DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrDisabled
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.2)

	return &Gemini{client: client, model: m, name: model}, nil
}

// New returns a Gemini analyzer when apiKey is set and Disabled otherwise.
// A client construction failure also yields Disabled.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (Analyzer, func() error) {
	if strings.TrimSpace(apiKey) == "" {
		logger.Info("AI analysis disabled, using deterministic summaries")
		return Disabled{}, func() error { return nil }
	}
	g, err := NewGemini(ctx, apiKey, model)
	if err != nil {
		logger.Warn("Failed to initialize Gemini client, using deterministic summaries", "error", err)
		return Disabled{}, func() error { return nil }
	}
	logger.Info("Initialized Gemini analyzer", "model", g.name)
	return g, g.Close
}

func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *Gemini) Analyze(ctx context.Context, txns []core.Transaction) (core.Analysis, error) {
	prompt, err := BuildPrompt(txns)
	if err != nil {
		return core.Analysis{}, err
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return core.Analysis{}, fmt.Errorf("error generating content with Gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return core.Analysis{}, fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return ParseAnalysis(sb.String())
}

type promptTransaction struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// BuildPrompt renders the instruction and the most recent transactions as JSON.
// txns are expected newest first.
func BuildPrompt(txns []core.Transaction) (string, error) {
	recent := txns[:min(len(txns), maxPromptTransactions)]
	rows := make([]promptTransaction, len(recent))
	for i, t := range recent {
		rows[i] = promptTransaction{
			Date:        t.Date.String(),
			Description: t.Description,
			Amount:      t.Amount.Float(),
			Category:    string(t.Category),
		}
	}
	body, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}

	return fmt.Sprintf(`Given the following JSON array of user transactions, output a JSON object with keys:
{"summaryText": string, "topCategories": [string], "cutSuggestions": string, "savingGoal": number}
Positive amounts are spending, negative amounts are income.
topCategories must only use: %s.
Transactions: %s
Respond ONLY with valid JSON (no extra text).`, categoryList(), body), nil
}

func categoryList() string {
	cats := core.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
