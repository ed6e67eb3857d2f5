package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

type messageResponse struct {
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type transactionResponse struct {
	ID          string               `json:"id"`
	Date        core.Date            `json:"date"`
	Description string               `json:"description"`
	Amount      core.Money           `json:"amount"`
	Type        core.TransactionType `json:"type"`
	Category    core.Category        `json:"category"`
	CreatedAt   time.Time            `json:"createdAt"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Date:        t.Date,
		Description: t.Description,
		Amount:      t.Amount,
		Type:        t.Kind(),
		Category:    t.Category,
		CreatedAt:   t.CreatedAt,
	}
}

type conflictResponse struct {
	Message   string              `json:"message"`
	Duplicate transactionResponse `json:"duplicate"`
}

type uploadResponse struct {
	Message        string `json:"message"`
	InsertedCount  int    `json:"insertedCount"`
	DuplicateCount int    `json:"duplicateCount"`
	InvalidCount   int    `json:"invalidCount"`
	FailedCount    int    `json:"failedCount"`
}

type budgetResponse struct {
	Month       int                 `json:"month"`
	Year        int                 `json:"year"`
	Total       *core.Money         `json:"total"`
	PerCategory core.CategoryLimits `json:"perCategory"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func newBudgetResponse(b *core.Budget) *budgetResponse {
	if b == nil {
		return nil
	}
	per := b.PerCategory
	if per == nil {
		per = core.CategoryLimits{}
	}
	return &budgetResponse{
		Month:       b.Month,
		Year:        b.Year,
		Total:       b.Total,
		PerCategory: per,
		UpdatedAt:   b.UpdatedAt,
	}
}

type budgetStatusResponse struct {
	Month             int                           `json:"month"`
	Year              int                           `json:"year"`
	Budget            *budgetResponse               `json:"budget"`
	TotalSpent        core.Money                    `json:"totalSpent"`
	ByCategory        map[core.Category]core.Money  `json:"byCategory"`
	TotalStatus       core.Status                   `json:"totalStatus"`
	PerCategoryStatus map[core.Category]core.Status `json:"perCategoryStatus"`
}

type summaryResponse struct {
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	SummaryText    string          `json:"summaryText"`
	TopCategories  []core.Category `json:"topCategories"`
	CutSuggestions string          `json:"cutSuggestions"`
	SavingGoal     core.Money      `json:"savingGoal"`
	GoalSetByUser  bool            `json:"goalSetByUser"`
	Source         string          `json:"source"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func newSummaryResponse(s core.MonthlySummary) summaryResponse {
	top := s.TopCategories
	if top == nil {
		top = []core.Category{}
	}
	return summaryResponse{
		Month:          s.Month,
		Year:           s.Year,
		SummaryText:    s.SummaryText,
		TopCategories:  top,
		CutSuggestions: s.CutSuggestions,
		SavingGoal:     s.SavingGoal,
		GoalSetByUser:  s.GoalSetByUser,
		Source:         s.Source,
		UpdatedAt:      s.UpdatedAt,
	}
}

type goalResponse struct {
	Month      int        `json:"month"`
	Year       int        `json:"year"`
	SavingGoal core.Money `json:"savingGoal"`
}

type chatResponse struct {
	Reply    string        `json:"reply"`
	Category core.Category `json:"category,omitempty"`
	From     *core.Date    `json:"from,omitempty"`
	To       *core.Date    `json:"to,omitempty"`
}

func newChatResponse(r services.ChatReply) chatResponse {
	out := chatResponse{Reply: r.Reply, Category: r.Category}
	if !r.From.IsZero() {
		from, to := r.From, r.To
		out.From, out.To = &from, &to
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes. Validation problems are
// reported to the caller; anything else is logged and hidden behind a
// generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: verr.Error(), Field: verr.Field})
		return
	}

	ctx := r.Context()
	log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err, operation,
		log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
	writeJSON(w, http.StatusInternalServerError, messageResponse{
		Message:   "Server error",
		RequestID: trace.GetRequestID(ctx),
	})
}
