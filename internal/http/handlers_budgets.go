package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

var errPeriodRequired = errors.New("month and year are required")

type setBudgetRequest struct {
	Month       int                   `json:"month"`
	Year        int                   `json:"year"`
	Total       *core.Money           `json:"total"`
	PerCategory map[string]core.Money `json:"perCategory"`
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("month") == "" || query.Get("year") == "" {
		s.writeError(w, r, &services.ValidationError{Field: "period", Err: errPeriodRequired}, log.OpStatus)
		return
	}
	period, err := ParseMonthParams(query, s.now())
	if err != nil {
		s.writeError(w, r, err, log.OpStatus)
		return
	}

	st, err := s.svc.Budgets.Status(r.Context(), OwnerFromContext(r.Context()), period.Month, period.Year)
	if err != nil {
		s.writeError(w, r, err, log.OpStatus)
		return
	}
	writeJSON(w, http.StatusOK, budgetStatusResponse{
		Month:             st.Month,
		Year:              st.Year,
		Budget:            newBudgetResponse(st.Budget),
		TotalSpent:        st.TotalSpent,
		ByCategory:        st.ByCategory,
		TotalStatus:       st.TotalStatus,
		PerCategoryStatus: st.PerCategoryStatus,
	})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err, log.OpUpsert)
		return
	}
	b, err := s.svc.Budgets.SetBudget(r.Context(), OwnerFromContext(r.Context()), req.Month, req.Year, req.Total, req.PerCategory)
	if err != nil {
		s.writeError(w, r, err, log.OpUpsert)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetResponse(&b))
}
