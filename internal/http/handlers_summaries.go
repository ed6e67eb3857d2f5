package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type monthlySummaryRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

type setGoalRequest struct {
	Month      int        `json:"month"`
	Year       int        `json:"year"`
	SavingGoal core.Money `json:"savingGoal"`
}

// handleMonthlySummary recomputes the summary; month and year default to the
// current month.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	var req monthlySummaryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err, log.OpSummarize)
		return
	}
	month, year := withDefaultPeriod(req.Month, req.Year, s.now())

	sum, err := s.svc.Summaries.MonthlySummary(r.Context(), OwnerFromContext(r.Context()), month, year)
	if err != nil {
		s.writeError(w, r, err, log.OpSummarize)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(sum))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	period, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, err, log.OpSetGoal)
		return
	}
	goal, err := s.svc.Summaries.SavingGoal(r.Context(), OwnerFromContext(r.Context()), period.Month, period.Year)
	if err != nil {
		s.writeError(w, r, err, log.OpSetGoal)
		return
	}
	writeJSON(w, http.StatusOK, goalResponse{Month: period.Month, Year: period.Year, SavingGoal: goal})
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req setGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err, log.OpSetGoal)
		return
	}
	month, year := withDefaultPeriod(req.Month, req.Year, s.now())

	if err := s.svc.Summaries.SetSavingGoal(r.Context(), OwnerFromContext(r.Context()), month, year, req.SavingGoal); err != nil {
		s.writeError(w, r, err, log.OpSetGoal)
		return
	}
	writeJSON(w, http.StatusOK, goalResponse{Month: month, Year: year, SavingGoal: req.SavingGoal})
}
