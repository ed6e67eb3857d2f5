package http

import (
	"net/http"

	"fintrack/internal/log"
)

type chatRequest struct {
	Message        string `json:"message"`
	IncludeContext *bool  `json:"includeContext"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err, log.OpAnalyze)
		return
	}
	includeContext := req.IncludeContext == nil || *req.IncludeContext

	reply, err := s.svc.Chat.Query(r.Context(), OwnerFromContext(r.Context()), req.Message, includeContext)
	if err != nil {
		s.writeError(w, r, err, log.OpAnalyze)
		return
	}
	writeJSON(w, http.StatusOK, newChatResponse(reply))
}
