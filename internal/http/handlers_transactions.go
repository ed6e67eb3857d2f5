package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/importer"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type createTransactionRequest struct {
	Date          string      `json:"date"`
	Description   string      `json:"description"`
	Amount        json.Number `json:"amount"`
	Category      string      `json:"category"`
	Type          string      `json:"type"`
	DuplicateMode string      `json:"duplicateMode"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	policy, err := services.ParseDuplicatePolicy(req.DuplicateMode)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	rec := services.Record{
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount.String(),
		Category:    req.Category,
		Type:        req.Type,
	}
	txn, err := s.svc.Ingestion.AddTransaction(r.Context(), OwnerFromContext(r.Context()), rec, policy)
	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, conflictResponse{
			Message:   "Duplicate transaction detected",
			Duplicate: newTransactionResponse(conflict.Existing),
		})
		return
	}
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionResponse(*txn))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	txns, err := s.svc.Ingestion.ListTransactions(r.Context(), OwnerFromContext(r.Context()), filter)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}

	out := make([]transactionResponse, len(txns))
	for i, t := range txns {
		out[i] = newTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUploadTransactions imports a multipart "file" field (CSV or XLSX).
// A file with nothing new to insert answers 409 with the counts.
func (s *Server) handleUploadTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policy, err := services.ParseDuplicatePolicy(r.URL.Query().Get("mode"))
	if err != nil {
		s.writeError(w, r, err, log.OpImport)
		return
	}

	if r.ContentLength > s.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, messageResponse{Message: "File too large"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, messageResponse{Message: "File too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "No file uploaded"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "No file uploaded"})
		return
	}
	defer file.Close()

	rows, err := importer.Detect(header.Filename, header.Header.Get("Content-Type"), file).Rows()
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Unreadable upload", "filename", header.Filename, log.FieldError, err)
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error(), Field: "file"})
		return
	}

	res, err := s.svc.Ingestion.ImportBatch(ctx, OwnerFromContext(ctx), importer.Records(rows), policy)
	if err != nil {
		s.writeError(w, r, err, log.OpImport)
		return
	}

	body := uploadResponse{
		Message:        "File processed",
		InsertedCount:  res.Inserted,
		DuplicateCount: res.Duplicates,
		InvalidCount:   res.Invalid,
		FailedCount:    res.Failed,
	}
	if res.NothingToInsert() {
		body.Message = "No new transactions to insert (all were duplicates or invalid rows)."
		writeJSON(w, http.StatusConflict, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

