package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/crucial707/spend-ledger/internal/apperr"
)

// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
const ErrMessageInternal = "internal server error"

// ErrorResponse is the body of every error response. Detail is a string or, for field
// validation and limit errors, an object.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Detail  any    `json:"detail"`
}

// JSONError sends a JSON error response. A nil detail repeats the message.
func JSONError(w http.ResponseWriter, status int, message string, detail any) {
	if detail == nil {
		detail = message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Status: status, Message: message, Detail: detail})
}

// JSONValidationError sends a 400 with field-level details when there are any.
func JSONValidationError(w http.ResponseWriter, message string, fields map[string]string) {
	var detail any
	if len(fields) > 0 {
		detail = fields
	}
	JSONError(w, http.StatusBadRequest, message, detail)
}

// WriteError maps a store error onto its HTTP status. Unknown errors are logged and
// answered with a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *apperr.ValidationError
		nferr *apperr.NotFoundError
		lerr  *apperr.LimitExceededError
		cerr  *apperr.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		JSONValidationError(w, verr.Message, verr.Fields)
	case errors.As(err, &nferr):
		JSONError(w, http.StatusNotFound, nferr.Error(), nil)
	case errors.As(err, &lerr):
		JSONError(w, http.StatusUnprocessableEntity, "category expense limit exceeded", map[string]any{
			"category_id":   lerr.CategoryID,
			"category_name": lerr.CategoryName,
			"limit":         lerr.Limit,
			"spent":         lerr.Spent,
			"requested":     lerr.Requested,
			"message":       lerr.Error(),
		})
	case errors.As(err, &cerr):
		JSONError(w, http.StatusConflict, cerr.Message, nil)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		JSONError(w, http.StatusInternalServerError, ErrMessageInternal, nil)
	}
}
