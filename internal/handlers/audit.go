package handlers

import (
	"net/http"
	"strings"

	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/repo"
)

// AuditHandler serves audit log endpoints.
type AuditHandler struct {
	Repo *repo.AuditRepo
}

// ListAudit returns audit records newest first. Query: entity_type, action, user_id,
// start_date, end_date, search, page, page_size.
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := dateRange(r, false)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	userID, err := queryInt(r, "user_id", 0)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	page, size, err := pageParams(r)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	out, err := h.Repo.Query(r.Context(), scope(r), models.AuditFilter{
		EntityType: strings.TrimSpace(q.Get("entity_type")),
		Action:     strings.TrimSpace(q.Get("action")),
		UserID:     userID,
		Range:      rng,
		Search:     q.Get("search"),
	}, page, size)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AuditHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.Repo.Get(r.Context(), scope(r), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *AuditHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.Repo.DistinctActions(r.Context(), scope(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *AuditHandler) ListEntityTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Repo.DistinctEntityTypes(r.Context(), scope(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}
