package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/repo"
)

// CategoryHandler serves the category store.
type CategoryHandler struct {
	Repo *repo.CategoryRepo
}

// ==========================
// Create Category
// ==========================
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name         string           `json:"name" validate:"required,max=255"`
		Description  string           `json:"description" validate:"max=1000"`
		ExpenseLimit *decimal.Decimal `json:"expense_limit"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	cat, err := h.Repo.Create(r.Context(), scope(r), input.Name, input.Description, input.ExpenseLimit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

// ==========================
// List Categories
// ==========================

// ListCategories returns active categories; ?include_inactive=true adds deactivated ones.
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	cats, err := h.Repo.List(r.Context(), scope(r), includeInactive)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// ==========================
// Get Category
// ==========================
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cat, err := h.Repo.Get(r.Context(), scope(r), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// ==========================
// Update Category
// ==========================

// UpdateCategory applies a partial update. "expense_limit": null removes the limit; an
// absent expense_limit keeps it.
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input struct {
		Name         *string         `json:"name" validate:"omitempty,max=255"`
		Description  *string         `json:"description" validate:"omitempty,max=1000"`
		ExpenseLimit json.RawMessage `json:"expense_limit"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	patch := models.CategoryPatch{Name: input.Name, Description: input.Description}
	switch {
	case input.ExpenseLimit == nil:
	case bytes.Equal(bytes.TrimSpace(input.ExpenseLimit), []byte("null")):
		patch.ClearLimit = true
	default:
		var limit decimal.Decimal
		if err := json.Unmarshal(input.ExpenseLimit, &limit); err != nil {
			JSONValidationError(w, "validation failed", map[string]string{"expense_limit": "must be a number"})
			return
		}
		patch.ExpenseLimit = &limit
	}

	cat, err := h.Repo.Update(r.Context(), scope(r), id, patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// ==========================
// Delete Category (soft)
// ==========================
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cat, err := h.Repo.Deactivate(r.Context(), scope(r), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}
