package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/repo"
)

// ExpenseHandler serves the expense store.
type ExpenseHandler struct {
	Repo *repo.ExpenseRepo
}

// ==========================
// Create Expense
// ==========================
func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CategoryID   int             `json:"category_id" validate:"required,gt=0"`
		Description  string          `json:"description" validate:"max=1000"`
		Amount       decimal.Decimal `json:"amount"`
		DateIncurred models.Date     `json:"date_incurred"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	exp, err := h.Repo.Create(r.Context(), scope(r), models.NewExpense{
		CategoryID:   input.CategoryID,
		Description:  input.Description,
		Amount:       input.Amount,
		DateIncurred: input.DateIncurred,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

// ==========================
// List Expenses
// ==========================

// ListExpenses supports start_date, end_date, category_id, page and page_size.
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, false)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	categoryID, err := queryInt(r, "category_id", 0)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	page, size, err := pageParams(r)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	out, err := h.Repo.List(r.Context(), scope(r), models.ExpenseFilter{Range: rng, CategoryID: categoryID}, page, size)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ==========================
// Get Expense
// ==========================
func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	exp, err := h.Repo.Get(r.Context(), scope(r), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// ==========================
// Update Expense
// ==========================
func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input struct {
		CategoryID   *int             `json:"category_id" validate:"omitempty,gt=0"`
		Description  *string          `json:"description" validate:"omitempty,max=1000"`
		Amount       *decimal.Decimal `json:"amount"`
		DateIncurred *models.Date     `json:"date_incurred"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	exp, err := h.Repo.Update(r.Context(), scope(r), id, models.ExpensePatch{
		Description:  input.Description,
		Amount:       input.Amount,
		DateIncurred: input.DateIncurred,
		CategoryID:   input.CategoryID,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// ==========================
// Delete Expense
// ==========================
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Repo.Delete(r.Context(), scope(r), id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
