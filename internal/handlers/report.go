package handlers

import (
	"net/http"
	"time"

	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/repo"
)

// ReportHandler serves the read-only reports.
type ReportHandler struct {
	Repo *repo.ReportRepo
	// Now resolves the default year of the monthly summary.
	Now func() time.Time
}

// TopCategories: start_date, end_date and limit (default 5), all optional.
func (h *ReportHandler) TopCategories(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, false)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	limit, err := queryInt(r, "limit", repo.DefaultTopCategories)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	totals, err := h.Repo.TopCategories(r.Context(), scope(r), rng, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// ByCategory requires category_id, start_date and end_date.
func (h *ReportHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryInt(r, "category_id", 0)
	if err != nil || categoryID <= 0 {
		JSONValidationError(w, "category_id is required", map[string]string{"category_id": "required"})
		return
	}
	rng, err := dateRange(r, true)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	out, err := h.Repo.ExpensesByCategory(r.Context(), scope(r), categoryID, rng)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// MonthlySummary: year defaults to the current one.
func (h *ReportHandler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	year, err := queryInt(r, "year", now().Year())
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	months, err := h.Repo.MonthlySummary(r.Context(), scope(r), year)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

// TopCategoriesHistory: period is month, quarter, year or all (default).
func (h *ReportHandler) TopCategoriesHistory(w http.ResponseWriter, r *http.Request) {
	period, err := models.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		JSONValidationError(w, err.Error(), map[string]string{"period": "must be one of month quarter year all"})
		return
	}

	totals, err := h.Repo.TopCategoriesHistory(r.Context(), scope(r), period)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
