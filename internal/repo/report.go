package repo

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/cache"
	"github.com/crucial707/spend-ledger/internal/metrics"
	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

const (
	// DefaultTopCategories is the top_categories limit when the caller gives none.
	DefaultTopCategories = 5
	// HistoryTopCategories is the fixed size of the history report.
	HistoryTopCategories = 3
	maxTopCategories     = 100
)

// ReportRepo is the read-only reporting engine. Reports join categories regardless of
// their active flag so historical names stay visible.
type ReportRepo struct {
	DB *sql.DB
	// Now is the clock used to resolve report periods.
	Now func() time.Time
	// History caches top_categories_history results per company and period. Optional.
	History *cache.TTL[string, []models.CategoryTotal]
}

func NewReportRepo(db *sql.DB, history *cache.TTL[string, []models.CategoryTotal]) *ReportRepo {
	return &ReportRepo{DB: db, Now: time.Now, History: history}
}

// TopCategories sums expenses per category within rng and returns the limit largest,
// ties broken by category id.
func (r *ReportRepo) TopCategories(ctx context.Context, scope tenant.Scope, rng models.DateRange, limit int) ([]models.CategoryTotal, error) {
	if limit < 1 || limit > maxTopCategories {
		return nil, apperr.ValidationFields("invalid limit",
			map[string]string{"limit": fmt.Sprintf("must be between 1 and %d", maxTopCategories)})
	}
	if err := rng.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	var w where
	w.add("e.company_id = %[1]s", scope.CompanyID)
	w.dateRange("e.date_incurred", rng)
	query := `SELECT c.id, c.name, SUM(e.amount) AS total` + expenseFrom + w.String() +
		` GROUP BY c.id, c.name ORDER BY total DESC, c.id ASC LIMIT ` + w.next()
	args := append(w.args, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	defer rows.Close()

	totals := []models.CategoryTotal{}
	for rows.Next() {
		var t models.CategoryTotal
		if err := rows.Scan(&t.CategoryID, &t.Name, &t.TotalAmount); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ExpensesByCategory returns every expense of one category within rng. The category may
// be inactive but must belong to the company.
func (r *ReportRepo) ExpensesByCategory(ctx context.Context, scope tenant.Scope, categoryID int, rng models.DateRange) ([]models.Expense, error) {
	if err := rng.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND company_id = $2)`,
		categoryID, scope.CompanyID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check category: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound("category", categoryID)
	}

	var w where
	w.add("e.company_id = %[1]s", scope.CompanyID)
	w.add("e.category_id = %[1]s", categoryID)
	w.dateRange("e.date_incurred", rng)

	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+expenseColumns+expenseFrom+w.String()+` ORDER BY e.date_incurred DESC, e.id DESC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("expenses by category: %w", err)
	}
	defer rows.Close()

	out := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MonthlySummary returns twelve rows for year, one per month, zero-filled.
func (r *ReportRepo) MonthlySummary(ctx context.Context, scope tenant.Scope, year int) ([]models.MonthTotal, error) {
	if year < 1 || year > 9999 {
		return nil, apperr.ValidationFields("invalid year", map[string]string{"year": "must be between 1 and 9999"})
	}

	months := make([]models.MonthTotal, 12)
	for i := range months {
		months[i] = models.MonthTotal{Month: i + 1, TotalAmount: decimal.Zero}
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT EXTRACT(MONTH FROM date_incurred)::int AS month, SUM(amount), COUNT(*)
		 FROM expenses
		 WHERE company_id = $1 AND date_incurred >= $2 AND date_incurred <= $3
		 GROUP BY month ORDER BY month`,
		scope.CompanyID, models.NewDate(year, time.January, 1), models.NewDate(year, time.December, 31))
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.MonthTotal
		if err := rows.Scan(&m.Month, &m.TotalAmount, &m.Count); err != nil {
			return nil, err
		}
		if m.Month >= 1 && m.Month <= 12 {
			months[m.Month-1] = m
		}
	}
	return months, rows.Err()
}

// TopCategoriesHistory returns the three largest categories of the current calendar
// period. Results are served from History while fresh.
func (r *ReportRepo) TopCategoriesHistory(ctx context.Context, scope tenant.Scope, period models.Period) ([]models.CategoryTotal, error) {
	key := fmt.Sprintf("%d:%s", scope.CompanyID, period)
	if r.History != nil {
		if cached, ok := r.History.Get(key); ok {
			metrics.ObserveCacheLookup(true)
			return cached, nil
		}
		metrics.ObserveCacheLookup(false)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	totals, err := r.TopCategories(ctx, scope, period.Range(models.DateOf(now())), HistoryTopCategories)
	if err != nil {
		return nil, err
	}

	if r.History != nil {
		r.History.Set(key, totals)
		slog.DebugContext(ctx, "report cached", "company_id", scope.CompanyID, "period", string(period))
	}
	return totals, nil
}

// InvalidateCompany drops every cached history report of the company.
func (r *ReportRepo) InvalidateCompany(companyID int) {
	if r.History == nil {
		return
	}
	prefix := strconv.Itoa(companyID) + ":"
	r.History.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
}
