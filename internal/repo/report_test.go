package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/cache"
	"github.com/crucial707/spend-ledger/internal/models"
)

var totalCols = []string{"id", "name", "total"}

func TestReportRepo_TopCategories(t *testing.T) {
	db, mock := newMock(t)
	r := NewReportRepo(db, nil)

	mock.ExpectQuery(`GROUP BY c.id, c.name ORDER BY total DESC, c.id ASC LIMIT \$2`).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows(totalCols).AddRow(4, "Food", "5000.00"))

	totals, err := r.TopCategories(context.Background(), testScope, models.DateRange{}, 1)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "Food", totals[0].Name)
	assert.True(t, totals[0].TotalAmount.Equal(decimal.NewFromInt(5000)))
}

func TestReportRepo_TopCategories_InvalidLimit(t *testing.T) {
	db, _ := newMock(t)
	r := NewReportRepo(db, nil)

	_, err := r.TopCategories(context.Background(), testScope, models.DateRange{}, 0)
	assert.True(t, apperr.IsValidation(err))
}

func TestReportRepo_ExpensesByCategory(t *testing.T) {
	db, mock := newMock(t)
	r := NewReportRepo(db, nil)
	from := models.NewDate(2024, time.January, 1)
	to := models.NewDate(2024, time.December, 31)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM categories WHERE id = \$1 AND company_id = \$2\)`).
		WithArgs(10, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`WHERE e.company_id = \$1 AND e.category_id = \$2 AND e.date_incurred >= \$3 AND e.date_incurred <= \$4`).
		WithArgs(1, 10, from, to).
		WillReturnRows(expenseRow(100, "Lunch", "12.50", 10, "Food"))

	out, err := r.ExpensesByCategory(context.Background(), testScope, 10, models.DateRange{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Amount.Equal(decimal.RequireFromString("12.5")))
}

func TestReportRepo_ExpensesByCategory_OtherTenant(t *testing.T) {
	db, mock := newMock(t)
	r := NewReportRepo(db, nil)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(99, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := r.ExpensesByCategory(context.Background(), testScope, 99, models.DateRange{})
	assert.True(t, apperr.IsNotFound(err))
}

func TestReportRepo_MonthlySummary_ZeroFills(t *testing.T) {
	db, mock := newMock(t)
	r := NewReportRepo(db, nil)

	mock.ExpectQuery(`EXTRACT\(MONTH FROM date_incurred\)`).
		WithArgs(1, models.NewDate(2024, time.January, 1), models.NewDate(2024, time.December, 31)).
		WillReturnRows(sqlmock.NewRows([]string{"month", "sum", "count"}).
			AddRow(2, "100.00", 2).
			AddRow(11, "40.00", 1))

	months, err := r.MonthlySummary(context.Background(), testScope, 2024)
	require.NoError(t, err)
	require.Len(t, months, 12)
	assert.Equal(t, 1, months[0].Month)
	assert.True(t, months[0].TotalAmount.IsZero())
	assert.Equal(t, 2, months[1].Count)
	assert.True(t, months[10].TotalAmount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 12, months[11].Month)
}

func TestReportRepo_TopCategoriesHistory_Cached(t *testing.T) {
	db, mock := newMock(t)
	r := NewReportRepo(db, cache.New[string, []models.CategoryTotal](time.Minute, 100))
	r.Now = func() time.Time { return testNow }

	// March 2024: the first call hits the database, the second is served from cache.
	mock.ExpectQuery(`LIMIT \$4`).
		WithArgs(1, models.NewDate(2024, time.March, 1), models.NewDate(2024, time.March, 31), HistoryTopCategories).
		WillReturnRows(sqlmock.NewRows(totalCols).
			AddRow(2, "Travel", "900.00").
			AddRow(3, "Food", "900.00").
			AddRow(1, "Office", "10.00"))

	first, err := r.TopCategoriesHistory(context.Background(), testScope, models.PeriodMonth)
	require.NoError(t, err)
	second, err := r.TopCategoriesHistory(context.Background(), testScope, models.PeriodMonth)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, second, 3)
	assert.Equal(t, 2, second[0].CategoryID)
}

func TestReportRepo_InvalidateCompany(t *testing.T) {
	db, mock := newMock(t)
	history := cache.New[string, []models.CategoryTotal](time.Minute, 100)
	history.Set("2:month", []models.CategoryTotal{{CategoryID: 9}})
	history.Set("12:month", []models.CategoryTotal{{CategoryID: 8}})
	r := NewReportRepo(db, history)
	r.Now = func() time.Time { return testNow }

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`LIMIT \$4`).
			WithArgs(1, models.NewDate(2024, time.March, 1), models.NewDate(2024, time.March, 31), HistoryTopCategories).
			WillReturnRows(sqlmock.NewRows(totalCols).AddRow(2, "Travel", "900.00"))
	}

	_, err := r.TopCategoriesHistory(context.Background(), testScope, models.PeriodMonth)
	require.NoError(t, err)
	r.InvalidateCompany(testScope.CompanyID)
	_, err = r.TopCategoriesHistory(context.Background(), testScope, models.PeriodMonth)
	require.NoError(t, err)

	// other companies keep their entries
	_, ok := history.Get("2:month")
	assert.True(t, ok)
	_, ok = history.Get("12:month")
	assert.True(t, ok)
}

func TestReportRepo_TopCategoriesHistory_All(t *testing.T) {
	db, mock := newMock(t)
	r := NewReportRepo(db, nil)

	mock.ExpectQuery(`WHERE e.company_id = \$1 GROUP BY`).
		WithArgs(1, HistoryTopCategories).
		WillReturnRows(sqlmock.NewRows(totalCols))

	totals, err := r.TopCategoriesHistory(context.Background(), testScope, models.PeriodAll)
	require.NoError(t, err)
	assert.Empty(t, totals)
}
