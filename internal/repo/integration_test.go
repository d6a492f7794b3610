//go:build integration

package repo

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/db"
	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) *sql.DB {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	conn, err := db.Connect(ctx, db.Options{
		Host: host, Port: port.Port(), Name: "testdb", User: "test", Password: "test",
		MaxOpenConns: 20,
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	version, err := db.Migrate(conn)
	require.NoError(t, err)
	require.EqualValues(t, 1, version)
	again, err := db.Migrate(conn)
	require.NoError(t, err)
	require.Equal(t, version, again)
	return conn
}

type stores struct {
	companies  *CompanyRepo
	users      *UserRepo
	categories *CategoryRepo
	expenses   *ExpenseRepo
	reports    *ReportRepo
	audit      *AuditRepo
	apiKeys    *ApiKeyRepo
}

func newStores(conn *sql.DB) stores {
	audit := NewAuditRepo(conn)
	return stores{
		companies:  NewCompanyRepo(conn),
		users:      NewUserRepo(conn),
		categories: NewCategoryRepo(conn, audit),
		expenses:   NewExpenseRepo(conn, audit),
		reports:    NewReportRepo(conn, nil),
		audit:      audit,
		apiKeys:    NewApiKeyRepo(conn),
	}
}

func register(t *testing.T, ctx context.Context, s stores, name string) tenant.Scope {
	t.Helper()
	company, admin, err := s.companies.Register(ctx, CompanyInput{Name: name}, fmt.Sprintf("admin@%s.test", name), "password123")
	require.NoError(t, err)
	return tenant.Scope{CompanyID: company.ID, UserID: admin.ID, IsAdmin: true}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestIntegration_ExpenseLimits(t *testing.T) {
	ctx := context.Background()
	s := newStores(setupPostgresContainer(t, ctx))
	acme := register(t, ctx, s, "acme")
	globex := register(t, ctx, s, "globex")

	limit := dec("1000")
	travel, err := s.categories.Create(ctx, acme, "Travel", "", &limit)
	require.NoError(t, err)

	march := func(day int) models.Date { return models.NewDate(2024, time.March, day) }

	t.Run("limit is enforced", func(t *testing.T) {
		_, err := s.expenses.Create(ctx, acme, models.NewExpense{CategoryID: travel.ID, Amount: dec("600"), DateIncurred: march(1)})
		require.NoError(t, err)

		_, err = s.expenses.Create(ctx, acme, models.NewExpense{CategoryID: travel.ID, Amount: dec("500"), DateIncurred: march(2)})
		var le *apperr.LimitExceededError
		require.ErrorAs(t, err, &le)
		assert.True(t, le.Spent.Equal(dec("600")))

		_, err = s.expenses.Create(ctx, acme, models.NewExpense{CategoryID: travel.ID, Amount: dec("400"), DateIncurred: march(3)})
		require.NoError(t, err, "reaching the limit exactly is allowed")
	})

	t.Run("limit cannot drop below spent", func(t *testing.T) {
		lower := dec("900")
		_, err := s.categories.Update(ctx, acme, travel.ID, models.CategoryPatch{ExpenseLimit: &lower})
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("other tenants see nothing", func(t *testing.T) {
		_, err := s.categories.Get(ctx, globex, travel.ID)
		assert.True(t, apperr.IsNotFound(err))
		_, err = s.expenses.Create(ctx, globex, models.NewExpense{CategoryID: travel.ID, Amount: dec("1"), DateIncurred: march(4)})
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("concurrent creates never overshoot", func(t *testing.T) {
		mealsLimit := dec("500")
		cat, err := s.categories.Create(ctx, acme, "Meals", "", &mealsLimit)
		require.NoError(t, err)

		var (
			wg sync.WaitGroup
			mu sync.Mutex
			ok int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.expenses.Create(ctx, acme, models.NewExpense{CategoryID: cat.ID, Amount: dec("100"), DateIncurred: march(5)})
				if err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				} else {
					assert.True(t, apperr.IsLimitExceeded(err), "unexpected error %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 5, ok)
	})

	t.Run("deactivated categories reject expenses", func(t *testing.T) {
		misc, err := s.categories.Create(ctx, acme, "Misc", "", nil)
		require.NoError(t, err)
		_, err = s.categories.Deactivate(ctx, acme, misc.ID)
		require.NoError(t, err)

		_, err = s.expenses.Create(ctx, acme, models.NewExpense{CategoryID: misc.ID, Amount: dec("1"), DateIncurred: march(6)})
		assert.True(t, apperr.IsNotFound(err))

		_, err = s.categories.Create(ctx, acme, "misc", "", nil)
		assert.NoError(t, err, "a deactivated name can be reused")
	})
}

func TestIntegration_ReportsAndAudit(t *testing.T) {
	ctx := context.Background()
	s := newStores(setupPostgresContainer(t, ctx))
	acme := register(t, ctx, s, "acme")

	food, err := s.categories.Create(ctx, acme, "Food", "", nil)
	require.NoError(t, err)
	travel, err := s.categories.Create(ctx, acme, "Travel", "", nil)
	require.NoError(t, err)

	for _, e := range []models.NewExpense{
		{CategoryID: food.ID, Amount: dec("12.50"), DateIncurred: models.NewDate(2024, time.January, 10)},
		{CategoryID: food.ID, Amount: dec("7.50"), DateIncurred: models.NewDate(2024, time.March, 2)},
		{CategoryID: travel.ID, Amount: dec("300"), DateIncurred: models.NewDate(2024, time.March, 20)},
	} {
		_, err := s.expenses.Create(ctx, acme, e)
		require.NoError(t, err)
	}

	top, err := s.reports.TopCategories(ctx, acme, models.DateRange{}, DefaultTopCategories)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Travel", top[0].Name)
	assert.True(t, top[1].TotalAmount.Equal(dec("20")))

	months, err := s.reports.MonthlySummary(ctx, acme, 2024)
	require.NoError(t, err)
	require.Len(t, months, 12)
	assert.Equal(t, 2, months[2].Count)
	assert.True(t, months[2].TotalAmount.Equal(dec("307.5")))
	assert.True(t, months[1].TotalAmount.IsZero())

	from, to := models.NewDate(2024, time.March, 1), models.NewDate(2024, time.March, 31)
	byCat, err := s.reports.ExpensesByCategory(ctx, acme, food.ID, models.DateRange{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, byCat, 1)

	page, err := s.audit.Query(ctx, acme, models.AuditFilter{EntityType: models.EntityExpense}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, "admin@acme.test", page.Items[0].UserEmail)

	_, err = s.categories.Create(ctx, acme, "50% off", "", nil)
	require.NoError(t, err)
	literal, err := s.audit.Query(ctx, acme, models.AuditFilter{Search: "50%"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, literal.Total)
	none, err := s.audit.Query(ctx, acme, models.AuditFilter{Search: "F_od"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, none.Total)

	// The audit log is append-only.
	_, err = s.audit.db.ExecContext(ctx, `DELETE FROM audit_records`)
	assert.Error(t, err)
}

func TestIntegration_APIKeys(t *testing.T) {
	ctx := context.Background()
	s := newStores(setupPostgresContainer(t, ctx))
	acme := register(t, ctx, s, "acme")

	key, plain, err := s.apiKeys.Create(ctx, acme, "reporting")
	require.NoError(t, err)

	scope, err := s.apiKeys.Resolve(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, acme.CompanyID, scope.CompanyID)
	assert.Equal(t, key.ID, scope.APIKeyID)

	require.NoError(t, s.apiKeys.Deactivate(ctx, acme, key.ID))
	_, err = s.apiKeys.Resolve(ctx, plain)
	assert.True(t, apperr.IsNotFound(err))
}
