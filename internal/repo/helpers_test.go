package repo

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/crucial707/spend-ledger/internal/tenant"
)

var (
	testScope = tenant.Scope{CompanyID: 1, UserID: 7, IsAdmin: true}
	testNow   = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	categoryCols = []string{"id", "name", "description", "expense_limit", "is_active", "company_id", "created_at"}
	expenseCols  = []string{"id", "description", "amount", "date_incurred", "category_id", "name", "user_id", "company_id", "created_at"}
	auditCols    = []string{"id", "action", "entity_type", "entity_id", "description", "previous_data", "new_data", "user_id", "user_email", "company_id", "created_at"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

// categoryRow builds a categories row; limit nil means unlimited.
func categoryRow(id int, name string, limit any, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(categoryCols).AddRow(id, name, "", limit, active, testScope.CompanyID, testNow)
}

func expectAudit(mock sqlmock.Sqlmock, action, entityType string, entityID int) {
	mock.ExpectQuery(`INSERT INTO audit_records`).
		WithArgs(action, entityType, entityID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), testScope.UserID, testScope.CompanyID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(900, testNow))
}
