package repo

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

var userCols = []string{"id", "email", "password_hash", "company_id", "is_admin", "is_active", "created_at"}

func TestUserRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users \(email, password_hash, company_id, is_admin\)`).
		WithArgs("alice@example.com", sqlmock.AnyArg(), 1, false).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(2, "alice@example.com", "hash", 1, false, true, testNow))

	repo := NewUserRepo(db)
	user, err := repo.Create(context.Background(), testScope, " Alice@Example.com", "s3cretpass", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID != 2 || user.Email != "alice@example.com" || user.IsAdmin {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Create_ShortPassword(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewUserRepo(db)
	_, err = repo.Create(context.Background(), testScope, "bob@example.com", "short", false)
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1 AND company_id = \$2`).
		WithArgs(999, 1).
		WillReturnRows(sqlmock.NewRows(userCols))

	repo := NewUserRepo(db)
	_, err = repo.GetByID(context.Background(), testScope, 999)
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	tests := []struct {
		name     string
		password string
		active   bool
		wantErr  bool
	}{
		{"valid", "correct horse", true, false},
		{"wrong password", "battery staple", true, true},
		{"inactive user", "correct horse", false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()

			mock.ExpectQuery(`FROM users WHERE email = \$1`).
				WithArgs("carol@example.com").
				WillReturnRows(sqlmock.NewRows(userCols).AddRow(3, "carol@example.com", string(hash), 1, false, tc.active, testNow))

			_, err = NewUserRepo(db).Authenticate(context.Background(), "carol@example.com", tc.password)
			if tc.wantErr && err != ErrInvalidCredentials {
				t.Errorf("expected ErrInvalidCredentials, got: %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Authenticate: %v", err)
			}
		})
	}
}

func TestUserRepo_Authenticate_UnknownEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err = NewUserRepo(db).Authenticate(context.Background(), "nobody@example.com", "whatever1")
	if err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got: %v", err)
	}
}

func TestUserRepo_Deactivate_Self(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	_, err = NewUserRepo(db).Deactivate(context.Background(), testScope, testScope.UserID)
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestUserRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE company_id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`ORDER BY id LIMIT \$2 OFFSET \$3`).
		WithArgs(1, 50, 0).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(7, "admin@example.com", "h", 1, true, true, testNow).
			AddRow(8, "bob@example.com", "h", 1, false, true, testNow))

	page, err := NewUserRepo(db).List(context.Background(), testScope, 1, 50)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Errorf("unexpected page: %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Authorize(t *testing.T) {
	cases := []struct {
		name      string
		rows      *sqlmock.Rows
		wantErr   bool
		wantAdmin bool
	}{
		{"active admin", sqlmock.NewRows([]string{"is_admin", "is_active"}).AddRow(true, true), false, true},
		{"demoted", sqlmock.NewRows([]string{"is_admin", "is_active"}).AddRow(false, true), false, false},
		{"deactivated", sqlmock.NewRows([]string{"is_admin", "is_active"}).AddRow(true, false), true, false},
		{"missing", sqlmock.NewRows([]string{"is_admin", "is_active"}), true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()

			mock.ExpectQuery(`SELECT is_admin, is_active FROM users WHERE id = \$1 AND company_id = \$2`).
				WithArgs(7, 1).
				WillReturnRows(tc.rows)

			scope, err := NewUserRepo(db).Authorize(context.Background(), tenant.Scope{CompanyID: 1, UserID: 7, IsAdmin: true})
			if tc.wantErr {
				if !apperr.IsNotFound(err) {
					t.Fatalf("expected not found, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if scope.UserID != 7 || scope.CompanyID != 1 || scope.IsAdmin != tc.wantAdmin {
				t.Errorf("unexpected scope: %+v", scope)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("expectations: %v", err)
			}
		})
	}
}
