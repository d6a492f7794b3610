package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/crucial707/spend-ledger/internal/notify"
	"github.com/crucial707/spend-ledger/internal/repo"
)

func TestUserHandler_CreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("bob@example.com", sqlmock.AnyArg(), 1, false).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(8, "bob@example.com", "h", 1, false, true, testNow))

	h := &UserHandler{Repo: repo.NewUserRepo(db)}
	body, _ := json.Marshal(map[string]any{"email": "bob@example.com", "password": "password123"})
	rr := httptest.NewRecorder()
	h.CreateUser(rr, requestWithChiURLParams("POST", "/users", body, nil))

	if rr.Code != http.StatusCreated {
		t.Errorf("CreateUser status: got %d, want 201", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_CreateUser_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(uniqueViolation("users_email_key"))

	h := &UserHandler{Repo: repo.NewUserRepo(db)}
	body, _ := json.Marshal(map[string]any{"email": "bob@example.com", "password": "password123"})
	rr := httptest.NewRecorder()
	h.CreateUser(rr, requestWithChiURLParams("POST", "/users", body, nil))

	if rr.Code != http.StatusConflict {
		t.Errorf("CreateUser status: got %d, want 409", rr.Code)
	}
}

func TestUserHandler_ListUsers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM users WHERE company_id = \$1 ORDER BY id`).
		WithArgs(1, 10, 0).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "admin@example.com", "h", 1, true, true, testNow))

	h := &UserHandler{Repo: repo.NewUserRepo(db)}
	rr := httptest.NewRecorder()
	h.ListUsers(rr, requestWithChiURLParams("GET", "/users", nil, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("ListUsers status: got %d, want 200", rr.Code)
	}
	var out struct {
		Items []struct {
			Email string `json:"email"`
		} `json:"items"`
		Total int `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Total != 1 || len(out.Items) != 1 || out.Items[0].Email != "admin@example.com" {
		t.Errorf("unexpected page: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_DeactivateUser_InvalidID(t *testing.T) {
	h := &UserHandler{}
	rr := httptest.NewRecorder()
	h.DeactivateUser(rr, requestWithChiURLParams("DELETE", "/users/abc", nil, map[string]string{"id": "abc"}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("DeactivateUser status: got %d, want 400", rr.Code)
	}
}

func TestUserHandler_DeactivateUser_Self(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := &UserHandler{Repo: repo.NewUserRepo(db)}
	rr := httptest.NewRecorder()
	h.DeactivateUser(rr, requestWithChiURLParams("DELETE", "/users/7", nil, map[string]string{"id": "7"}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("DeactivateUser status: got %d, want 400", rr.Code)
	}
}

type fakeNotifier struct {
	invites []notify.Invitation
	err     error
}

func (f *fakeNotifier) UserInvited(_ context.Context, inv notify.Invitation) error {
	f.invites = append(f.invites, inv)
	return f.err
}

func TestUserHandler_CreateUser_SendsInvitation(t *testing.T) {
	cases := []struct {
		name    string
		sendErr error
	}{
		{"delivered", nil},
		{"delivery failure does not fail the request", errors.New("smtp down")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()

			mock.ExpectQuery(`INSERT INTO users`).
				WithArgs("bob@example.com", sqlmock.AnyArg(), 1, false).
				WillReturnRows(sqlmock.NewRows(userCols).AddRow(8, "bob@example.com", "h", 1, false, true, testNow))
			mock.ExpectQuery(`FROM companies WHERE id = \$1`).
				WithArgs(1).
				WillReturnRows(sqlmock.NewRows([]string{"id", "name", "address", "website", "logo", "created_at"}).
					AddRow(1, "Acme", "", "", nil, testNow))

			n := &fakeNotifier{err: tc.sendErr}
			h := &UserHandler{Repo: repo.NewUserRepo(db), Companies: repo.NewCompanyRepo(db), Notifier: n}
			body, _ := json.Marshal(map[string]any{"email": "bob@example.com", "password": "password123"})
			rr := httptest.NewRecorder()
			h.CreateUser(rr, requestWithChiURLParams("POST", "/users", body, nil))

			if rr.Code != http.StatusCreated {
				t.Fatalf("CreateUser status: got %d, want 201", rr.Code)
			}
			if len(n.invites) != 1 || n.invites[0] != (notify.Invitation{Email: "bob@example.com", CompanyName: "Acme"}) {
				t.Errorf("unexpected invitations: %+v", n.invites)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("expectations: %v", err)
			}
		})
	}
}

func TestUserHandler_CreateUser_DuplicateSendsNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(uniqueViolation("users_email_key"))

	n := &fakeNotifier{}
	h := &UserHandler{Repo: repo.NewUserRepo(db), Notifier: n}
	body, _ := json.Marshal(map[string]any{"email": "bob@example.com", "password": "password123"})
	rr := httptest.NewRecorder()
	h.CreateUser(rr, requestWithChiURLParams("POST", "/users", body, nil))

	if rr.Code != http.StatusConflict || len(n.invites) != 0 {
		t.Errorf("got status %d with %d invitations", rr.Code, len(n.invites))
	}
}
