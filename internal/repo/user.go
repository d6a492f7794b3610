package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/db"
	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email, a wrong
// password or an inactive user alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

const userColumns = `id, email, password_hash, company_id, is_admin, is_active, created_at`

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB          *sql.DB
	MaxPageSize int
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, MaxPageSize: DefaultMaxPageSize}
}

// ==========================
// Create User
// ==========================

// Create adds a user to the scope's company.
func (r *UserRepo) Create(ctx context.Context, scope tenant.Scope, email, password string, isAdmin bool) (models.User, error) {
	return insertUser(ctx, r.DB, scope.CompanyID, email, password, isAdmin)
}

// ==========================
// Authenticate
// ==========================
func (r *UserRepo) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if !u.IsActive {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// ==========================
// Get By Email
// ==========================
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return u, &apperr.NotFoundError{Entity: "user"}
	}
	if err != nil {
		return u, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, scope tenant.Scope, id int) (models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND company_id = $2`, id, scope.CompanyID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperr.NotFound("user", id)
	}
	if err != nil {
		return u, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ==========================
// Authorize
// ==========================

// Authorize reloads the user behind a token scope. Missing and deactivated users are
// NotFound; the admin flag is taken from the row, not from the token.
func (r *UserRepo) Authorize(ctx context.Context, scope tenant.Scope) (tenant.Scope, error) {
	var isAdmin, isActive bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT is_admin, is_active FROM users WHERE id = $1 AND company_id = $2`,
		scope.UserID, scope.CompanyID).Scan(&isAdmin, &isActive)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !isActive) {
		return tenant.Scope{}, apperr.NotFound("user", scope.UserID)
	}
	if err != nil {
		return tenant.Scope{}, fmt.Errorf("authorize user: %w", err)
	}
	scope.IsAdmin = isAdmin
	return scope, nil
}

// ==========================
// Change Password
// ==========================

// ChangePassword replaces the caller's own password after checking the current one.
func (r *UserRepo) ChangePassword(ctx context.Context, scope tenant.Scope, current, next string) (models.User, error) {
	if len(next) < MinPasswordLength {
		return models.User{}, apperr.ValidationFields("validation failed", map[string]string{
			"password": fmt.Sprintf("must be at least %d characters", MinPasswordLength),
		})
	}
	u, err := r.GetByID(ctx, scope, scope.UserID)
	if err != nil {
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return models.User{}, apperr.ValidationFields("validation failed", map[string]string{
			"current_password": "is incorrect",
		})
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	row := r.DB.QueryRowContext(ctx,
		`UPDATE users SET password_hash = $1
		 WHERE id = $2 AND company_id = $3 AND is_active
		 RETURNING `+userColumns,
		string(hash), scope.UserID, scope.CompanyID)
	u, err = scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperr.NotFound("user", scope.UserID)
	}
	if err != nil {
		return u, fmt.Errorf("change password: %w", err)
	}
	return u, nil
}

// ==========================
// Deactivate User
// ==========================
func (r *UserRepo) Deactivate(ctx context.Context, scope tenant.Scope, id int) (models.User, error) {
	if id == scope.UserID {
		return models.User{}, apperr.Validation("you cannot deactivate your own account")
	}
	row := r.DB.QueryRowContext(ctx,
		`UPDATE users SET is_active = FALSE
		 WHERE id = $1 AND company_id = $2
		 RETURNING `+userColumns,
		id, scope.CompanyID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperr.NotFound("user", id)
	}
	if err != nil {
		return u, fmt.Errorf("deactivate user: %w", err)
	}
	return u, nil
}

// ==========================
// List Users
// ==========================
func (r *UserRepo) List(ctx context.Context, scope tenant.Scope, page, pageSize int) (models.Page[models.User], error) {
	size, offset, err := pageBounds(page, pageSize, r.MaxPageSize)
	if err != nil {
		return models.Page[models.User]{}, err
	}

	result := models.Page[models.User]{Items: []models.User{}, Page: page, PageSize: size}
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE company_id = $1`, scope.CompanyID).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE company_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		scope.CompanyID, size, offset)
	if err != nil {
		return result, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, u)
	}
	return result, rows.Err()
}

// ==========================
// Helpers
// ==========================

// MinPasswordLength is the shortest password accepted for new users.
const MinPasswordLength = 8

func insertUser(ctx context.Context, q db.Queryer, companyID int, email, password string, isAdmin bool) (models.User, error) {
	email = normalizeEmail(email)
	fields := make(map[string]string)
	if email == "" || !strings.Contains(email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if len(password) < MinPasswordLength {
		fields["password"] = fmt.Sprintf("must be at least %d characters", MinPasswordLength)
	}
	if len(fields) > 0 {
		return models.User{}, apperr.ValidationFields("validation failed", fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	row := q.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, company_id, is_admin)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		email, string(hash), companyID, isAdmin)
	u, err := scanUser(row)
	if err != nil {
		return u, apperr.FromPostgres("insert user", err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(s scanner) (models.User, error) {
	var u models.User
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CompanyID, &u.IsAdmin, &u.IsActive, &u.CreatedAt)
	return u, err
}
