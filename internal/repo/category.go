package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/db"
	"github.com/crucial707/spend-ledger/internal/metrics"
	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

const categoryColumns = `id, name, description, expense_limit, is_active, company_id, created_at`

// ========================
// REPOSITORY STRUCT
// ========================

// CategoryRepo is the category store. Every mutation runs in one transaction together
// with its audit record.
type CategoryRepo struct {
	DB    *sql.DB
	Audit *AuditRepo
	// Changed runs after a committed rename or deactivation. Optional.
	Changed func(companyID int)
}

func NewCategoryRepo(db *sql.DB, audit *AuditRepo) *CategoryRepo {
	return &CategoryRepo{DB: db, Audit: audit}
}

// ========================
// CREATE CATEGORY
// ========================

func (r *CategoryRepo) Create(ctx context.Context, scope tenant.Scope, name, description string, limit *decimal.Decimal) (models.Category, error) {
	name = strings.TrimSpace(name)
	if err := validateCategory(&name, limit); err != nil {
		return models.Category{}, err
	}

	var cat models.Category
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := ensureNameFree(ctx, tx, scope.CompanyID, name, 0); err != nil {
			return err
		}

		var lim decimal.NullDecimal
		if limit != nil {
			lim = decimal.NewNullDecimal(*limit)
		}
		row := tx.QueryRowContext(ctx,
			`INSERT INTO categories (name, description, expense_limit, company_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+categoryColumns,
			name, description, lim, scope.CompanyID)
		var err error
		if cat, err = scanCategory(row); err != nil {
			return apperr.FromPostgres("insert category", err)
		}

		_, err = r.Audit.Record(ctx, tx, scope, models.AuditEntry{
			Action:      models.ActionCreate,
			EntityType:  models.EntityCategory,
			EntityID:    cat.ID,
			Description: cat.Name,
			New:         cat.Snapshot(),
		})
		return err
	})
	if err != nil {
		return models.Category{}, err
	}

	metrics.IncAuditRecords(models.EntityCategory, models.ActionCreate)
	slog.DebugContext(ctx, "category created", "company_id", scope.CompanyID, "category_id", cat.ID)
	return cat, nil
}

// ========================
// GET CATEGORY
// ========================

// Get returns a category of the company, active or not.
func (r *CategoryRepo) Get(ctx context.Context, scope tenant.Scope, id int) (models.Category, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND company_id = $2`,
		id, scope.CompanyID)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return cat, apperr.NotFound("category", id)
	}
	if err != nil {
		return cat, fmt.Errorf("get category: %w", err)
	}
	return cat, nil
}

// ========================
// UPDATE CATEGORY
// ========================

// Update applies patch to an active category. Lowering the limit below what the category
// has already spent is rejected.
func (r *CategoryRepo) Update(ctx context.Context, scope tenant.Scope, id int, patch models.CategoryPatch) (models.Category, error) {
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	if err := validateCategoryPatch(patch); err != nil {
		return models.Category{}, err
	}

	var updated models.Category
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		before, err := lockCategory(ctx, tx, scope.CompanyID, id)
		if err != nil {
			return err
		}
		if !before.IsActive {
			return apperr.NotFound("category", id)
		}

		next := before
		if patch.Name != nil {
			next.Name = *patch.Name
		}
		if patch.Description != nil {
			next.Description = *patch.Description
		}
		switch {
		case patch.ClearLimit:
			next.ExpenseLimit = decimal.NullDecimal{}
		case patch.ExpenseLimit != nil:
			next.ExpenseLimit = decimal.NewNullDecimal(*patch.ExpenseLimit)
		}

		if !strings.EqualFold(next.Name, before.Name) {
			if err := ensureNameFree(ctx, tx, scope.CompanyID, next.Name, id); err != nil {
				return err
			}
		}
		if next.ExpenseLimit.Valid {
			spent, err := categorySpent(ctx, tx, scope.CompanyID, id, 0)
			if err != nil {
				return err
			}
			if spent.GreaterThan(next.ExpenseLimit.Decimal) {
				return apperr.ValidationFields("expense_limit is below the amount already spent",
					map[string]string{"expense_limit": fmt.Sprintf("must be >= %s", spent)})
			}
		}

		row := tx.QueryRowContext(ctx,
			`UPDATE categories
			 SET name = $1, description = $2, expense_limit = $3
			 WHERE id = $4 AND company_id = $5
			 RETURNING `+categoryColumns,
			next.Name, next.Description, next.ExpenseLimit, id, scope.CompanyID)
		if updated, err = scanCategory(row); err != nil {
			return apperr.FromPostgres("update category", err)
		}

		_, err = r.Audit.Record(ctx, tx, scope, models.AuditEntry{
			Action:      models.ActionUpdate,
			EntityType:  models.EntityCategory,
			EntityID:    id,
			Description: updated.Name,
			Previous:    before.Snapshot(),
			New:         updated.Snapshot(),
		})
		return err
	})
	if err != nil {
		return models.Category{}, err
	}

	if r.Changed != nil {
		r.Changed(scope.CompanyID)
	}
	metrics.IncAuditRecords(models.EntityCategory, models.ActionUpdate)
	return updated, nil
}

// ========================
// DEACTIVATE CATEGORY
// ========================

// Deactivate soft-deletes a category. Deactivating an inactive category changes nothing,
// records nothing and returns the current state.
func (r *CategoryRepo) Deactivate(ctx context.Context, scope tenant.Scope, id int) (models.Category, error) {
	var result models.Category
	changed := false
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		before, err := lockCategory(ctx, tx, scope.CompanyID, id)
		if err != nil {
			return err
		}
		if !before.IsActive {
			result = before
			return nil
		}

		row := tx.QueryRowContext(ctx,
			`UPDATE categories SET is_active = FALSE
			 WHERE id = $1 AND company_id = $2
			 RETURNING `+categoryColumns,
			id, scope.CompanyID)
		if result, err = scanCategory(row); err != nil {
			return apperr.FromPostgres("deactivate category", err)
		}

		_, err = r.Audit.Record(ctx, tx, scope, models.AuditEntry{
			Action:      models.ActionDelete,
			EntityType:  models.EntityCategory,
			EntityID:    id,
			Description: before.Name,
			Previous:    before.Snapshot(),
		})
		changed = err == nil
		return err
	})
	if err != nil {
		return models.Category{}, err
	}

	if changed {
		if r.Changed != nil {
			r.Changed(scope.CompanyID)
		}
		metrics.IncAuditRecords(models.EntityCategory, models.ActionDelete)
	}
	return result, nil
}

// ========================
// LIST CATEGORIES
// ========================

// List returns the company's categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context, scope tenant.Scope, includeInactive bool) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE company_id = $1`
	if !includeInactive {
		query += ` AND is_active`
	}
	query += ` ORDER BY LOWER(name), id`

	rows, err := r.DB.QueryContext(ctx, query, scope.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ========================
// HELPERS
// ========================

func validateCategory(name *string, limit *decimal.Decimal) error {
	fields := make(map[string]string)
	if *name == "" {
		fields["name"] = "required"
	}
	if limit != nil {
		validateLimit(fields, *limit)
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("validation failed", fields)
	}
	return nil
}

func validateCategoryPatch(p models.CategoryPatch) error {
	fields := make(map[string]string)
	if p.Name != nil && *p.Name == "" {
		fields["name"] = "must not be empty"
	}
	if p.ExpenseLimit != nil {
		validateLimit(fields, *p.ExpenseLimit)
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("validation failed", fields)
	}
	return nil
}

func validateLimit(fields map[string]string, limit decimal.Decimal) {
	switch {
	case limit.IsNegative():
		fields["expense_limit"] = "must not be negative"
	case limit.GreaterThanOrEqual(maxMoney):
		fields["expense_limit"] = tooLargeMessage
	}
}

// ensureNameFree fails with a ValidationError when another active category of the company
// already uses name (case-insensitive). The partial unique index backs this check up under
// concurrent inserts.
func ensureNameFree(ctx context.Context, q db.Queryer, companyID int, name string, exceptID int) error {
	var taken bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM categories
			WHERE company_id = $1 AND is_active AND LOWER(name) = LOWER($2) AND id <> $3
		)`,
		companyID, name, exceptID).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if taken {
		return apperr.ValidationFields("an active category with this name already exists",
			map[string]string{"name": "already in use"})
	}
	return nil
}

// lockCategory loads a category of the company and holds its row lock until the
// transaction ends. Concurrent expense writes against the same category queue here.
func lockCategory(ctx context.Context, q db.Queryer, companyID, id int) (models.Category, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND company_id = $2 FOR UPDATE`,
		id, companyID)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return cat, apperr.NotFound("category", id)
	}
	if err != nil {
		return cat, fmt.Errorf("lock category: %w", err)
	}
	return cat, nil
}

// categorySpent sums every expense of the category except exceptExpenseID.
func categorySpent(ctx context.Context, q db.Queryer, companyID, categoryID, exceptExpenseID int) (decimal.Decimal, error) {
	var spent decimal.Decimal
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses
		 WHERE company_id = $1 AND category_id = $2 AND id <> $3`,
		companyID, categoryID, exceptExpenseID).Scan(&spent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum category expenses: %w", err)
	}
	return spent, nil
}

func scanCategory(s scanner) (models.Category, error) {
	var c models.Category
	err := s.Scan(&c.ID, &c.Name, &c.Description, &c.ExpenseLimit, &c.IsActive, &c.CompanyID, &c.CreatedAt)
	return c, err
}
