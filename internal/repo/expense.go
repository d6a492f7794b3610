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

const expenseColumns = `e.id, e.description, e.amount, e.date_incurred, e.category_id, c.name, e.user_id, e.company_id, e.created_at`

const expenseFrom = ` FROM expenses e JOIN categories c ON c.id = e.category_id AND c.company_id = e.company_id`

// ========================
// REPOSITORY STRUCT
// ========================

// ExpenseRepo is the expense store. Writes lock the target category row so the limit
// check and the write are serialized per category.
type ExpenseRepo struct {
	DB          *sql.DB
	Audit       *AuditRepo
	MaxPageSize int
	// Changed runs after a committed write with the company id. Optional.
	Changed func(companyID int)
}

func NewExpenseRepo(db *sql.DB, audit *AuditRepo) *ExpenseRepo {
	return &ExpenseRepo{DB: db, Audit: audit, MaxPageSize: DefaultMaxPageSize}
}

// ========================
// CREATE EXPENSE
// ========================

func (r *ExpenseRepo) Create(ctx context.Context, scope tenant.Scope, in models.NewExpense) (models.Expense, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := validateExpense(in.CategoryID, in.Amount, in.DateIncurred); err != nil {
		return models.Expense{}, err
	}

	var exp models.Expense
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		cat, err := lockActiveCategory(ctx, tx, scope.CompanyID, in.CategoryID)
		if err != nil {
			return err
		}
		if err := checkLimit(ctx, tx, cat, 0, in.Amount); err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO expenses (description, amount, date_incurred, category_id, user_id, company_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at`,
			in.Description, in.Amount, in.DateIncurred, cat.ID, scope.UserID, scope.CompanyID,
		).Scan(&exp.ID, &exp.CreatedAt)
		if err != nil {
			return apperr.FromPostgres("insert expense", err)
		}
		exp.Description = in.Description
		exp.Amount = in.Amount
		exp.DateIncurred = in.DateIncurred
		exp.CategoryID = cat.ID
		exp.CategoryName = cat.Name
		exp.UserID = scope.UserID
		exp.CompanyID = scope.CompanyID

		_, err = r.Audit.Record(ctx, tx, scope, models.AuditEntry{
			Action:      models.ActionCreate,
			EntityType:  models.EntityExpense,
			EntityID:    exp.ID,
			Description: exp.Label(),
			New:         exp.Snapshot(),
		})
		return err
	})
	if err != nil {
		if apperr.IsLimitExceeded(err) {
			metrics.IncLimitRejections()
		}
		return models.Expense{}, err
	}

	r.changed(scope)
	metrics.IncExpensesCreated()
	metrics.IncAuditRecords(models.EntityExpense, models.ActionCreate)
	slog.DebugContext(ctx, "expense created",
		"company_id", scope.CompanyID,
		"expense_id", exp.ID,
		"category_id", exp.CategoryID,
		"amount", exp.Amount.String())
	return exp, nil
}

// ========================
// GET EXPENSE
// ========================

func (r *ExpenseRepo) Get(ctx context.Context, scope tenant.Scope, id int) (models.Expense, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+expenseColumns+expenseFrom+` WHERE e.id = $1 AND e.company_id = $2`,
		id, scope.CompanyID)
	exp, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return exp, apperr.NotFound("expense", id)
	}
	if err != nil {
		return exp, fmt.Errorf("get expense: %w", err)
	}
	return exp, nil
}

// ========================
// UPDATE EXPENSE
// ========================

// Update applies patch to an expense. When the amount or the category changes, the limit
// of the resulting category is checked against its other expenses. Moving an expense is
// only allowed into an active category.
func (r *ExpenseRepo) Update(ctx context.Context, scope tenant.Scope, id int, patch models.ExpensePatch) (models.Expense, error) {
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		patch.Description = &trimmed
	}
	if err := validateExpensePatch(patch); err != nil {
		return models.Expense{}, err
	}

	var updated models.Expense
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		before, err := lockExpense(ctx, tx, scope.CompanyID, id)
		if err != nil {
			return err
		}

		next := before
		if patch.Description != nil {
			next.Description = *patch.Description
		}
		if patch.Amount != nil {
			next.Amount = *patch.Amount
		}
		if patch.DateIncurred != nil {
			next.DateIncurred = *patch.DateIncurred
		}

		moved := patch.CategoryID != nil && *patch.CategoryID != before.CategoryID
		var cat models.Category
		if moved {
			cat, err = lockActiveCategory(ctx, tx, scope.CompanyID, *patch.CategoryID)
		} else {
			cat, err = lockCategory(ctx, tx, scope.CompanyID, before.CategoryID)
		}
		if err != nil {
			return err
		}
		next.CategoryID = cat.ID
		next.CategoryName = cat.Name

		if moved || !next.Amount.Equal(before.Amount) {
			if err := checkLimit(ctx, tx, cat, id, next.Amount); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE expenses
			 SET description = $1, amount = $2, date_incurred = $3, category_id = $4
			 WHERE id = $5 AND company_id = $6`,
			next.Description, next.Amount, next.DateIncurred, next.CategoryID, id, scope.CompanyID)
		if err != nil {
			return apperr.FromPostgres("update expense", err)
		}
		updated = next

		_, err = r.Audit.Record(ctx, tx, scope, models.AuditEntry{
			Action:      models.ActionUpdate,
			EntityType:  models.EntityExpense,
			EntityID:    id,
			Description: updated.Label(),
			Previous:    before.Snapshot(),
			New:         updated.Snapshot(),
		})
		return err
	})
	if err != nil {
		if apperr.IsLimitExceeded(err) {
			metrics.IncLimitRejections()
		}
		return models.Expense{}, err
	}

	r.changed(scope)
	metrics.IncAuditRecords(models.EntityExpense, models.ActionUpdate)
	return updated, nil
}

// ========================
// DELETE EXPENSE
// ========================

// Delete removes an expense for good. The audit record keeps its last state.
func (r *ExpenseRepo) Delete(ctx context.Context, scope tenant.Scope, id int) error {
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		before, err := lockExpense(ctx, tx, scope.CompanyID, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM expenses WHERE id = $1 AND company_id = $2`, id, scope.CompanyID); err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}

		_, err = r.Audit.Record(ctx, tx, scope, models.AuditEntry{
			Action:      models.ActionDelete,
			EntityType:  models.EntityExpense,
			EntityID:    id,
			Description: before.Label(),
			Previous:    before.Snapshot(),
		})
		return err
	})
	if err != nil {
		return err
	}

	r.changed(scope)
	metrics.IncAuditRecords(models.EntityExpense, models.ActionDelete)
	return nil
}

func (r *ExpenseRepo) changed(scope tenant.Scope) {
	if r.Changed != nil {
		r.Changed(scope.CompanyID)
	}
}

// ========================
// LIST EXPENSES
// ========================

// List returns the company's expenses matching f, most recent date first.
func (r *ExpenseRepo) List(ctx context.Context, scope tenant.Scope, f models.ExpenseFilter, page, pageSize int) (models.Page[models.Expense], error) {
	size, offset, err := pageBounds(page, pageSize, r.MaxPageSize)
	if err != nil {
		return models.Page[models.Expense]{}, err
	}
	if err := f.Range.Validate(); err != nil {
		return models.Page[models.Expense]{}, apperr.Validation("%s", err.Error())
	}

	var w where
	w.add("e.company_id = %[1]s", scope.CompanyID)
	if f.CategoryID != 0 {
		w.add("e.category_id = %[1]s", f.CategoryID)
	}
	w.dateRange("e.date_incurred", f.Range)

	result := models.Page[models.Expense]{Items: []models.Expense{}, Page: page, PageSize: size}
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*)`+expenseFrom+w.String(), w.args...).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("count expenses: %w", err)
	}

	limitPH := w.next()
	args := append(w.args, size, offset)
	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY e.date_incurred DESC, e.id DESC LIMIT %s OFFSET $%d`,
		expenseColumns, expenseFrom, w.String(), limitPH, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return result, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, e)
	}
	return result, rows.Err()
}

// ========================
// HELPERS
// ========================

// maxMoney is the smallest value a NUMERIC(14,2) column cannot store.
var maxMoney = decimal.New(1, 12)

const tooLargeMessage = "must be less than 1000000000000"

func validateAmount(fields map[string]string, amount decimal.Decimal) {
	switch {
	case !amount.IsPositive():
		fields["amount"] = "must be greater than 0"
	case amount.GreaterThanOrEqual(maxMoney):
		fields["amount"] = tooLargeMessage
	case !amount.Equal(amount.Round(2)):
		fields["amount"] = "must have at most 2 decimal places"
	}
}

func validateExpense(categoryID int, amount decimal.Decimal, date models.Date) error {
	fields := make(map[string]string)
	if categoryID <= 0 {
		fields["category_id"] = "required"
	}
	validateAmount(fields, amount)
	if date.IsZero() {
		fields["date_incurred"] = "required"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("validation failed", fields)
	}
	return nil
}

func validateExpensePatch(p models.ExpensePatch) error {
	fields := make(map[string]string)
	if p.Amount != nil {
		validateAmount(fields, *p.Amount)
	}
	if p.DateIncurred != nil && p.DateIncurred.IsZero() {
		fields["date_incurred"] = "must not be empty"
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		fields["category_id"] = "must be a valid id"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("validation failed", fields)
	}
	return nil
}

// lockActiveCategory locks a category that expenses may be filed under.
func lockActiveCategory(ctx context.Context, q db.Queryer, companyID, id int) (models.Category, error) {
	cat, err := lockCategory(ctx, q, companyID, id)
	if err != nil {
		return cat, err
	}
	if !cat.IsActive {
		return cat, apperr.NotFound("category", id)
	}
	return cat, nil
}

// checkLimit fails when amount on top of the category's other expenses would exceed its
// limit. The category row must already be locked by the caller.
func checkLimit(ctx context.Context, q db.Queryer, cat models.Category, exceptExpenseID int, amount decimal.Decimal) error {
	if !cat.ExpenseLimit.Valid {
		return nil
	}
	spent, err := categorySpent(ctx, q, cat.CompanyID, cat.ID, exceptExpenseID)
	if err != nil {
		return err
	}
	if spent.Add(amount).GreaterThan(cat.ExpenseLimit.Decimal) {
		return &apperr.LimitExceededError{
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			Limit:        cat.ExpenseLimit.Decimal,
			Spent:        spent,
			Requested:    amount,
		}
	}
	return nil
}

func lockExpense(ctx context.Context, q db.Queryer, companyID, id int) (models.Expense, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+expenseColumns+expenseFrom+` WHERE e.id = $1 AND e.company_id = $2 FOR UPDATE OF e`,
		id, companyID)
	exp, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return exp, apperr.NotFound("expense", id)
	}
	if err != nil {
		return exp, fmt.Errorf("lock expense: %w", err)
	}
	return exp, nil
}

func scanExpense(s scanner) (models.Expense, error) {
	var e models.Expense
	err := s.Scan(&e.ID, &e.Description, &e.Amount, &e.DateIncurred, &e.CategoryID, &e.CategoryName,
		&e.UserID, &e.CompanyID, &e.CreatedAt)
	return e, err
}
