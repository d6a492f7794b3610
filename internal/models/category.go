package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups expenses inside one company. A null ExpenseLimit means unlimited.
// Deleting a category only clears IsActive; expenses keep pointing at it.
type Category struct {
	ID           int                 `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	ExpenseLimit decimal.NullDecimal `json:"expense_limit"`
	IsActive     bool                `json:"is_active"`
	CompanyID    int                 `json:"company_id"`
	CreatedAt    time.Time           `json:"created_at"`
}

// CategoryPatch carries the fields of a partial update. Nil means "leave as is".
// ClearLimit removes the limit and wins over ExpenseLimit.
type CategoryPatch struct {
	Name         *string
	Description  *string
	ExpenseLimit *decimal.Decimal
	ClearLimit   bool
}

// Snapshot returns the audit representation of the category.
func (c Category) Snapshot() Snapshot {
	s := Snapshot{
		"id":            c.ID,
		"name":          c.Name,
		"description":   c.Description,
		"expense_limit": nil,
		"is_active":     c.IsActive,
		"company_id":    c.CompanyID,
	}
	if c.ExpenseLimit.Valid {
		s["expense_limit"] = c.ExpenseLimit.Decimal.String()
	}
	return s
}
