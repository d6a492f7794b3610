package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID           int             `json:"id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	DateIncurred Date            `json:"date_incurred"`
	CategoryID   int             `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	UserID       int             `json:"user_id"`
	CompanyID    int             `json:"company_id"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewExpense is the input of an expense creation.
type NewExpense struct {
	CategoryID   int
	Description  string
	Amount       decimal.Decimal
	DateIncurred Date
}

// ExpensePatch carries the fields of a partial update. Nil means "leave as is".
type ExpensePatch struct {
	Description  *string
	Amount       *decimal.Decimal
	DateIncurred *Date
	CategoryID   *int
}

// ExpenseFilter narrows an expense listing. Zero values disable a filter.
type ExpenseFilter struct {
	Range      DateRange
	CategoryID int
}

// Label is the human readable name used in audit descriptions.
func (e Expense) Label() string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("Expense #%d", e.ID)
}

// Snapshot returns the audit representation of the expense.
func (e Expense) Snapshot() Snapshot {
	return Snapshot{
		"id":            e.ID,
		"description":   e.Description,
		"amount":        e.Amount.String(),
		"date_incurred": e.DateIncurred.String(),
		"category_id":   e.CategoryID,
		"user_id":       e.UserID,
		"company_id":    e.CompanyID,
	}
}
