// Package apperr holds the error taxonomy shared by stores and the HTTP boundary.
//
// Stores return these types; handlers translate them into status codes with errors.As.
// Anything that is not one of these types is an internal failure.
package apperr

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed or semantically invalid input.
type ValidationError struct {
	Message string
	// Fields maps input field names to a short reason. Optional.
	Fields map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a missing entity or one owned by another tenant.
// The two cases are deliberately indistinguishable.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// LimitExceededError reports that an expense would push a category past its spend limit.
type LimitExceededError struct {
	CategoryID   int
	CategoryName string
	Limit        decimal.Decimal
	Spent        decimal.Decimal
	Requested    decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("expense of %s exceeds the limit of category %q (%s, already spent %s)",
		e.Requested, e.CategoryName, e.Limit, e.Spent)
}

// ConflictError reports a uniqueness violation detected by the database.
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ValidationFields builds a ValidationError carrying per-field reasons.
func ValidationFields(message string, fields map[string]string) error {
	return &ValidationError{Message: message, Fields: fields}
}

func NotFound(entity string, id int) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func Conflict(message string, err error) error {
	return &ConflictError{Message: message, Err: err}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsLimitExceeded(err error) bool {
	var le *LimitExceededError
	return errors.As(err, &le)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
