package apperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

// FromPostgres maps driver errors to the taxonomy. Unknown errors are wrapped with op
// and returned as internal failures. A nil err stays nil.
func FromPostgres(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch string(pqErr.Code) {
	case pgerrcode.UniqueViolation:
		return Conflict(conflictMessage(pqErr.Constraint), err)
	case pgerrcode.ForeignKeyViolation:
		return &NotFoundError{Entity: "referenced entity"}
	case pgerrcode.CheckViolation:
		return &ValidationError{Message: fmt.Sprintf("check constraint %s violated", pqErr.Constraint)}
	case pgerrcode.NumericValueOutOfRange:
		return &ValidationError{Message: "numeric value out of range"}
	case pgerrcode.DatetimeFieldOverflow, pgerrcode.InvalidDatetimeFormat:
		return &ValidationError{Message: "invalid date"}
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return Conflict("concurrent modification, retry the request", err)
	default:
		return fmt.Errorf("%s: postgres error [%s]: %w", op, pqErr.Code, err)
	}
}

func conflictMessage(constraint string) string {
	switch constraint {
	case "categories_company_active_name_key":
		return "an active category with this name already exists"
	case "users_email_key":
		return "a user with this email already exists"
	case "companies_name_key":
		return "a company with this name already exists"
	case "api_keys_user_active_name_key":
		return "an active api key with this name already exists"
	default:
		return "resource already exists"
	}
}
