package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds. Every error returned by the services unwraps to exactly one of
// these, which the adapters map to a transport status.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")
)

// Error codes carried on the wire.
const (
	CodeCustomerDetailsInvalid = "CUSTOMER_DETAILS_INVALID"
	CodeValidation             = "VALIDATION_ERROR"
	CodePartNotFound           = "PART_NOT_FOUND"
	CodeNotFound               = "NOT_FOUND"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeAllocationConflict     = "ALLOCATION_CONFLICT"
	CodeDuplicate              = "DUPLICATE"
	CodeConcurrentUpdate       = "CONCURRENT_UPDATE"
	CodePersistence            = "PERSISTENCE_FAILURE"
)

// Error is a domain failure with a stable code and a message fit for the
// operator. It unwraps to its kind and to the underlying cause, if any.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Is matches another *Error by code, so the code sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Code sentinels for errors.Is. Their messages are placeholders; returned
// errors carry the specific message.
var (
	ErrCustomerDetailsInvalid = &Error{Kind: ErrValidation, Code: CodeCustomerDetailsInvalid, Message: "invalid customer details"}
	ErrInvalidInput           = &Error{Kind: ErrValidation, Code: CodeValidation, Message: "invalid input"}
	ErrPartNotFound           = &Error{Kind: ErrNotFound, Code: CodePartNotFound, Message: "part not found"}
	ErrRecordNotFound         = &Error{Kind: ErrNotFound, Code: CodeNotFound, Message: "record not found"}
	ErrInsufficientStock      = &Error{Kind: ErrConflict, Code: CodeInsufficientStock, Message: "insufficient stock"}
	ErrAllocationConflict     = &Error{Kind: ErrConflict, Code: CodeAllocationConflict, Message: "invoice number allocation conflict"}
	ErrDuplicate              = &Error{Kind: ErrConflict, Code: CodeDuplicate, Message: "duplicate record"}
	ErrConcurrentUpdate       = &Error{Kind: ErrConflict, Code: CodeConcurrentUpdate, Message: "concurrent update"}
	ErrPersistenceFailure     = &Error{Kind: ErrPersistence, Code: CodePersistence, Message: "persistence failure"}
)

func validationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func customerDetailsError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Code: CodeCustomerDetailsInvalid, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode returns the code of the first *Error in err's chain, or "".
func ErrorCode(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// storageError classifies a database failure. Domain errors pass through
// untouched; Postgres errors are mapped by SQLSTATE; anything else becomes a
// persistence failure whose message starts with action.
func storageError(action string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &Error{Kind: ErrConflict, Code: CodeDuplicate,
				Message: fmt.Sprintf("%s: duplicate value violates %s", action, pgErr.ConstraintName), Err: err}
		case "40001", "40P01":
			return &Error{Kind: ErrConflict, Code: CodeConcurrentUpdate,
				Message: fmt.Sprintf("%s: concurrent update, please retry", action), Err: err}
		case "22003":
			return &Error{Kind: ErrValidation, Code: CodeValidation,
				Message: fmt.Sprintf("%s: value out of range", action), Err: err}
		case "23514":
			if pgErr.ConstraintName == "inventory_items_quantity_check" {
				return &Error{Kind: ErrConflict, Code: CodeInsufficientStock,
					Message: fmt.Sprintf("%s: stock would become negative", action), Err: err}
			}
		}
	}
	return &Error{Kind: ErrPersistence, Code: CodePersistence, Message: fmt.Sprintf("%s: %v", action, err), Err: err}
}

// isUniqueViolation reports whether err is a unique violation of constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
