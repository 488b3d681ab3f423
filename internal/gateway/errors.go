// Package gateway holds the types shared by the insertion and retrieval
// engines: records, filters on the wire, pagination windows, and the error
// taxonomy every engine error is folded into before it reaches a caller.
package gateway

import (
	"errors"
	"fmt"
)

// Category classifies an error for callers that map errors to transport
// status codes. Raw driver errors never leave the engines uncategorised.
type Category string

const (
	// CategoryValidation — bad table name, bad filter shape, bad pagination
	// bounds, empty batch. Rejected before any I/O.
	CategoryValidation Category = "validation"

	// CategoryAuth — failed password or token check.
	CategoryAuth Category = "auth"

	// CategoryConnection — the store is unreachable.
	CategoryConnection Category = "connection"

	// CategoryExecution — the store was reached but the statement failed.
	CategoryExecution Category = "execution"
)

// Sentinels for the caller errors the contracts name explicitly.
// They are always wrapped in an *Error with CategoryValidation, so both
// errors.Is and CategoryOf work on them.
var (
	ErrInvalidTable  = errors.New("invalid table name")
	ErrMissingFilter = errors.New("missing required filter")
	ErrEmptyBatch    = errors.New("empty batch")
	ErrBadPagination = errors.New("pagination out of bounds")
)

// Error is a categorised gateway error.
type Error struct {
	Category Category
	Message  string
	Err      error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error from a format string.
func Validationf(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWrap wraps one of the validation sentinels with extra context.
func ValidationWrap(sentinel error, format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// Authf builds an auth error.
func Authf(format string, args ...any) *Error {
	return &Error{Category: CategoryAuth, Message: fmt.Sprintf(format, args...)}
}

// ConnectionWrap wraps a driver connectivity failure.
func ConnectionWrap(err error, msg string) *Error {
	return &Error{Category: CategoryConnection, Message: msg, Err: err}
}

// ExecutionWrap wraps a statement execution failure.
func ExecutionWrap(err error, msg string) *Error {
	return &Error{Category: CategoryExecution, Message: msg, Err: err}
}

// CategoryOf extracts the category from err. Uncategorised errors count as
// execution failures: by the time an error escapes an engine the validation
// phase is over.
func CategoryOf(err error) Category {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Category
	}
	return CategoryExecution
}
