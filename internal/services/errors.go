package services

import (
	"errors"
	"fmt"

	"fintrack/internal/core"
)

// ErrDuplicate is matched by every *ConflictError.
var ErrDuplicate = errors.New("duplicate transaction")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// ConflictError is returned when a transaction matches one already stored.
type ConflictError struct {
	Existing core.Transaction
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate of transaction %s", e.Existing.ID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrDuplicate }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
