package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced order, invoice or product id does
// not exist. Handlers map it to 404.
var ErrNotFound = errors.New("not_found")

// ErrOrderNumberExhausted is returned when the daily order sequence would
// exceed 9999. The number format is part of the public contract, so the
// request is rejected rather than the suffix widened.
var ErrOrderNumberExhausted = errors.New("order_number_exhausted")

// ValidationError reports client-supplied data violating a rule. Field names
// the offending input; Reason is a stable snake_case code.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StateError reports an illegal lifecycle transition, e.g. confirming an
// order that is not pending. It is a business-rule violation, not a fault.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return e.Reason }

// AsValidation reports whether err is a ValidationError and returns it.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// AsState reports whether err is a StateError and returns it.
func AsState(err error) (*StateError, bool) {
	var se *StateError
	ok := errors.As(err, &se)
	return se, ok
}
