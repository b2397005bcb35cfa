package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProductOrCompany indicates no flow rate exists for the pair.
	ErrUnknownProductOrCompany = errors.New("unknown product or company")
	// ErrDivision indicates a resolved flow rate that is zero or negative.
	ErrDivision = errors.New("flow rate must be positive")
	// ErrOrdering indicates an explicit end that precedes the start.
	ErrOrdering = errors.New("end precedes start")
	// ErrNotFound indicates the referenced entry does not exist.
	ErrNotFound = errors.New("schedule entry not found")
	// ErrStoreUnavailable indicates the backing store failed or timed out.
	// Callers may retry.
	ErrStoreUnavailable = errors.New("schedule store unavailable")
	// ErrInvalidEntry indicates a malformed entry field.
	ErrInvalidEntry = errors.New("invalid schedule entry")
)

// ValidationError reports the field that made an entry unschedulable.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err blocks scheduling because of the entry's
// own contents rather than the store.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidEntry) ||
		errors.Is(err, ErrUnknownProductOrCompany) ||
		errors.Is(err, ErrDivision) ||
		errors.Is(err, ErrOrdering)
}
