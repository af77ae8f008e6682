package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every component. Callers match with errors.Is.
var (
	ErrValidation            = errors.New("validation error")
	ErrStorage               = errors.New("storage error")
	ErrConversionUnavailable = errors.New("currency conversion unavailable")
	ErrExport                = errors.New("export error")
	ErrEmptyDataset          = errors.New("empty dataset")
	ErrNotFound              = errors.New("not found")
)

// ValidationError reports a single bad input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid is a shorthand for building a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageFailure wraps a persistence error so it matches ErrStorage.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// ExportFailure wraps a destination write error so it matches ErrExport.
func ExportFailure(dest string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrExport, dest, err)
}

// IsRetryable reports whether retrying the same call may succeed.
// Validation, not-found and empty-dataset errors need the caller to change input.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrConversionUnavailable)
}
