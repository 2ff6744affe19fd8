package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrRelayNotFound indicates that the referenced relay does not exist
	ErrRelayNotFound = errors.New("relay not found")

	// ErrStorageUnavailable indicates that the durable relay store could not
	// be reached and no cached snapshot exists to fall back on
	ErrStorageUnavailable = errors.New("relay storage unavailable")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
