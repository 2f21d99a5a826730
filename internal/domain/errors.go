package domain

import (
	"errors"
	"fmt"
)

// Common domain errors surfaced synchronously to callers. They indicate
// invalid input, are never retried, and are never logged as failures of
// the system itself.
var (
	// ErrNoJudgments indicates that an empty judgment list was passed
	// to the aggregator.
	ErrNoJudgments = errors.New("judgment list cannot be empty")

	// ErrConfidenceRange indicates a judgment confidence outside [0, 1].
	ErrConfidenceRange = errors.New("confidence out of range")

	// ErrUnknownStrategy indicates an unrecognized aggregation strategy.
	ErrUnknownStrategy = errors.New("unknown aggregation strategy")

	// ErrEmptyClaim indicates that a claim has no text to verify.
	ErrEmptyClaim = errors.New("claim text cannot be empty")
)

// JudgmentError reports which judgment in an input list failed
// validation. It provides the offending index so callers can correlate
// the error with their input.
type JudgmentError struct {
	// Index is the position of the invalid judgment in the input list.
	Index int

	// Err is the underlying validation failure.
	Err error
}

// Error implements the error interface for JudgmentError.
func (e *JudgmentError) Error() string {
	return fmt.Sprintf("judgment %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is matching.
func (e *JudgmentError) Unwrap() error { return e.Err }

// NewJudgmentError creates a JudgmentError for the judgment at index.
func NewJudgmentError(index int, err error) *JudgmentError {
	return &JudgmentError{Index: index, Err: err}
}

// ValidationError represents a failed entity validation.
// It can carry multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
