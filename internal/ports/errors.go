package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrRateLimited indicates that the service has rate limited the
	// request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is
	// unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the service returned a malformed
	// or unparseable response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNoEvidence indicates that retrieval produced no evidence for
	// a claim.
	ErrNoEvidence = errors.New("no evidence found")
)

// NLIError represents an error from an NLI provider.
// It includes details about the provider, operation, and any rate limit
// information.
type NLIError struct {
	// Provider is the identifier of the backend that generated the error.
	Provider string

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error that occurred.
	Err error

	// RetryAfter indicates how long to wait before retrying, if the
	// provider supplied one.
	RetryAfter *time.Duration
}

// Error implements the error interface for NLIError.
func (e *NLIError) Error() string {
	msg := fmt.Sprintf("nli error: provider=%s, operation=%s, err=%v", e.Provider, e.Operation, e.Err)
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *NLIError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and the operation
// can be retried.
func (e *NLIError) IsRetryable() bool {
	// Only network/service-level errors are retryable; logic errors are not.
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewNLIError creates a new NLIError with the given details.
func NewNLIError(provider, operation string, err error) *NLIError {
	return &NLIError{
		Provider:  provider,
		Operation: operation,
		Err:       err,
	}
}

// RetrievalError represents an error from an evidence retrieval backend.
type RetrievalError struct {
	// Claim is a short prefix of the claim whose retrieval failed.
	Claim string

	// Err is the underlying error that caused retrieval to fail.
	Err error
}

// Error implements the error interface for RetrievalError.
func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval error: claim=%q, err=%v", e.Claim, e.Err)
}

// Unwrap returns the underlying error.
func (e *RetrievalError) Unwrap() error { return e.Err }

// NewRetrievalError creates a new RetrievalError for the given claim.
func NewRetrievalError(claim string, err error) *RetrievalError {
	const maxClaimPrefix = 48
	if len(claim) > maxClaimPrefix {
		claim = claim[:maxClaimPrefix] + "..."
	}
	return &RetrievalError{Claim: claim, Err: err}
}
