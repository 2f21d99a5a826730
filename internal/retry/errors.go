package retry

import "errors"

// PermanentError marks a failure that must not be retried, such as a
// malformed claim. The error taxonomy is a closed set: an error is
// permanent if and only if it is wrapped by Permanent; everything else
// is treated as transient and eligible for retry.
type PermanentError struct {
	Err error
}

// Error implements the error interface for PermanentError.
func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the executor propagates it without retrying.
// A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked permanent anywhere in its
// chain.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
