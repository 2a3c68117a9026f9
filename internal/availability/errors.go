package availability

import (
	"errors"
	"fmt"
)

// TerminalError marks an upstream rejection that must not be retried: the
// postal code is invalid or unrecognized. The task still produces a default
// No/No row.
type TerminalError struct {
	PostalCode string
	StatusCode int
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("postal code %s rejected by upstream (status %d)", e.PostalCode, e.StatusCode)
}

// TransientError marks a failure that may succeed on retry: network errors,
// timeouts, and server-side 5xx responses.
type TransientError struct {
	PostalCode string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient failure for %s: %v", e.PostalCode, e.Err)
	}
	return fmt.Sprintf("transient failure for %s (status %d)", e.PostalCode, e.StatusCode)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTerminal reports whether err is a terminal upstream rejection.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
