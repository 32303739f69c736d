package remote

import (
	"errors"
	"fmt"
)

// The error taxonomy for remote faults. Everything the store client can
// fail with is wrapped into one of these kinds so the pipeline boundary
// can classify with errors.Is and nothing fatal-looking escapes
// unhandled.
var (
	// ErrAuth means the session is invalid or expired. It halts the
	// remainder of a submission run.
	ErrAuth = errors.New("remote: authentication required")

	// ErrTransient covers network faults and 5xx-class responses.
	// Eligible for bounded retry with backoff.
	ErrTransient = errors.New("remote: transient fault")

	// ErrValidation means the store rejected the record itself. Not
	// retryable.
	ErrValidation = errors.New("remote: record rejected")
)

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 401:
		return fmt.Errorf("%w (status %d)", ErrAuth, status)
	case status >= 500:
		return fmt.Errorf("%w (status %d)", ErrTransient, status)
	default:
		return fmt.Errorf("%w (status %d)", ErrValidation, status)
	}
}
