package models

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPermDenied   = errors.New("missing permissions to execute action")
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned by a store when a versioned write targets a stale row.
	ErrConflict = errors.New("concurrent modification")
	// ErrTransient is surfaced once conflicts exhausted the retry budget.
	// The caller may resubmit.
	ErrTransient = errors.New("transient conflict, retry the request")
)

// IsRetryable reports whether the client may safely resubmit the request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict)
}
