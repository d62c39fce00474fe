package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gasfornuis/kitchenchat-auth/sanitize"
)

// The orchestrator maps every leaf failure into this closed taxonomy; raw
// storage or hashing errors never reach a response.
var (
	// ErrInvalidCredentials is deliberately generic: the caller cannot
	// tell a missing handle from a wrong password or a disabled account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrHandleTaken        = errors.New("handle already exists")
	ErrSessionInvalid     = errors.New("invalid or expired session")
	ErrInternal           = errors.New("an error occurred")
)

// ValidationError wraps an input-guard rejection: always client-fixable.
type ValidationError struct {
	Rejection *sanitize.Rejection
}

func (e *ValidationError) Error() string {
	return e.Rejection.Error()
}

// LockedError means the abuse throttle is engaged. It carries a retry-after
// hint but never the remaining-attempt count.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, try again in %s", e.RetryAfter.Round(time.Second))
}
