package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrVersionConflict = errors.New("session version conflict")
)

// Repo stores session records keyed by token digest. Update is conditional
// on Version, so a revocation cannot race a concurrent mutation and be
// silently dropped.
type Repo interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, tokenDigest string) (*Session, error)
	Update(ctx context.Context, session *Session) error

	// DeleteExpired removes sessions whose expiry is before the given
	// time. Housekeeping only; Validate never relies on it.
	DeleteExpired(ctx context.Context, before time.Time) error
}
