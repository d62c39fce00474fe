package throttle

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// conflictRetries bounds the optimistic-concurrency retry loop.
const conflictRetries = 5

// Status is the verdict for one key before a login attempt runs. While
// Locked, the caller must not perform credential verification at all.
type Status struct {
	Locked     bool
	RetryAfter time.Duration
}

// Throttle evaluates and records authentication abuse per key.
type Throttle struct {
	repo     Repo
	schedule Schedule
	nowTime  func() time.Time
}

// Option modifies a Throttle.
type Option func(*Throttle)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(t *Throttle) {
		t.nowTime = nowFunc
	}
}

func New(repo Repo, schedule Schedule, options ...Option) (*Throttle, error) {
	if repo == nil {
		return nil, errors.New("[throttle.New] repo is required")
	}
	if schedule.Window <= 0 {
		return nil, errors.New("[throttle.New] schedule window must be positive")
	}
	t := &Throttle{repo: repo, schedule: schedule, nowTime: time.Now}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

// Status reports whether a key is currently locked. A missing record means
// the key has no abuse history.
func (t *Throttle) Status(ctx context.Context, key string) (Status, error) {
	block, err := t.repo.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, errors.Wrap(err, "[Throttle.Status] repo.Get")
	}
	now := t.nowTime()
	if block.BlockedUntil.After(now) {
		return Status{Locked: true, RetryAfter: block.BlockedUntil.Sub(now)}, nil
	}
	return Status{}, nil
}

// RecordFailure appends a failure for the key and escalates the lockout when
// the rolling-window count crosses a tier. The write is conditional and
// retried on conflict so concurrent failures are never lost, and an existing
// BlockedUntil is never moved backwards.
func (t *Throttle) RecordFailure(ctx context.Context, key string) error {
	for attempt := 0; attempt < conflictRetries; attempt++ {
		block, err := t.repo.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			block = &Block{Key: key}
		} else if err != nil {
			return errors.Wrap(err, "[Throttle.RecordFailure] repo.Get")
		}

		now := t.nowTime()
		kept := block.Attempts[:0:0]
		for _, at := range block.Attempts {
			if now.Sub(at) < t.schedule.Window {
				kept = append(kept, at)
			}
		}
		block.Attempts = append(kept, now)

		if lockout := t.schedule.lockoutFor(len(block.Attempts)); lockout > 0 {
			until := now.Add(lockout)
			if until.After(block.BlockedUntil) {
				block.BlockedUntil = until
				log.Warn().
					Str("event", "lockout").
					Str("key", key).
					Int("failures", len(block.Attempts)).
					Dur("lockout", lockout).
					Msg("authentication key locked")
			}
		}

		err = t.repo.Put(ctx, block)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "[Throttle.RecordFailure] repo.Put")
		}
		return nil
	}
	return errors.New("[Throttle.RecordFailure] gave up after repeated version conflicts")
}

// Reset clears the failure history for one key. Other keys are untouched: a
// successful login from one address does not un-throttle an account that is
// under attack from elsewhere.
func (t *Throttle) Reset(ctx context.Context, key string) error {
	err := t.repo.Delete(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "[Throttle.Reset] repo.Delete")
	}
	return nil
}
