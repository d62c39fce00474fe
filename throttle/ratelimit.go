package throttle

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Rate limiting defaults for the authentication endpoints: a sliding
// one-minute window per address+endpoint.
const (
	DefaultRateLimit  = 15
	DefaultRateWindow = time.Minute
)

// Allow applies the sliding-window request rate limit for an address and
// endpoint. It reuses block records as the window storage: Attempts holds
// request timestamps, BlockedUntil is unused. Conflicts are retried like
// failure recording; persistent conflicts fail closed.
func (t *Throttle) Allow(ctx context.Context, addr, endpoint string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	key := RateKey(addr, endpoint)

	for attempt := 0; attempt < conflictRetries; attempt++ {
		block, err := t.repo.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			block = &Block{Key: key}
		} else if err != nil {
			return false, errors.Wrap(err, "[Throttle.Allow] repo.Get")
		}

		now := t.nowTime()
		kept := block.Attempts[:0:0]
		for _, at := range block.Attempts {
			if now.Sub(at) < window {
				kept = append(kept, at)
			}
		}
		if len(kept) >= limit {
			return false, nil
		}
		block.Attempts = append(kept, now)

		err = t.repo.Put(ctx, block)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return false, errors.Wrap(err, "[Throttle.Allow] repo.Put")
		}
		return true, nil
	}
	return false, nil
}
