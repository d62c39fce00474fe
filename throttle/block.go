// Package throttle tracks failed authentication attempts per originating
// address and per account, escalating lockouts the longer an attack lasts.
// State lives in a shared store so that counters hold up when requests are
// load-balanced across server instances.
package throttle

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("block record not found")
	ErrVersionConflict = errors.New("block record version conflict")
)

// Block is the abuse state for one key. Attempts is the rolling window of
// failure timestamps; BlockedUntil, while in the future, rejects every
// authentication attempt for the key regardless of credential correctness.
type Block struct {
	Key          string
	Attempts     []time.Time
	BlockedUntil time.Time
	Version      int64
}

// Repo stores block records. Put is a conditional write: it succeeds only
// when the stored version matches block.Version (version 0 means "create"),
// returning ErrVersionConflict otherwise. That is what keeps two concurrent
// failed logins from under-counting or racing a lockout boundary.
type Repo interface {
	Get(ctx context.Context, key string) (*Block, error)
	Put(ctx context.Context, block *Block) error
	Delete(ctx context.Context, key string) error
}

// AddressKey scopes a block record to an originating network address.
func AddressKey(addr string) string { return "addr:" + addr }

// AccountKey scopes a block record to an account handle, so credential
// stuffing of one account from many addresses is still caught.
func AccountKey(handle string) string { return "account:" + handle }

// RateKey scopes a sliding-window request counter to an address+endpoint.
func RateKey(addr, endpoint string) string { return "rate:" + addr + ":" + endpoint }
