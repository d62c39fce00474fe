package accounts

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("account not found")
	ErrHandleExists    = errors.New("handle already exists")
	ErrVersionConflict = errors.New("account version conflict")
)

// Repo is the storage contract for account records. Implementations must
// provide read-then-conditional-write semantics: Update succeeds only when
// the stored version matches the one carried by the record, and bumps it.
type Repo interface {
	// Create stores a new account; ErrHandleExists if the handle is taken.
	Create(ctx context.Context, account *Account) error

	// GetByHandle returns the account for a case-normalized handle, or
	// ErrNotFound.
	GetByHandle(ctx context.Context, handle string) (*Account, error)

	// Update replaces the stored record if its version still matches
	// account.Version; ErrVersionConflict otherwise.
	Update(ctx context.Context, account *Account) error

	// SetDisabled flips the soft-ban flag.
	SetDisabled(ctx context.Context, handle string, disabled bool) error
}
