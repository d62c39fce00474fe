package repofake

import (
	"context"
	"sync"

	"github.com/gasfornuis/kitchenchat-auth/accounts"
	"github.com/google/uuid"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

// FakeAccountRepo is an in-memory accounts.Repo for tests. It mimics the
// real store's optimistic concurrency, including version checks.
type FakeAccountRepo struct {
	byHandle map[string]*accounts.Account
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{byHandle: make(map[string]*accounts.Account)}
}

func (r *FakeAccountRepo) Create(_ context.Context, account *accounts.Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byHandle[account.Handle]; ok {
		return accounts.ErrHandleExists
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.Version = 1
	stored := *account
	r.byHandle[account.Handle] = &stored
	return nil
}

func (r *FakeAccountRepo) GetByHandle(_ context.Context, handle string) (*accounts.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	stored, ok := r.byHandle[handle]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *FakeAccountRepo) Update(_ context.Context, account *accounts.Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.byHandle[account.Handle]
	if !ok {
		return accounts.ErrNotFound
	}
	if stored.Version != account.Version {
		return accounts.ErrVersionConflict
	}
	account.Version++
	copied := *account
	r.byHandle[account.Handle] = &copied
	return nil
}

func (r *FakeAccountRepo) SetDisabled(_ context.Context, handle string, disabled bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.byHandle[handle]
	if !ok {
		return accounts.ErrNotFound
	}
	stored.Disabled = disabled
	stored.Version++
	return nil
}
