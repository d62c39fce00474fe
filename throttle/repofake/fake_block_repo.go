package repofake

import (
	"context"
	"sync"

	"github.com/gasfornuis/kitchenchat-auth/throttle"
)

var _ throttle.Repo = (*FakeBlockRepo)(nil)

// FakeBlockRepo is an in-memory throttle.Repo for tests, with the same
// conditional-write semantics as the real store.
type FakeBlockRepo struct {
	blocks map[string]*throttle.Block
	lock   sync.Mutex
}

func NewFakeBlockRepo() *FakeBlockRepo {
	return &FakeBlockRepo{blocks: make(map[string]*throttle.Block)}
}

func (r *FakeBlockRepo) Get(_ context.Context, key string) (*throttle.Block, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.blocks[key]
	if !ok {
		return nil, throttle.ErrNotFound
	}
	copied := *stored
	copied.Attempts = append(copied.Attempts[:0:0], stored.Attempts...)
	return &copied, nil
}

func (r *FakeBlockRepo) Put(_ context.Context, block *throttle.Block) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.blocks[block.Key]
	if !ok {
		if block.Version != 0 {
			return throttle.ErrVersionConflict
		}
	} else if stored.Version != block.Version {
		return throttle.ErrVersionConflict
	}
	block.Version++
	copied := *block
	copied.Attempts = append(copied.Attempts[:0:0], block.Attempts...)
	r.blocks[block.Key] = &copied
	return nil
}

func (r *FakeBlockRepo) Delete(_ context.Context, key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.blocks, key)
	return nil
}
