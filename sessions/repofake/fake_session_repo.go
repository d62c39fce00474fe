package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/gasfornuis/kitchenchat-auth/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory sessions.Repo for tests.
type FakeSessionRepo struct {
	byDigest map[string]*sessions.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{byDigest: make(map[string]*sessions.Session)}
}

func (r *FakeSessionRepo) Create(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	session.Version = 1
	copied := *session
	r.byDigest[session.TokenDigest] = &copied
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, tokenDigest string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	stored, ok := r.byDigest[tokenDigest]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *FakeSessionRepo) Update(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.byDigest[session.TokenDigest]
	if !ok {
		return sessions.ErrNotFound
	}
	if stored.Version != session.Version {
		return sessions.ErrVersionConflict
	}
	session.Version++
	copied := *session
	r.byDigest[session.TokenDigest] = &copied
	return nil
}

func (r *FakeSessionRepo) DeleteExpired(_ context.Context, before time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for digest, s := range r.byDigest {
		if s.ExpiresAt.Before(before) {
			delete(r.byDigest, digest)
		}
	}
	return nil
}
