package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/gasfornuis/kitchenchat-auth/accounts"
	"github.com/pkg/errors"
)

// tokenBytes gives 384 bits of entropy per token.
const tokenBytes = 48

// DefaultTTL bounds a session's lifetime.
const DefaultTTL = 8 * time.Hour

// ErrAccountDisabled is returned when issuance is refused for a soft-banned
// account.
var ErrAccountDisabled = errors.New("account is disabled")

// ErrInvalid covers every way a token can fail validation: absent, revoked,
// or expired. Callers are told no more than that.
var ErrInvalid = errors.New("session invalid")

// Metadata is request context recorded on the session at issue time.
type Metadata struct {
	ClientAddr string
	UserAgent  string
}

// Manager issues, validates, and revokes session tokens.
type Manager struct {
	repo    Repo
	ttl     time.Duration
	nowTime func() time.Time
}

// Option modifies a Manager.
type Option func(*Manager)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(repo Repo, ttl time.Duration, options ...Option) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[sessions.NewManager] repo is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{repo: repo, ttl: ttl, nowTime: time.Now}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue mints a new token for the account and persists its record. It
// refuses disabled accounts. The raw token is returned exactly once; only
// its digest survives.
func (m *Manager) Issue(ctx context.Context, account *accounts.Account, meta Metadata) (string, *Session, error) {
	if account == nil {
		return "", nil, errors.New("[Manager.Issue] account is required")
	}
	if account.Disabled {
		return "", nil, ErrAccountDisabled
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, errors.Wrap(err, "[Manager.Issue] rand.Read")
	}
	rawToken := base64.RawURLEncoding.EncodeToString(buf)

	now := m.nowTime()
	session := &Session{
		TokenDigest: TokenDigest(rawToken),
		Subject:     account.Handle,
		DisplayName: account.DisplayName,
		IssuedAt:    now,
		ExpiresAt:   now.Add(m.ttl),
		ClientAddr:  meta.ClientAddr,
		UserAgent:   truncate(meta.UserAgent, 200),
	}
	if err := m.repo.Create(ctx, session); err != nil {
		return "", nil, errors.Wrap(err, "[Manager.Issue] repo.Create")
	}
	return rawToken, session, nil
}

// Validate resolves a raw token to its principal. Absent, revoked, and
// expired all collapse into ErrInvalid; storage failures also fail closed.
func (m *Manager) Validate(ctx context.Context, rawToken string) (Principal, error) {
	if rawToken == "" {
		return Principal{}, ErrInvalid
	}
	session, err := m.repo.Get(ctx, TokenDigest(rawToken))
	if errors.Is(err, ErrNotFound) {
		return Principal{}, ErrInvalid
	}
	if err != nil {
		return Principal{}, errors.Wrap(ErrInvalid, err.Error())
	}
	if session.Revoked || !m.nowTime().Before(session.ExpiresAt) {
		return Principal{}, ErrInvalid
	}
	return Principal{Subject: session.Subject, DisplayName: session.DisplayName}, nil
}

// Revoke permanently invalidates a token. Revoking an unknown or already
// revoked token is not an error.
func (m *Manager) Revoke(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	digest := TokenDigest(rawToken)
	for {
		session, err := m.repo.Get(ctx, digest)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "[Manager.Revoke] repo.Get")
		}
		if session.Revoked {
			return nil
		}
		session.Revoked = true
		err = m.repo.Update(ctx, session)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "[Manager.Revoke] repo.Update")
		}
		return nil
	}
}

// PurgeExpired removes records whose expiry has passed.
func (m *Manager) PurgeExpired(ctx context.Context) error {
	return m.repo.DeleteExpired(ctx, m.nowTime())
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
