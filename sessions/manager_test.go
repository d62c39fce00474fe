package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/gasfornuis/kitchenchat-auth/accounts"
	"github.com/gasfornuis/kitchenchat-auth/sessions"
	"github.com/gasfornuis/kitchenchat-auth/sessions/repofake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	manager *sessions.Manager
	repo    *repofake.FakeSessionRepo
	now     time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: repofake.NewFakeSessionRepo(),
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	m, err := sessions.NewManager(f.repo, 8*time.Hour,
		sessions.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.manager = m
	return f
}

func testAccount() *accounts.Account {
	return &accounts.Account{Handle: "alice", DisplayName: "Alice"}
}

func TestIssueAndValidate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	token, session, err := f.manager.Issue(ctx, testAccount(), sessions.Metadata{
		ClientAddr: "203.0.113.9",
		UserAgent:  "curl/8.0",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, session.ExpiresAt.After(session.IssuedAt))
	assert.Equal(t, sessions.TokenDigest(token), session.TokenDigest)

	principal, err := f.manager.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.Subject)
	assert.Equal(t, "Alice", principal.DisplayName)
}

func TestIssueRefusesDisabledAccount(t *testing.T) {
	f := setup(t)
	account := testAccount()
	account.Disabled = true

	_, _, err := f.manager.Issue(context.Background(), account, sessions.Metadata{})
	require.ErrorIs(t, err, sessions.ErrAccountDisabled)
}

func TestValidateUnknownToken(t *testing.T) {
	f := setup(t)
	_, err := f.manager.Validate(context.Background(), "no-such-token")
	require.ErrorIs(t, err, sessions.ErrInvalid)

	_, err = f.manager.Validate(context.Background(), "")
	require.ErrorIs(t, err, sessions.ErrInvalid)
}

func TestValidateExpiry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	token, _, err := f.manager.Issue(ctx, testAccount(), sessions.Metadata{})
	require.NoError(t, err)

	f.now = f.now.Add(8*time.Hour - time.Second)
	_, err = f.manager.Validate(ctx, token)
	require.NoError(t, err, "still valid just before expiry")

	f.now = f.now.Add(2 * time.Second)
	_, err = f.manager.Validate(ctx, token)
	require.ErrorIs(t, err, sessions.ErrInvalid, "invalid after expiry")
}

func TestRevokeBeatsExpiry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	token, _, err := f.manager.Issue(ctx, testAccount(), sessions.Metadata{})
	require.NoError(t, err)

	require.NoError(t, f.manager.Revoke(ctx, token))

	// Expiry has not passed, but revocation wins.
	_, err = f.manager.Validate(ctx, token)
	require.ErrorIs(t, err, sessions.ErrInvalid)
}

func TestRevokeIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	token, _, err := f.manager.Issue(ctx, testAccount(), sessions.Metadata{})
	require.NoError(t, err)

	require.NoError(t, f.manager.Revoke(ctx, token))
	require.NoError(t, f.manager.Revoke(ctx, token))
	require.NoError(t, f.manager.Revoke(ctx, "never-issued"))
	require.NoError(t, f.manager.Revoke(ctx, ""))
}

func TestTokensAreUnique(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		token, _, err := f.manager.Issue(ctx, testAccount(), sessions.Metadata{})
		require.NoError(t, err)
		require.False(t, seen[token], "token issued twice")
		seen[token] = true
	}
}

func TestUserAgentTruncated(t *testing.T) {
	f := setup(t)
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'u'
	}

	_, session, err := f.manager.Issue(context.Background(), testAccount(), sessions.Metadata{
		UserAgent: string(long),
	})
	require.NoError(t, err)
	assert.Len(t, session.UserAgent, 200)
}

func TestPurgeExpired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	expired, _, err := f.manager.Issue(ctx, testAccount(), sessions.Metadata{})
	require.NoError(t, err)

	f.now = f.now.Add(9 * time.Hour)
	fresh, _, err := f.manager.Issue(ctx, testAccount(), sessions.Metadata{})
	require.NoError(t, err)

	require.NoError(t, f.manager.PurgeExpired(ctx))

	_, err = f.manager.Validate(ctx, expired)
	require.ErrorIs(t, err, sessions.ErrInvalid)
	_, err = f.manager.Validate(ctx, fresh)
	require.NoError(t, err)
}
