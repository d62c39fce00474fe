// Package auth composes the credential hasher, input guard, abuse throttle,
// and session manager into the user-facing flows: register, login,
// verify-session, logout. It is pure composition; every decision lives in
// one of the leaf components.
package auth

import (
	"context"
	"time"

	"github.com/gasfornuis/kitchenchat-auth/accounts"
	"github.com/gasfornuis/kitchenchat-auth/internal/logutil"
	"github.com/gasfornuis/kitchenchat-auth/password"
	"github.com/gasfornuis/kitchenchat-auth/sanitize"
	"github.com/gasfornuis/kitchenchat-auth/sessions"
	"github.com/gasfornuis/kitchenchat-auth/throttle"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const displayNameMaxLen = 64

// Repos holds the storage dependencies of the Service.
type Repos struct {
	Accounts accounts.Repo
}

// Service orchestrates the authentication flows.
type Service struct {
	repos    Repos
	hasher   *password.Hasher
	sessions *sessions.Manager
	throttle *throttle.Throttle
	nowTime  func() time.Time
	secLog   zerolog.Logger
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repos Repos, hasher *password.Hasher, sessionMgr *sessions.Manager, th *throttle.Throttle, options ...ServiceOption) (*Service, error) {
	if repos.Accounts == nil {
		return nil, errors.New("[NewService] Accounts repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[NewService] hasher is required")
	}
	if sessionMgr == nil {
		return nil, errors.New("[NewService] session manager is required")
	}
	if th == nil {
		return nil, errors.New("[NewService] throttle is required")
	}

	s := &Service{
		repos:    repos,
		hasher:   hasher,
		sessions: sessionMgr,
		throttle: th,
		nowTime:  time.Now,
		secLog:   logutil.Security(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// RegisterRequest carries the raw, untrusted registration fields.
type RegisterRequest struct {
	Handle      string
	Password    string
	DisplayName string
}

// LoginRequest carries the raw, untrusted login fields.
type LoginRequest struct {
	Handle   string
	Password string
}

// RequestMeta is transport context threaded through the flows for throttle
// keys and session records.
type RequestMeta struct {
	ClientAddr string
	UserAgent  string
}

// LoginResult is the successful outcome of register and login.
type LoginResult struct {
	Token string
	User  sessions.Principal
}

// Register validates the fields, stores a new account with an adaptive-v2
// verifier, and mints its first session.
func (s *Service) Register(ctx context.Context, req RegisterRequest, meta RequestMeta) (*LoginResult, error) {
	handle, rej := sanitize.Handle("handle", req.Handle)
	if rej != nil {
		return nil, &ValidationError{Rejection: rej}
	}
	if rej := sanitize.Password("password", req.Password); rej != nil {
		return nil, &ValidationError{Rejection: rej}
	}
	displayName, rej := sanitize.FreeText("displayName", req.DisplayName, displayNameMaxLen)
	if rej != nil {
		return nil, &ValidationError{Rejection: rej}
	}
	if displayName == "" {
		displayName = handle
	}

	verifier, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}

	account := &accounts.Account{
		ID:             uuid.New().String(),
		Handle:         handle,
		DisplayName:    displayName,
		Verifier:       verifier,
		CreatedAt:      s.nowTime(),
		RegisteredFrom: meta.ClientAddr,
	}
	err = s.repos.Accounts.Create(ctx, account)
	if errors.Is(err, accounts.ErrHandleExists) {
		return nil, ErrHandleTaken
	}
	if err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}

	s.secLog.Info().
		Str("event", "register").
		Str("handle", handle).
		Str("addr", meta.ClientAddr).
		Msg("new account registered")

	return s.issue(ctx, account, meta)
}

// Login runs the full gauntlet: throttle check before any hashing, generic
// failure on mismatch, lazy verifier migration on a legacy match.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*LoginResult, error) {
	handle, rej := sanitize.Handle("handle", req.Handle)
	if rej != nil {
		return nil, &ValidationError{Rejection: rej}
	}
	if req.Password == "" {
		return nil, &ValidationError{Rejection: &sanitize.Rejection{Field: "password", Reason: sanitize.ReasonTooShort}}
	}

	addrKey := throttle.AddressKey(meta.ClientAddr)
	accountKey := throttle.AccountKey(handle)

	// A locked key rejects before any credential work: no timing oracle,
	// no wasted hashing.
	for _, key := range []string{addrKey, accountKey} {
		status, err := s.throttle.Status(ctx, key)
		if err != nil {
			return nil, errors.Wrap(ErrInternal, err.Error())
		}
		if status.Locked {
			s.secLog.Warn().
				Str("event", "login_locked").
				Str("handle", handle).
				Str("addr", meta.ClientAddr).
				Msg("login attempt while locked")
			return nil, &LockedError{RetryAfter: status.RetryAfter}
		}
	}

	account, err := s.repos.Accounts.GetByHandle(ctx, handle)
	if errors.Is(err, accounts.ErrNotFound) {
		s.recordFailure(ctx, handle, meta, addrKey)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}

	result := s.hasher.Verify(req.Password, account.Verifier)
	if !result.Match {
		s.recordFailure(ctx, handle, meta, addrKey, accountKey)
		s.bumpAccountFailure(ctx, account)
		return nil, ErrInvalidCredentials
	}

	if result.NeedsMigration {
		s.migrateVerifier(ctx, account, req.Password)
	}

	for _, key := range []string{addrKey, accountKey} {
		if err := s.throttle.Reset(ctx, key); err != nil {
			s.secLog.Warn().Err(err).Str("key", key).Msg("failed to reset throttle key")
		}
	}

	account.FailedAttempts = 0
	account.LastLoginAt = s.nowTime()
	if err := s.repos.Accounts.Update(ctx, account); err != nil {
		// Bookkeeping only; the login itself still stands.
		s.secLog.Warn().Err(err).Str("handle", handle).Msg("failed to record last login")
	}

	s.secLog.Info().
		Str("event", "login").
		Str("handle", handle).
		Str("addr", meta.ClientAddr).
		Msg("successful login")

	return s.issue(ctx, account, meta)
}

// VerifySession resolves a bearer token to its principal.
func (s *Service) VerifySession(ctx context.Context, rawToken string) (sessions.Principal, error) {
	principal, err := s.sessions.Validate(ctx, rawToken)
	if err != nil {
		return sessions.Principal{}, ErrSessionInvalid
	}
	return principal, nil
}

// Logout revokes the token. Idempotent: logging out twice, or with a token
// that was never issued, succeeds.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if err := s.sessions.Revoke(ctx, rawToken); err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	return nil
}

func (s *Service) issue(ctx context.Context, account *accounts.Account, meta RequestMeta) (*LoginResult, error) {
	token, session, err := s.sessions.Issue(ctx, account, sessions.Metadata{
		ClientAddr: meta.ClientAddr,
		UserAgent:  meta.UserAgent,
	})
	if errors.Is(err, sessions.ErrAccountDisabled) {
		// Indistinguishable from a bad password on purpose.
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}
	return &LoginResult{
		Token: token,
		User:  sessions.Principal{Subject: session.Subject, DisplayName: session.DisplayName},
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, handle string, meta RequestMeta, keys ...string) {
	for _, key := range keys {
		if err := s.throttle.RecordFailure(ctx, key); err != nil {
			s.secLog.Error().Err(err).Str("key", key).Msg("failed to record login failure")
		}
	}
	s.secLog.Warn().
		Str("event", "login_failed").
		Str("handle", handle).
		Str("addr", meta.ClientAddr).
		Msg("failed login attempt")
}

func (s *Service) bumpAccountFailure(ctx context.Context, account *accounts.Account) {
	account.FailedAttempts++
	account.LastFailedAt = s.nowTime()
	if err := s.repos.Accounts.Update(ctx, account); err != nil {
		s.secLog.Warn().Err(err).Str("handle", account.Handle).Msg("failed to record account failure count")
	}
}

// migrateVerifier re-hashes a legacy credential to adaptive-v2. Best effort:
// a failed write leaves the legacy verifier in place for the next login.
func (s *Service) migrateVerifier(ctx context.Context, account *accounts.Account, plaintext string) {
	verifier, err := s.hasher.Hash(plaintext)
	if err != nil {
		s.secLog.Error().Err(err).Str("handle", account.Handle).Msg("verifier migration hash failed")
		return
	}
	account.Verifier = verifier
	if err := s.repos.Accounts.Update(ctx, account); err != nil {
		s.secLog.Warn().Err(err).Str("handle", account.Handle).Msg("verifier migration write failed")
		return
	}
	s.secLog.Info().
		Str("event", "verifier_migrated").
		Str("handle", account.Handle).
		Msg("legacy verifier upgraded")
}
