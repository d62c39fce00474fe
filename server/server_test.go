package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gasfornuis/kitchenchat-auth/accounts/repofake"
	"github.com/gasfornuis/kitchenchat-auth/auth"
	"github.com/gasfornuis/kitchenchat-auth/internal/config"
	"github.com/gasfornuis/kitchenchat-auth/password"
	"github.com/gasfornuis/kitchenchat-auth/server"
	"github.com/gasfornuis/kitchenchat-auth/sessions"
	sessionfake "github.com/gasfornuis/kitchenchat-auth/sessions/repofake"
	"github.com/gasfornuis/kitchenchat-auth/throttle"
	blockfake "github.com/gasfornuis/kitchenchat-auth/throttle/repofake"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const allowedOrigin = "https://kitchenchat.live"

type testConfig struct {
	config.Config
}

func (testConfig) GetEnv() string                { return "TEST" }
func (testConfig) GetRequireSecureCookies() bool { return false }

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	cfg := testConfig{Config: config.New()}

	sessionMgr, err := sessions.NewManager(sessionfake.NewFakeSessionRepo(), cfg.GetSessionTTL())
	require.NoError(t, err)

	th, err := throttle.New(blockfake.NewFakeBlockRepo(), cfg.GetLockoutSchedule())
	require.NoError(t, err)

	authService, err := auth.NewService(
		auth.Repos{Accounts: repofake.NewFakeAccountRepo()},
		password.NewHasher(bcrypt.MinCost),
		sessionMgr,
		th,
	)
	require.NoError(t, err)

	srv, err := server.New(cfg, authService, th)
	require.NoError(t, err)
	return srv
}

func credentialsBody(handle, pass string) string {
	return fmt.Sprintf(`{"handle":%q,"password":%q}`, handle, pass)
}

// post performs a request directly so the response body can be decoded.
func post(t *testing.T, srv *server.Server, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func registerAccount(t *testing.T, srv *server.Server, handle, pass string) string {
	t.Helper()
	rec, body := post(t, srv, "/auth/register", credentialsBody(handle, pass))
	require.Equal(t, http.StatusCreated, rec.Code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	srv := newTestServer(t)

	rec, body := post(t, srv, "/auth/register", credentialsBody("alice", "hunter2pass"))
	require.Equal(t, http.StatusCreated, rec.Code)

	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "kc_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.Equal(t, body["token"], cookies[0].Value)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	apitest.New().
		Handler(srv).
		Post("/auth/register").
		Body(credentialsBody("alice", "password")).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	apitest.New().
		Handler(srv).
		Post("/auth/register").
		Body(`not json`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func TestRegisterDuplicateHandle(t *testing.T) {
	srv := newTestServer(t)
	registerAccount(t, srv, "alice", "hunter2pass")

	apitest.New().
		Handler(srv).
		Post("/auth/register").
		Body(credentialsBody("alice", "otherpass9")).
		Expect(t).
		Status(http.StatusConflict).
		End()
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	registerAccount(t, srv, "alice", "hunter2pass")

	apitest.New().
		Handler(srv).
		Post("/auth/login").
		Body(credentialsBody("alice", "wrongpass1")).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestLoginLockoutSendsRetryAfter(t *testing.T) {
	srv := newTestServer(t)
	registerAccount(t, srv, "alice", "hunter2pass")

	for i := 0; i < 5; i++ {
		rec, _ := post(t, srv, "/auth/login", credentialsBody("alice", "wrongpass1"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, _ := post(t, srv, "/auth/login", credentialsBody("alice", "hunter2pass"))
	require.Equal(t, http.StatusLocked, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestSessionEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerAccount(t, srv, "alice", "hunter2pass")

	apitest.New().
		Handler(srv).
		Get("/auth/session").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(srv).
		Get("/auth/session").
		Cookies(apitest.NewCookie("kc_session").Value(token)).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(srv).
		Get("/auth/session").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	apitest.New().
		Handler(srv).
		Get("/auth/session").
		Header("Authorization", "Bearer bogus-token").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestLogoutRevokesAndClearsCookie(t *testing.T) {
	srv := newTestServer(t)
	token := registerAccount(t, srv, "alice", "hunter2pass")

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)

	apitest.New().
		Handler(srv).
		Get("/auth/session").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	// Logging out again still succeeds.
	apitest.New().
		Handler(srv).
		Post("/auth/logout").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusNoContent).
		End()
}

func TestDisallowedOriginIsRefused(t *testing.T) {
	srv := newTestServer(t)

	apitest.New().
		Handler(srv).
		Post("/auth/register").
		Header("Origin", "https://evil.example").
		Body(credentialsBody("alice", "hunter2pass")).
		Expect(t).
		Status(http.StatusForbidden).
		End()

	// The refused request reached no handler: the handle is still free.
	registerAccount(t, srv, "alice", "hunter2pass")
}

func TestAllowedOriginGetsCORSHeaders(t *testing.T) {
	srv := newTestServer(t)
	registerAccount(t, srv, "alice", "hunter2pass")

	apitest.New().
		Handler(srv).
		Post("/auth/login").
		Header("Origin", allowedOrigin).
		Body(credentialsBody("alice", "hunter2pass")).
		Expect(t).
		Status(http.StatusOK).
		Header("Access-Control-Allow-Origin", allowedOrigin).
		Header("Access-Control-Allow-Credentials", "true").
		End()
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", allowedOrigin)
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	apitest.New().
		Handler(srv).
		Get("/auth/session").
		Expect(t).
		Status(http.StatusUnauthorized).
		Header("X-Content-Type-Options", "nosniff").
		Header("X-Frame-Options", "DENY").
		Header("Cache-Control", "no-store").
		End()
}

type secureCookieConfig struct {
	config.Config
}

func (secureCookieConfig) GetEnv() string                { return "TEST" }
func (secureCookieConfig) GetRequireSecureCookies() bool { return true }

func TestSecureCookieIgnoredOnPlaintextTransport(t *testing.T) {
	cfg := secureCookieConfig{Config: config.New()}

	sessionMgr, err := sessions.NewManager(sessionfake.NewFakeSessionRepo(), cfg.GetSessionTTL())
	require.NoError(t, err)
	th, err := throttle.New(blockfake.NewFakeBlockRepo(), cfg.GetLockoutSchedule())
	require.NoError(t, err)
	authService, err := auth.NewService(
		auth.Repos{Accounts: repofake.NewFakeAccountRepo()},
		password.NewHasher(bcrypt.MinCost),
		sessionMgr,
		th,
	)
	require.NoError(t, err)
	srv, err := server.New(cfg, authService, th)
	require.NoError(t, err)

	token := registerAccount(t, srv, "alice", "hunter2pass")

	apitest.New().
		Handler(srv).
		Get("/auth/session").
		Cookies(apitest.NewCookie("kc_session").Value(token)).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	apitest.New().
		Handler(srv).
		Get("/auth/session").
		Cookies(apitest.NewCookie("kc_session").Value(token)).
		Header("X-Forwarded-Proto", "https").
		Expect(t).
		Status(http.StatusOK).
		End()

	// The bearer header is transport-independent.
	apitest.New().
		Handler(srv).
		Get("/auth/session").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestAuthRateLimit(t *testing.T) {
	srv := newTestServer(t)
	limit, _ := testConfig{Config: config.New()}.GetAuthRateLimit()

	// Validation failures burn rate-limit budget without touching the
	// lockout schedule.
	for i := 0; i < limit; i++ {
		rec, _ := post(t, srv, "/auth/login", credentialsBody("ab", "x"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec, _ := post(t, srv, "/auth/login", credentialsBody("ab", "x"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
