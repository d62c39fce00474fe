package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gasfornuis/kitchenchat-auth/auth"
	"github.com/gasfornuis/kitchenchat-auth/sanitize"
	"github.com/gasfornuis/kitchenchat-auth/sessions"
)

type authResponse struct {
	Token string             `json:"token"`
	User  sessions.Principal `json:"user"`
}

// RegisterHandler creates an account and mints its first session.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, rej := s.readBody(w, r)
		if rej != nil {
			writeRejection(w, rej)
			return
		}

		result, err := s.auth.Register(r.Context(), auth.RegisterRequest{
			Handle:      stringField(body, "handle"),
			Password:    stringField(body, "password"),
			DisplayName: stringField(body, "displayName"),
		}, s.requestMeta(r))
		if err != nil {
			s.writeAuthError(w, err)
			return
		}

		s.setSessionCookie(w, result.Token, s.config.GetSessionTTL())
		writeJSON(w, http.StatusCreated, authResponse{Token: result.Token, User: result.User})
	}
}

// LoginHandler authenticates a handle and password.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, rej := s.readBody(w, r)
		if rej != nil {
			writeRejection(w, rej)
			return
		}

		result, err := s.auth.Login(r.Context(), auth.LoginRequest{
			Handle:   stringField(body, "handle"),
			Password: stringField(body, "password"),
		}, s.requestMeta(r))
		if err != nil {
			s.writeAuthError(w, err)
			return
		}

		s.setSessionCookie(w, result.Token, s.config.GetSessionTTL())
		writeJSON(w, http.StatusOK, authResponse{Token: result.Token, User: result.User})
	}
}

// SessionHandler resolves the current session to its principal.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := s.sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, auth.ErrSessionInvalid.Error())
			return
		}

		principal, err := s.auth.VerifySession(r.Context(), token)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]sessions.Principal{"user": principal})
	}
}

// LogoutHandler revokes the current session. Succeeds even without one.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := s.sessionToken(r); token != "" {
			if err := s.auth.Logout(r.Context(), token); err != nil {
				s.writeAuthError(w, err)
				return
			}
		}
		s.clearSessionCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// readBody drains a size-capped request body and runs it through the
// structural checks before any field is looked at.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (map[string]any, *sanitize.Rejection) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.GetMaxBodyBytes()))
	if err != nil {
		return nil, &sanitize.Rejection{Field: "body", Reason: sanitize.ReasonTooLong}
	}
	return sanitize.StructuredBody(raw)
}

func stringField(body map[string]any, key string) string {
	value, _ := body[key].(string)
	return value
}

func (s *Server) requestMeta(r *http.Request) auth.RequestMeta {
	return auth.RequestMeta{
		ClientAddr: ClientAddr(r),
		UserAgent:  r.UserAgent(),
	}
}

// writeAuthError maps the orchestrator's error taxonomy onto status codes.
// Anything outside the taxonomy surfaces as an opaque 500.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	var validationErr *auth.ValidationError
	var lockedErr *auth.LockedError

	switch {
	case errors.As(err, &validationErr):
		writeRejection(w, validationErr.Rejection)
	case errors.As(err, &lockedErr):
		seconds := int(lockedErr.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeError(w, http.StatusLocked, lockedErr.Error())
	case errors.Is(err, auth.ErrHandleTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, auth.ErrSessionInvalid.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
