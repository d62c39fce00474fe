package server

import (
	"net/http"
	"strconv"

	"github.com/gasfornuis/kitchenchat-auth/internal/logutil"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler) // Call the middleware function
	}
	return chainedHandler
}

// APIMiddleware is the stack every auth endpoint runs behind. The origin
// guard sits directly after recovery so a disallowed origin is rejected
// before any handler logic, throttle bookkeeping included.
func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chainedMiddleWare := []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.OriginMiddleware,
		s.SecurityHeadersMiddleware,
		s.LoggingMiddleware,
	}
	chainedMiddleWare = append(chainedMiddleWare, mw...)
	return chainedMiddleWare
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				secLog := logutil.Security()
				secLog.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next(w, r)
	}
}

func (s *Server) SecurityHeadersMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")
		next(w, r)
	}
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env != "DEV" {
			next(w, r)
			return
		}
		logRoute(r.Method, r.URL.Path)
		next(w, r)
	}
}

// OriginMiddleware is the origin guard: an exact-match allow-list enforced
// with credentialed CORS headers. A browser request from anywhere else is
// refused outright rather than left to the browser to block.
func (s *Server) OriginMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// No Origin header = same-origin or non-browser request
		if origin == "" {
			next(w, r)
			return
		}

		if !s.config.GetAllowedOrigins().IsAllowedOrigin(origin) {
			secLog := logutil.Security()
			secLog.Warn().
				Str("event", "origin_denied").
				Str("origin", origin).
				Str("path", r.URL.Path).
				Msg("request from disallowed origin")
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Add("Vary", "Origin")

		// Handle preflight (OPTIONS) requests
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", s.config.GetAllowedMethods())
			w.Header().Set("Access-Control-Allow-Headers", s.config.GetAllowedHeaders())
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// RateLimitMiddleware applies a per-address sliding window to an endpoint.
// A storage failure counts as a denial.
func (s *Server) RateLimitMiddleware(endpoint string) func(http.HandlerFunc) http.HandlerFunc {
	limit, window := s.config.GetAuthRateLimit()
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			allowed, err := s.throttle.Allow(r.Context(), ClientAddr(r), endpoint, limit, window)
			if err != nil {
				secLog := logutil.Security()
				secLog.Error().Err(err).Str("endpoint", endpoint).Msg("rate limit check failed")
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next(w, r)
		}
	}
}
