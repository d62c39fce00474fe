package server

import "net/http"

func (s *Server) initRoutes() {
	// Credential endpoints carry the per-address rate limit on top of the
	// shared stack.
	s.RegisterRouteHandler("POST "+RouteAuthRegister,
		ChainMiddleware(s.RegisterHandler(), s.APIMiddleware(s.RateLimitMiddleware(RouteAuthRegister))...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin,
		ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.RateLimitMiddleware(RouteAuthLogin))...))

	s.RegisterRouteHandler("GET "+RouteAuthSession,
		ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout,
		ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Browsers preflight the credentialed POSTs; the origin guard answers.
	s.RegisterRouteHandler("OPTIONS /auth/",
		ChainMiddleware(s.preflightFallthrough(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

// preflightFallthrough only runs for same-origin OPTIONS requests; the
// origin guard short-circuits the cross-origin ones before it.
func (s *Server) preflightFallthrough() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// HealthHandler answers load-balancer probes.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
