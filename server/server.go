// Package server exposes the authentication flows over HTTP. Every request
// passes the origin guard and security-header middleware before any handler
// logic runs.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gasfornuis/kitchenchat-auth/auth"
	"github.com/gasfornuis/kitchenchat-auth/internal/config"
	"github.com/gasfornuis/kitchenchat-auth/throttle"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PRODUCTION")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.Service
	throttle *throttle.Throttle
}

func New(config config.Config, authService *auth.Service, th *throttle.Throttle) (*Server, error) {
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if th == nil {
		return nil, fmt.Errorf("[Server New] throttle is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		auth:     authService,
		throttle: th,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
