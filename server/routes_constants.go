package server

const (
	RouteAuthRegister = "/auth/register"
	RouteAuthLogin    = "/auth/login"
	RouteAuthSession  = "/auth/session"
	RouteAuthLogout   = "/auth/logout"
	RouteHealth       = "/health"
)
