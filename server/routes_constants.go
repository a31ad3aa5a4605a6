package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth2 Routes
	RouteOAuthAuthorize = "/oauth/authorize"
	RouteOAuthToken     = "/oauth/token"

	// Session Routes - Login & Logout
	RouteSessions    = "/sessions"
	RouteSessionsNew = "/sessions/new"
)

// authorizeActionField is the form field carrying the explicit user
// confirmation on the authorize endpoint.
const authorizeActionField = "authorize"
