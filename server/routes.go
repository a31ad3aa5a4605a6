package server

func (s *Server) initRoutes() {
	// OAuth2 endpoints. Authorize accepts GET and POST: interrupted flows
	// are replayed from a session snapshot, so the user agent can arrive
	// either way.
	s.RegisterRouteFunc("GET "+RouteOAuthAuthorize, ChainMiddleware(s.AuthorizeHandler(), s.WebMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteOAuthAuthorize, ChainMiddleware(s.AuthorizeHandler(), s.WebMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteOAuthToken, ChainMiddleware(s.TokenHandler(), s.WebMiddleware()...))

	// Session endpoints
	s.RegisterRouteFunc("GET "+RouteSessionsNew, ChainMiddleware(s.LoginPageHandler(), s.WebMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteSessions, ChainMiddleware(s.LoginSubmissionHandler(), s.WebMiddleware()...))
	s.RegisterRouteFunc("DELETE "+RouteSessions, ChainMiddleware(s.LogoutHandler(), s.WebMiddleware()...))
}
