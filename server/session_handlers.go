package server

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-identity-gateway/accounts"
	"github.com/jrsteele09/go-identity-gateway/clients"
	ierrors "github.com/jrsteele09/go-identity-gateway/internal/errors"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	Error     string
	Email     string // Preserve email on a failed attempt
	TwoFactor bool   // Render the second-factor code field
}

// LoginPageHandler displays the login page (GET /sessions/new)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		panic("Failed to parse login template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginPageData{
			Error:     r.URL.Query().Get("error"),
			Email:     r.URL.Query().Get("email"),
			TwoFactor: r.URL.Query().Get("two_factor") == "required",
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		}
	}
}

// LoginSubmissionHandler processes the login form (POST /sessions). On
// success any pending authorization stored in the session is replayed,
// otherwise the user lands on the dashboard.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	confirmTmpl, err := ParseTemplate("authorize.html")
	if err != nil {
		panic("Failed to parse authorize template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		creds := accounts.Credentials{
			Email:        r.FormValue("email"),
			Password:     r.FormValue("password"),
			SecondFactor: r.FormValue("code"),
		}
		if creds.Email == "" || creds.Password == "" {
			s.redirectToLogin(w, r, url.Values{"error": {"Email and password are required"}, "email": {creds.Email}})
			return
		}

		session := s.store.Load(r)
		ctx := r.Context()

		landingRedirect := func() {
			s.saveSession(w, r, session)
			http.Redirect(w, r, s.config.GetDashboardURL(), http.StatusFound)
		}

		confirmPrompt := func(client *clients.Client) {
			s.saveSession(w, r, session)
			data := ConfirmPageData{ClientName: client.Name, ClientID: client.ID}
			w.Header().Set("Content-Type", contentTypeHTML)
			if err := confirmTmpl.Execute(w, data); err != nil {
				log.Err(err).Msg("Failed to render authorize template")
			}
		}

		grantRedirect := func(redirectURI, code, state string) {
			s.saveSession(w, r, session)
			callbackRedirect(w, r, redirectURI, code, state)
		}

		if err := s.auth.Login(ctx, session, creds, confirmPrompt, grantRedirect, landingRedirect); err != nil {
			switch {
			case ierrors.Is(err, ierrors.ErrTwoFactorRequired):
				// Session untouched; the pending authorization survives for
				// the retry that carries the second factor.
				s.redirectToLogin(w, r, url.Values{"two_factor": {"required"}, "email": {creds.Email}})
			case ierrors.Is(err, ierrors.ErrUnauthorized):
				// Never a raw 401 to the browser.
				s.redirectToLogin(w, r, url.Values{"error": {"Invalid email or password"}})
			case ierrors.Is(err, ierrors.ErrUpstreamUnavailable):
				log.Err(err).Msg("account service unavailable during login")
				http.Error(w, "Account service unavailable", http.StatusServiceUnavailable)
			default:
				log.Err(err).Msg("login failed")
				http.Error(w, "Login failed", http.StatusInternalServerError)
			}
		}
	}
}

// LogoutHandler ends the session (DELETE /sessions). The upstream session
// is terminated best effort; the cookie is always cleared.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.store.Load(r)
		s.auth.Logout(r.Context(), session)
		s.store.Clear(w)
		http.Redirect(w, r, RouteSessionsNew, http.StatusFound)
	}
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request, params url.Values) {
	target := RouteSessionsNew
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	http.Redirect(w, r, target, http.StatusFound)
}
