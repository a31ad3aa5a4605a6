package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-identity-gateway/clients"
	ierrors "github.com/jrsteele09/go-identity-gateway/internal/errors"
	"github.com/jrsteele09/go-identity-gateway/oauthmodel"
	"github.com/jrsteele09/go-identity-gateway/sessions"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// ConfirmPageData contains data for rendering the confirmation page
type ConfirmPageData struct {
	ClientName string
	ClientID   string
}

// AuthorizeHandler drives the authorization flow. A request carrying the
// explicit confirmation field completes a previously stored authorization;
// anything else starts (or restarts) one.
func (s *Server) AuthorizeHandler() http.HandlerFunc {
	confirmTmpl, err := ParseTemplate("authorize.html")
	if err != nil {
		panic("Failed to parse authorize template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse request parameters", http.StatusBadRequest)
			return
		}

		session := s.store.Load(r)
		ctx := r.Context()

		// Each callback persists the session before writing the response,
		// since cookies must go out with the response headers.
		loginRedirect := func() {
			s.saveSession(w, r, session)
			http.Redirect(w, r, RouteSessionsNew, http.StatusFound)
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

		var flowErr error
		if r.FormValue(authorizeActionField) != "" {
			flowErr = s.auth.Confirm(ctx, session, loginRedirect, grantRedirect)
		} else {
			params := oauthmodel.ParseAuthorizeParams(r)
			flowErr = s.auth.Authorize(ctx, session, params, loginRedirect, confirmPrompt, grantRedirect)
		}
		if flowErr != nil {
			s.writeAuthorizeError(w, r, session, flowErr)
		}
	}
}

// TokenHandler exchanges an authorization code for tokens
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}

		pair, err := s.auth.ExchangeToken(r.Context(), r.FormValue("code"))
		if err != nil {
			switch {
			case ierrors.Is(err, ierrors.ErrMalformedRequest):
				writeJSONError(w, "invalid_request", "code parameter is required", http.StatusBadRequest)
			case ierrors.Is(err, ierrors.ErrUpstreamUnavailable):
				writeJSONError(w, "temporarily_unavailable", "account service unavailable", http.StatusServiceUnavailable)
			default:
				log.Err(err).Msg("token exchange failed")
				writeJSONError(w, "invalid_grant", "code could not be exchanged", http.StatusBadRequest)
			}
			return
		}

		// Relay the account service's values verbatim.
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  pair.AccessToken.Value,
			"refresh_token": pair.RefreshToken.Value,
			"expires_in":    pair.AccessToken.ExpiresIn,
		})
	}
}

// writeAuthorizeError maps flow errors onto responses. Malformed or invalid
// requests never guess a redirect target; they answer with an explicit
// client error instead.
func (s *Server) writeAuthorizeError(w http.ResponseWriter, r *http.Request, session *sessions.Session, err error) {
	switch {
	case ierrors.Is(err, ierrors.ErrMalformedRequest):
		writeJSONError(w, "invalid_request", "missing or malformed authorization parameters", http.StatusBadRequest)
	case ierrors.Is(err, ierrors.ErrInvalidClient):
		writeJSONError(w, "invalid_client", "unknown client or mismatched redirect URI", http.StatusBadRequest)
	case ierrors.Is(err, ierrors.ErrTwoFactorRequired):
		// The pending snapshot was re-stored by the flow controller; keep it
		// and ask for the second factor at login.
		s.saveSession(w, r, session)
		http.Redirect(w, r, RouteSessionsNew+"?two_factor=required", http.StatusFound)
	case ierrors.Is(err, ierrors.ErrUnauthorized):
		// Upstream no longer recognizes this session; start over at login.
		http.Redirect(w, r, RouteSessionsNew, http.StatusFound)
	case ierrors.Is(err, ierrors.ErrUpstreamUnavailable):
		log.Err(err).Msg("account service unavailable during authorize")
		writeJSONError(w, "temporarily_unavailable", "account service unavailable", http.StatusServiceUnavailable)
	default:
		log.Err(err).Msg("authorization failed")
		writeJSONError(w, "server_error", "authorization failed", http.StatusInternalServerError)
	}
}

// callbackRedirect sends the authorization code to the client's redirect URI
// as query parameters.
func callbackRedirect(w http.ResponseWriter, r *http.Request, callbackURI, code, state string) {
	u, err := url.Parse(callbackURI)
	if err != nil {
		log.Err(err).Str("redirect_uri", callbackURI).Msg("invalid client redirect URI")
		writeJSONError(w, "server_error", "invalid client redirect URI", http.StatusInternalServerError)
		return
	}

	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	if err := s.store.Save(w, r, session); err != nil {
		log.Err(err).Msg("failed to write session cookie")
	}
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
