package oauthmodel

import (
	"net/http"

	ierrors "github.com/jrsteele09/go-identity-gateway/internal/errors"
)

// AuthorizeParams holds the parameters of an OAuth2 authorization request.
// The struct is serialized into the session cookie when a request has to be
// interrupted for login or confirmation, so it carries JSON tags and must
// stay small.
type AuthorizeParams struct {
	// ClientID identifies the application requesting authorization.
	// Required: Yes
	ClientID string `json:"client_id"`

	// ResponseType specifies what the authorization endpoint should return.
	// Required: No (the upstream account service only issues codes)
	ResponseType string `json:"response_type,omitempty"`

	// Scope specifies the permissions being requested. Passed through to the
	// account service verbatim, never interpreted here.
	Scope string `json:"scope,omitempty"`

	// RedirectURI optionally overrides the client's registered redirect URI.
	// Must exactly match the registered URI when present.
	RedirectURI string `json:"redirect_uri,omitempty"`

	// State is an opaque client value echoed back in the redirect.
	State string `json:"state,omitempty"`
}

// ParseAuthorizeParams extracts authorization parameters from a request.
// Both GET query parameters and POST form bodies are accepted.
func ParseAuthorizeParams(r *http.Request) *AuthorizeParams {
	return &AuthorizeParams{
		ClientID:     r.FormValue("client_id"),
		ResponseType: r.FormValue("response_type"),
		Scope:        r.FormValue("scope"),
		RedirectURI:  r.FormValue("redirect_uri"),
		State:        r.FormValue("state"),
	}
}

// Validate checks that the required parameters are present.
func (p *AuthorizeParams) Validate() error {
	if p == nil || p.ClientID == "" {
		return ierrors.Wrapf(ierrors.ErrMalformedRequest, "[Validate] client_id is required")
	}
	return nil
}
