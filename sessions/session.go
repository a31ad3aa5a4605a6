package sessions

import (
	"github.com/jrsteele09/go-identity-gateway/oauthmodel"
)

// Session is the browser-held state of one user agent. It travels in a
// signed and encrypted cookie; nothing in it is stored server side.
type Session struct {
	// UserRef is the account service's opaque identifier for the
	// authenticated user. Empty while anonymous.
	UserRef string `json:"user_ref,omitempty"`

	// SessionNonce is issued by the account service at login and shared
	// across cooperating subdomains through the cookie domain, so a single
	// login is recognized by sibling services.
	SessionNonce string `json:"session_nonce,omitempty"`

	// Pending is the snapshot of an interrupted authorization request.
	// At most one is held: a new authorize request overwrites any prior
	// snapshot, and it is cleared exactly once consumed.
	Pending *oauthmodel.AuthorizeParams `json:"pending_authorization,omitempty"`
}

// Authenticated reports whether the session belongs to a logged in user.
func (s *Session) Authenticated() bool {
	return s.UserRef != ""
}

// SetPending stores the snapshot of an interrupted authorization request,
// replacing any previous one.
func (s *Session) SetPending(params *oauthmodel.AuthorizeParams) {
	s.Pending = params
}

// ConsumePending returns the stored snapshot and clears it. Returns nil if
// no authorization is pending.
func (s *Session) ConsumePending() *oauthmodel.AuthorizeParams {
	pending := s.Pending
	s.Pending = nil
	return pending
}

// Reset drops the user identity, nonce and any pending authorization,
// turning the session back into an anonymous one.
func (s *Session) Reset() {
	s.UserRef = ""
	s.SessionNonce = ""
	s.Pending = nil
}
