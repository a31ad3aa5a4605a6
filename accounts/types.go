package accounts

import (
	"github.com/jrsteele09/go-identity-gateway/clients"
)

// Credentials are the values a user submits at login. SecondFactor is empty
// unless the account service demanded one on a previous attempt.
type Credentials struct {
	Email        string
	Password     string
	SecondFactor string
}

// Identity is what a successful credential validation yields: the opaque
// user reference and the cross-service session nonce.
type Identity struct {
	UserRef      string
	SessionNonce string
}

// Token is one half of a token pair as minted by the account service.
type Token struct {
	Value     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// Grant is the short-lived authorization code issued for a client.
type Grant struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expires_in"`
}

// AuthorizeRequest is the body of an authorization-creation call.
type AuthorizeRequest struct {
	UserRef       string `json:"user_ref,omitempty"`
	ClientID      string `json:"client_id"`
	Scope         string `json:"scope,omitempty"`
	CreateSession bool   `json:"create_session,omitempty"`
	CreateTokens  bool   `json:"create_tokens,omitempty"`
}

// Authorization is the account service's record of a grant. The gateway
// only transports it; the code is never inspected or persisted beyond the
// redirect it is relayed in.
type Authorization struct {
	ID     string         `json:"id"`
	Client clients.Client `json:"client"`
	Grant  Grant          `json:"grant"`

	Session *struct {
		ID string `json:"id"`
	} `json:"session,omitempty"`

	AccessToken  *Token `json:"access_token,omitempty"`
	RefreshToken *Token `json:"refresh_token,omitempty"`

	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// TokenPair is the result of exchanging an authorization code.
type TokenPair struct {
	AccessToken  Token
	RefreshToken Token

	// SessionNonce accompanies token exchanges performed during login and
	// is echoed into the session cookie for sibling services.
	SessionNonce string
}
