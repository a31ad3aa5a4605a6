package auth

import (
	"context"

	"github.com/jrsteele09/go-identity-gateway/accounts"
	"github.com/jrsteele09/go-identity-gateway/clients"
)

// AccountAPI is the slice of the upstream account service the flow
// controller depends on. accounts.Client is the production implementation.
type AccountAPI interface {
	ValidateCredentials(ctx context.Context, creds accounts.Credentials) (accounts.Identity, error)
	CreateAuthorization(ctx context.Context, req accounts.AuthorizeRequest) (*accounts.Authorization, error)
	ExchangeCode(ctx context.Context, code string) (*accounts.TokenPair, error)
	EndSession(ctx context.Context, sessionNonce string) error
}

// ClientResolver resolves a client's trust metadata for one authorization
// attempt. Implementations must not cache across requests.
type ClientResolver interface {
	Resolve(ctx context.Context, clientID string) (*clients.Client, error)
}
