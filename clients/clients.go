package clients

import (
	"context"

	"github.com/pkg/errors"
)

// Client is the account service's registration record for an OAuth2 client
// application. It is fetched, never owned: the gateway holds no client table.
type Client struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RedirectURI string `json:"redirect_uri"`

	// Trusted clients skip the explicit user confirmation step before a
	// grant is issued.
	Trusted bool `json:"trusted"`
}

// Fetcher retrieves client metadata from the account service.
type Fetcher interface {
	FetchClient(ctx context.Context, clientID string) (*Client, error)
}

// Resolver looks up a client's trust metadata for an authorization attempt.
// Trust can change between a client's registration calls, so lookups are
// never memoized across requests.
type Resolver struct {
	fetcher Fetcher
}

func NewResolver(fetcher Fetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve fetches the client afresh from the account service.
func (r *Resolver) Resolve(ctx context.Context, clientID string) (*Client, error) {
	client, err := r.fetcher.FetchClient(ctx, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "[Resolver.Resolve] fetch client")
	}
	return client, nil
}
