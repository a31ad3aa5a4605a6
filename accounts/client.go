package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-gateway/clients"
	"github.com/jrsteele09/go-identity-gateway/internal/config"
	ierrors "github.com/jrsteele09/go-identity-gateway/internal/errors"
)

// Response and request markers for the account service's two-factor
// enforcement. The service answers 403 with the response header set when an
// account demands a second factor that was not supplied; the code is
// forwarded upstream in the request header on the retry.
const (
	HeaderTwoFactorRequired = "Identity-Two-Factor-Required"
	HeaderTwoFactorCode     = "Identity-Two-Factor-Code"
)

// Client is the typed HTTP client for the upstream account service. Every
// call is a single synchronous round trip bounded by the configured timeout;
// there are no retries, and upstream failures surface as the typed errors in
// internal/errors.
type Client struct {
	baseURL  string
	username string
	password string
	clientID string
	timeout  time.Duration
	httpc    *http.Client
}

func New(cfg config.AccountConfig) *Client {
	return &Client{
		baseURL:  cfg.GetAccountAPIURL(),
		username: cfg.GetAccountAPIUsername(),
		password: cfg.GetAccountAPIPassword(),
		clientID: cfg.GetOAuthClientID(),
		timeout:  cfg.GetUpstreamTimeout(),
		httpc:    &http.Client{},
	}
}

// ValidateCredentials checks an email/password pair with the account
// service and establishes an upstream session. Mechanically this creates an
// authorization for the gateway's own client (authenticated with the user's
// credentials) and exchanges its grant code, whose token payload carries the
// cross-service session nonce.
func (c *Client) ValidateCredentials(ctx context.Context, creds Credentials) (Identity, error) {
	req := AuthorizeRequest{
		ClientID:      c.clientID,
		CreateSession: true,
		CreateTokens:  true,
	}

	headers := map[string]string{}
	if creds.SecondFactor != "" {
		headers[HeaderTwoFactorCode] = creds.SecondFactor
	}

	var authz Authorization
	err := c.do(ctx, http.MethodPost, "/oauth/authorizations", req, &authz, callAuth{
		username: creds.Email,
		password: creds.Password,
		headers:  headers,
	})
	if err != nil {
		return Identity{}, errors.Wrap(err, "[ValidateCredentials] create authorization")
	}

	pair, err := c.ExchangeCode(ctx, authz.Grant.Code)
	if err != nil {
		return Identity{}, errors.Wrap(err, "[ValidateCredentials] exchange grant code")
	}

	return Identity{
		UserRef:      authz.User.ID,
		SessionNonce: pair.SessionNonce,
	}, nil
}

// CreateAuthorization creates an authorization record (and grant code) for
// a client on behalf of an already-authenticated user.
func (c *Client) CreateAuthorization(ctx context.Context, req AuthorizeRequest) (*Authorization, error) {
	var authz Authorization
	err := c.do(ctx, http.MethodPost, "/oauth/authorizations", req, &authz, c.serviceAuth())
	if err != nil {
		return nil, errors.Wrap(err, "[CreateAuthorization] create authorization")
	}
	return &authz, nil
}

// FetchClient retrieves a client's registration metadata, including its
// trusted flag.
func (c *Client) FetchClient(ctx context.Context, clientID string) (*clients.Client, error) {
	if clientID == "" {
		return nil, ierrors.Wrapf(ierrors.ErrInvalidClient, "[FetchClient] empty client id")
	}

	var client clients.Client
	err := c.do(ctx, http.MethodGet, "/oauth/clients/"+url.PathEscape(clientID), nil, &client, c.serviceAuth())
	if err != nil {
		return nil, errors.Wrap(err, "[FetchClient] fetch client")
	}
	if client.ID == "" {
		client.ID = clientID
	}
	return &client, nil
}

// ExchangeCode swaps an authorization code for an access/refresh token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenPair, error) {
	if code == "" {
		return nil, ierrors.Wrapf(ierrors.ErrMalformedRequest, "[ExchangeCode] empty grant code")
	}

	body := map[string]string{"code": code}
	var payload struct {
		AccessToken  Token `json:"access_token"`
		RefreshToken Token `json:"refresh_token"`
		User         struct {
			SessionNonce string `json:"session_nonce"`
		} `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/oauth/tokens", body, &payload, c.serviceAuth())
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode] exchange code")
	}

	return &TokenPair{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		SessionNonce: payload.User.SessionNonce,
	}, nil
}

// EndSession terminates the upstream session identified by the nonce.
func (c *Client) EndSession(ctx context.Context, sessionNonce string) error {
	if sessionNonce == "" {
		return nil
	}
	err := c.do(ctx, http.MethodDelete, "/oauth/sessions/"+url.PathEscape(sessionNonce), nil, nil, c.serviceAuth())
	if err != nil {
		return errors.Wrap(err, "[EndSession] delete session")
	}
	return nil
}

// callAuth carries per-call basic-auth credentials and extra headers.
type callAuth struct {
	username string
	password string
	headers  map[string]string
}

func (c *Client) serviceAuth() callAuth {
	return callAuth{username: c.username, password: c.password}
}

// do performs one bounded JSON round trip and maps the response status onto
// the gateway's typed errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any, auth callAuth) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var buf *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[do] encode request body")
		}
		buf = bytes.NewBuffer(encoded)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return errors.Wrap(err, "[do] build request")
	}
	req.SetBasicAuth(auth.username, auth.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for name, value := range auth.headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Timeouts, refused connections and cancelled contexts all land here.
		return ierrors.Wrapf(ierrors.ErrUpstreamUnavailable, "[do] %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized:
		return ierrors.Wrapf(ierrors.ErrUnauthorized, "[do] %s %s", method, path)
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get(HeaderTwoFactorRequired) == "true":
		return ierrors.Wrapf(ierrors.ErrTwoFactorRequired, "[do] %s %s", method, path)
	case resp.StatusCode == http.StatusNotFound:
		return ierrors.Wrapf(ierrors.ErrInvalidClient, "[do] %s %s", method, path)
	case resp.StatusCode >= 500:
		return ierrors.Wrapf(ierrors.ErrUpstreamUnavailable, "[do] %s %s: status %d", method, path, resp.StatusCode)
	default:
		return fmt.Errorf("[do] %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "[do] decode %s %s response", method, path)
	}
	return nil
}
