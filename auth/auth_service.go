package auth

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-identity-gateway/accounts"
	"github.com/jrsteele09/go-identity-gateway/clients"
	ierrors "github.com/jrsteele09/go-identity-gateway/internal/errors"
	"github.com/jrsteele09/go-identity-gateway/oauthmodel"
	"github.com/jrsteele09/go-identity-gateway/sessions"
)

// LoginRedirect sends the user agent to the login page. Invoked when an
// authorization request arrives on an anonymous session; by then the request
// has been snapshotted into the session for replay after login.
type LoginRedirect func()

// ConfirmPrompt renders the confirmation page naming the client. Invoked for
// untrusted clients; the authorize parameters stay snapshotted in the
// session until the user submits the confirmation.
type ConfirmPrompt func(client *clients.Client)

// GrantRedirect sends the user agent to the client's redirect URI carrying
// the freshly minted authorization code and the original state value.
type GrantRedirect func(redirectURI, code, state string)

// LandingRedirect sends the user agent to the default post-login page.
// Invoked after a login that has no pending authorization to replay.
type LandingRedirect func()

// Service is the authorization flow controller. It owns the per-request
// state transitions of the OAuth2 authorize lifecycle and the login/logout
// handling around them. All durable state lives in the session value the
// caller passes in; the service itself holds none.
type Service struct {
	api      AccountAPI
	resolver ClientResolver
}

func NewService(api AccountAPI, resolver ClientResolver) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] account API is required")
	}
	if resolver == nil {
		return nil, errors.New("[NewService] client resolver is required")
	}
	return &Service{api: api, resolver: resolver}, nil
}

// Authorize handles an incoming OAuth2 authorization request.
//
// Anonymous sessions get the request snapshotted and are sent to login.
// Authenticated sessions have the client's trust re-checked: trusted clients
// are granted a code immediately, untrusted ones get the confirmation
// prompt with the request re-snapshotted until confirmed.
func (s *Service) Authorize(ctx context.Context, session *sessions.Session, params *oauthmodel.AuthorizeParams,
	loginRedirect LoginRedirect, confirmPrompt ConfirmPrompt, grantRedirect GrantRedirect) error {

	if err := params.Validate(); err != nil {
		return errors.Wrap(err, "[Authorize] invalid parameters")
	}

	if !session.Authenticated() {
		session.SetPending(params)
		loginRedirect()
		return nil
	}

	return s.run(ctx, session, params, confirmPrompt, grantRedirect)
}

// Confirm handles an explicit confirmation submission. The stored snapshot
// is authoritative: the grant is issued from it and it is consumed exactly
// once, so a bare repeated confirmation (with no fresh authorize call in
// between) is rejected rather than re-issuing a code from stale state.
func (s *Service) Confirm(ctx context.Context, session *sessions.Session,
	loginRedirect LoginRedirect, grantRedirect GrantRedirect) error {

	if !session.Authenticated() {
		// The pending snapshot is left in place so the post-login replay
		// still has the original request.
		loginRedirect()
		return nil
	}

	params := session.ConsumePending()
	if params == nil {
		return ierrors.Wrapf(ierrors.ErrMalformedRequest, "[Confirm] no pending authorization")
	}

	return s.grant(ctx, session, params, grantRedirect)
}

// Login validates credentials with the account service and establishes the
// session identity. If an interrupted authorization is pending it is
// replayed immediately, making login transparent to the OAuth2 flow;
// otherwise the user lands on the default page.
//
// On failure the session is left untouched, so a retry still has the
// original pending request available.
func (s *Service) Login(ctx context.Context, session *sessions.Session, creds accounts.Credentials,
	confirmPrompt ConfirmPrompt, grantRedirect GrantRedirect, landingRedirect LandingRedirect) error {

	identity, err := s.api.ValidateCredentials(ctx, creds)
	if err != nil {
		return errors.Wrap(err, "[Login] validate credentials")
	}

	session.UserRef = identity.UserRef
	session.SessionNonce = identity.SessionNonce

	if session.Pending == nil {
		landingRedirect()
		return nil
	}
	return s.run(ctx, session, session.Pending, confirmPrompt, grantRedirect)
}

// Logout terminates the upstream session best effort and resets the local
// one. An upstream failure never blocks logout.
func (s *Service) Logout(ctx context.Context, session *sessions.Session) {
	if session.SessionNonce != "" {
		if err := s.api.EndSession(ctx, session.SessionNonce); err != nil {
			log.Warn().Err(err).Msg("upstream session termination failed, clearing session anyway")
		}
	}
	session.Reset()
}

// ExchangeToken relays a code-for-tokens exchange to the account service.
// Stateless: no session interaction.
func (s *Service) ExchangeToken(ctx context.Context, code string) (*accounts.TokenPair, error) {
	if code == "" {
		return nil, ierrors.Wrapf(ierrors.ErrMalformedRequest, "[ExchangeToken] code is required")
	}
	pair, err := s.api.ExchangeCode(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeToken] exchange code")
	}
	return pair, nil
}

// run is the authenticated step of the flow: re-check the client's trust,
// then either grant or ask for confirmation. Trust is resolved fresh on
// every attempt since it can change between a client's calls.
func (s *Service) run(ctx context.Context, session *sessions.Session, params *oauthmodel.AuthorizeParams,
	confirmPrompt ConfirmPrompt, grantRedirect GrantRedirect) error {

	client, err := s.resolver.Resolve(ctx, params.ClientID)
	if err != nil {
		return errors.Wrap(err, "[run] resolve client")
	}

	if params.RedirectURI != "" && client.RedirectURI != "" && params.RedirectURI != client.RedirectURI {
		return ierrors.Wrapf(ierrors.ErrInvalidClient, "[run] redirect_uri does not match registration")
	}

	if !client.Trusted {
		// Confirmation is always re-collected, even mid-replay.
		session.SetPending(params)
		confirmPrompt(client)
		return nil
	}

	session.ConsumePending()
	return s.grant(ctx, session, params, grantRedirect)
}

// grant asks the account service for an authorization and redirects the
// user agent to the client with the code. A two-factor demand re-snapshots
// the request so the retry after the second factor can complete it.
func (s *Service) grant(ctx context.Context, session *sessions.Session, params *oauthmodel.AuthorizeParams,
	grantRedirect GrantRedirect) error {

	authz, err := s.api.CreateAuthorization(ctx, accounts.AuthorizeRequest{
		UserRef:  session.UserRef,
		ClientID: params.ClientID,
		Scope:    params.Scope,
	})
	if err != nil {
		if ierrors.Is(err, ierrors.ErrTwoFactorRequired) {
			session.SetPending(params)
		}
		return errors.Wrap(err, "[grant] create authorization")
	}

	grantRedirect(authz.Client.RedirectURI, authz.Grant.Code, params.State)
	return nil
}
