package accounts_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-gateway/accounts"
	"github.com/jrsteele09/go-identity-gateway/internal/config"
	ierrors "github.com/jrsteele09/go-identity-gateway/internal/errors"
)

const (
	testGrantCode    = "454118bc-902d-4a2c-9d5b-e2a2abb91f6e"
	testAccessToken  = "e51e8a64-29f1-4bbf-997e-391d84aa12a9"
	testRefreshToken = "faa180e4-5844-42f2-ad66-0c574a1dbed2"
	testSessionNonce = "0a80ac35-b9d8-4fab-9261-883bea77ad3a"
	testUserID       = "06dcaabe-f7cd-473a-aa10-df54045ff69c"
	testRedirectURI  = "https://dashboard.example.com/oauth/callback"

	testUserEmail    = "kerry@example.com"
	testUserPassword = "abcdefgh"

	serviceUsername = "identity-gateway"
	servicePassword = "service-secret"
)

// accountStub is an in-process stand-in for the upstream account service.
type accountStub struct {
	mu            sync.Mutex
	endedSessions []string
	lastAuthorize accounts.AuthorizeRequest
}

func (st *accountStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /oauth/authorizations", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		// User-credential calls carry an email as the basic-auth user.
		if strings.Contains(user, "@") && pass != testUserPassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if strings.HasPrefix(user, "two") && r.Header.Get(accounts.HeaderTwoFactorCode) == "" {
			w.Header().Set(accounts.HeaderTwoFactorRequired, "true")
			w.WriteHeader(http.StatusForbidden)
			return
		}

		var req accounts.AuthorizeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		st.mu.Lock()
		st.lastAuthorize = req
		st.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "68e3146b-be7e-4520-b60b-c4f06623084f",
			"client": map[string]any{
				"id":           req.ClientID,
				"name":         "Dashboard",
				"redirect_uri": testRedirectURI,
			},
			"grant": map[string]any{"code": testGrantCode, "expires_in": 300},
			"user":  map[string]any{"id": testUserID, "email": testUserEmail},
		})
	})

	mux.HandleFunc("GET /oauth/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           id,
			"name":         "An OAuth Client",
			"redirect_uri": testRedirectURI,
			"trusted":      id != "untrusted",
		})
	})

	mux.HandleFunc("POST /oauth/tokens", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  map[string]any{"token": testAccessToken, "expires_in": 7200},
			"refresh_token": map[string]any{"token": testRefreshToken, "expires_in": 2592000},
			"user":          map[string]any{"session_nonce": testSessionNonce},
		})
	})

	mux.HandleFunc("DELETE /oauth/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		st.mu.Lock()
		st.endedSessions = append(st.endedSessions, r.PathValue("id"))
		st.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func testConfig(baseURL string) config.EnvVars {
	return config.EnvVars{
		AccountAPIURL:      baseURL,
		AccountAPIUsername: serviceUsername,
		AccountAPIPassword: servicePassword,
		OAuthClientID:      "identity",
		UpstreamTimeout:    2 * time.Second,
	}
}

func setupClient(t *testing.T) (*accounts.Client, *accountStub) {
	t.Helper()
	stub := &accountStub{}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return accounts.New(testConfig(srv.URL)), stub
}

func TestValidateCredentials(t *testing.T) {
	client, _ := setupClient(t)

	identity, err := client.ValidateCredentials(t.Context(), accounts.Credentials{
		Email:    testUserEmail,
		Password: testUserPassword,
	})
	require.NoError(t, err)
	require.Equal(t, testUserID, identity.UserRef)
	require.Equal(t, testSessionNonce, identity.SessionNonce)
}

func TestValidateCredentialsBadPassword(t *testing.T) {
	client, _ := setupClient(t)

	_, err := client.ValidateCredentials(t.Context(), accounts.Credentials{
		Email:    testUserEmail,
		Password: "wrong",
	})
	require.ErrorIs(t, err, ierrors.ErrUnauthorized)
}

func TestValidateCredentialsTwoFactor(t *testing.T) {
	client, _ := setupClient(t)

	creds := accounts.Credentials{Email: "two@example.com", Password: testUserPassword}
	_, err := client.ValidateCredentials(t.Context(), creds)
	require.ErrorIs(t, err, ierrors.ErrTwoFactorRequired)

	creds.SecondFactor = "123456"
	identity, err := client.ValidateCredentials(t.Context(), creds)
	require.NoError(t, err)
	require.Equal(t, testUserID, identity.UserRef)
}

func TestCreateAuthorization(t *testing.T) {
	client, stub := setupClient(t)

	authz, err := client.CreateAuthorization(t.Context(), accounts.AuthorizeRequest{
		UserRef:  testUserID,
		ClientID: "dashboard",
		Scope:    "global",
	})
	require.NoError(t, err)
	require.Equal(t, testGrantCode, authz.Grant.Code)
	require.Equal(t, testRedirectURI, authz.Client.RedirectURI)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Equal(t, "dashboard", stub.lastAuthorize.ClientID)
	require.Equal(t, testUserID, stub.lastAuthorize.UserRef)
}

func TestFetchClient(t *testing.T) {
	client, _ := setupClient(t)

	fetched, err := client.FetchClient(t.Context(), "dashboard")
	require.NoError(t, err)
	require.True(t, fetched.Trusted)
	require.Equal(t, testRedirectURI, fetched.RedirectURI)

	fetched, err = client.FetchClient(t.Context(), "untrusted")
	require.NoError(t, err)
	require.False(t, fetched.Trusted)
}

func TestFetchClientUnknown(t *testing.T) {
	client, _ := setupClient(t)

	_, err := client.FetchClient(t.Context(), "missing")
	require.ErrorIs(t, err, ierrors.ErrInvalidClient)
}

func TestFetchClientEmptyID(t *testing.T) {
	client, _ := setupClient(t)

	_, err := client.FetchClient(t.Context(), "")
	require.ErrorIs(t, err, ierrors.ErrInvalidClient)
}

func TestExchangeCode(t *testing.T) {
	client, _ := setupClient(t)

	pair, err := client.ExchangeCode(t.Context(), testGrantCode)
	require.NoError(t, err)
	require.Equal(t, testAccessToken, pair.AccessToken.Value)
	require.Equal(t, 7200, pair.AccessToken.ExpiresIn)
	require.Equal(t, testRefreshToken, pair.RefreshToken.Value)
	require.Equal(t, testSessionNonce, pair.SessionNonce)
}

func TestExchangeCodeEmpty(t *testing.T) {
	client, _ := setupClient(t)

	_, err := client.ExchangeCode(t.Context(), "")
	require.ErrorIs(t, err, ierrors.ErrMalformedRequest)
}

func TestEndSession(t *testing.T) {
	client, stub := setupClient(t)

	require.NoError(t, client.EndSession(t.Context(), testSessionNonce))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Equal(t, []string{testSessionNonce}, stub.endedSessions)
}

func TestEndSessionEmptyNonceIsNoop(t *testing.T) {
	client, stub := setupClient(t)

	require.NoError(t, client.EndSession(t.Context(), ""))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Empty(t, stub.endedSessions)
}

func TestUpstreamTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.UpstreamTimeout = 20 * time.Millisecond
	client := accounts.New(cfg)

	_, err := client.FetchClient(t.Context(), "dashboard")
	require.ErrorIs(t, err, ierrors.ErrUpstreamUnavailable)
}

func TestUpstreamServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := accounts.New(testConfig(srv.URL))
	_, err := client.ExchangeCode(t.Context(), testGrantCode)
	require.ErrorIs(t, err, ierrors.ErrUpstreamUnavailable)
}

func TestUpstreamConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := accounts.New(testConfig(srv.URL))
	_, err := client.FetchClient(t.Context(), "dashboard")
	require.ErrorIs(t, err, ierrors.ErrUpstreamUnavailable)
}
