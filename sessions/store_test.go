package sessions_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-gateway/oauthmodel"
	"github.com/jrsteele09/go-identity-gateway/sessions"
)

const (
	testSecret = "an-adequately-long-cookie-secret"
	testDomain = "example.org"
)

func newTestStore(t *testing.T) *sessions.Store {
	t.Helper()
	store, err := sessions.NewStore(testSecret, testDomain, 3600)
	require.NoError(t, err)
	return store
}

// roundTrip saves the session and loads it back through the cookie it wrote.
func roundTrip(t *testing.T, store *sessions.Store, session *sessions.Session) *sessions.Session {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Save(w, r, session))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	return store.Load(next)
}

func TestNewStoreRequiresSecret(t *testing.T) {
	_, err := sessions.NewStore("", testDomain, 3600)
	require.Error(t, err)
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)

	session := &sessions.Session{
		UserRef:      "06dcaabe-f7cd-473a-aa10-df54045ff69c",
		SessionNonce: "0a80ac35-b9d8-4fab-9261-883bea77ad3a",
		Pending: &oauthmodel.AuthorizeParams{
			ClientID: "dashboard",
			Scope:    "global",
			State:    "abc123",
		},
	}

	loaded := roundTrip(t, store, session)
	require.Equal(t, session.UserRef, loaded.UserRef)
	require.Equal(t, session.SessionNonce, loaded.SessionNonce)
	require.NotNil(t, loaded.Pending)
	require.Equal(t, "dashboard", loaded.Pending.ClientID)
	require.Equal(t, "abc123", loaded.Pending.State)
}

func TestCookieAttributes(t *testing.T) {
	store := newTestStore(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Save(w, r, &sessions.Session{UserRef: "user-1"}))

	cookie := w.Result().Cookies()[0]
	require.Equal(t, testDomain, cookie.Domain)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, 3600, cookie.MaxAge)
}

func TestMissingCookieYieldsAnonymousSession(t *testing.T) {
	store := newTestStore(t)

	session := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, session)
	require.False(t, session.Authenticated())
	require.Nil(t, session.Pending)
}

func TestTamperedCookieYieldsAnonymousSession(t *testing.T) {
	store := newTestStore(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Save(w, r, &sessions.Session{UserRef: "user-1"}))
	cookie := w.Result().Cookies()[0]
	cookie.Value = "tampered" + cookie.Value

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	session := store.Load(next)
	require.False(t, session.Authenticated())
}

func TestCookieFromDifferentSecretIsRejected(t *testing.T) {
	store := newTestStore(t)
	other, err := sessions.NewStore("a-completely-different-secret-key", testDomain, 3600)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Save(w, r, &sessions.Session{UserRef: "user-1"}))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(w.Result().Cookies()[0])
	require.False(t, other.Load(next).Authenticated())
}

func TestClearExpiresCookie(t *testing.T) {
	store := newTestStore(t)

	w := httptest.NewRecorder()
	store.Clear(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Less(t, cookies[0].MaxAge, 0)
	require.Empty(t, cookies[0].Value)
}

func TestPendingIsConsumedExactlyOnce(t *testing.T) {
	session := &sessions.Session{}
	session.SetPending(&oauthmodel.AuthorizeParams{ClientID: "dashboard"})

	first := session.ConsumePending()
	require.NotNil(t, first)
	require.Equal(t, "dashboard", first.ClientID)
	require.Nil(t, session.ConsumePending())
}

func TestNewPendingOverwritesPrevious(t *testing.T) {
	session := &sessions.Session{}
	session.SetPending(&oauthmodel.AuthorizeParams{ClientID: "first"})
	session.SetPending(&oauthmodel.AuthorizeParams{ClientID: "second"})

	require.Equal(t, "second", session.ConsumePending().ClientID)
}

func TestResetDropsIdentityAndPending(t *testing.T) {
	session := &sessions.Session{
		UserRef:      "user-1",
		SessionNonce: "nonce-1",
		Pending:      &oauthmodel.AuthorizeParams{ClientID: "dashboard"},
	}
	session.Reset()

	require.False(t, session.Authenticated())
	require.Empty(t, session.SessionNonce)
	require.Nil(t, session.Pending)
}
