package sessions

import (
	"crypto/sha256"
	"io"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/hkdf"

	ierrors "github.com/jrsteele09/go-identity-gateway/internal/errors"
)

const cookieName = "identity_session"

// Store encodes sessions into a signed, encrypted cookie and back. The
// cookie is scoped to a shared parent domain so the session nonce round
// trips across cooperating subdomains.
type Store struct {
	codec  *securecookie.SecureCookie
	domain string
	maxAge int
}

// NewStore derives the cookie signing and encryption keys from a single
// secret and returns a ready to use store. maxAge is the cookie lifetime in
// seconds; domain may be empty for host-only cookies.
func NewStore(secret string, domain string, maxAge int) (*Store, error) {
	if secret == "" {
		return nil, errors.New("[NewStore] cookie secret is required")
	}

	hashKey, blockKey, err := deriveKeys(secret)
	if err != nil {
		return nil, errors.Wrap(err, "[NewStore] key derivation failed")
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(maxAge)

	return &Store{
		codec:  codec,
		domain: domain,
		maxAge: maxAge,
	}, nil
}

// Load decodes the session cookie from the request. A missing, expired or
// tampered cookie yields an empty anonymous session, never an error.
func (st *Store) Load(r *http.Request) *Session {
	session := &Session{}

	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return session
	}

	if err := st.codec.Decode(cookieName, cookie.Value, session); err != nil {
		log.Debug().Err(ierrors.Wrapf(ierrors.ErrSessionDecode, "%v", err)).Msg("session cookie rejected, treating as anonymous")
		return &Session{}
	}
	return session
}

// Save writes the session onto the outgoing response. Must be called before
// the response body is written.
func (st *Store) Save(w http.ResponseWriter, r *http.Request, session *Session) error {
	encoded, err := st.codec.Encode(cookieName, session)
	if err != nil {
		return errors.Wrap(err, "[Store.Save] failed to encode session")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   st.domain,
		MaxAge:   st.maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie on the outgoing response.
func (st *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Domain:   st.domain,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// deriveKeys stretches the configured secret into independent 32 byte hash
// and block keys for securecookie.
func deriveKeys(secret string) (hashKey, blockKey []byte, err error) {
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("identity-gateway session cookie"))

	hashKey = make([]byte, 32)
	if _, err := io.ReadFull(kdf, hashKey); err != nil {
		return nil, nil, err
	}
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(kdf, blockKey); err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}
