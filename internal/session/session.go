package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DefaultKey is the storage key the session token is persisted under
const DefaultKey = "auth_token"

// Session owns the bearer token issued by the backend.
// A session is empty until Begin or Restore find a token and becomes empty again on End.
type Session struct {
	storage Storage
	key     string

	mtx   sync.RWMutex
	token *oauth2.Token
}

// New creates a new empty session persisting its token using the given storage.
// A nil storage keeps the token in memory only.
func New(storage Storage, key string) *Session {
	if key == "" {
		key = DefaultKey
	}
	return &Session{
		storage: storage,
		key:     key,
	}
}

// Restore loads a previously persisted token.
// It reports whether a token was found.
func (session *Session) Restore(ctx context.Context) (bool, error) {
	if session.storage == nil {
		return session.Authenticated(), nil
	}
	token, err := session.storage.Load(ctx, session.key)
	if err != nil {
		return false, err
	}
	session.mtx.Lock()
	defer session.mtx.Unlock()
	session.token = token
	return token != nil && token.AccessToken != "", nil
}

// Begin replaces the held token and persists it
func (session *Session) Begin(ctx context.Context, token *oauth2.Token) error {
	session.mtx.Lock()
	session.token = token
	session.mtx.Unlock()

	if session.storage == nil {
		return nil
	}
	return session.storage.Save(ctx, session.key, token)
}

// End drops the held token and removes it from the storage.
// The in-memory token is dropped even if the storage fails.
func (session *Session) End(ctx context.Context) error {
	session.mtx.Lock()
	session.token = nil
	session.mtx.Unlock()

	if session.storage == nil {
		return nil
	}
	return session.storage.Delete(ctx, session.key)
}

// Token returns a copy of the held token or nil
func (session *Session) Token() *oauth2.Token {
	session.mtx.RLock()
	defer session.mtx.RUnlock()
	if session.token == nil {
		return nil
	}
	copied := *session.token
	return &copied
}

// AccessToken returns the bearer string to present to the backend or an empty string
func (session *Session) AccessToken() string {
	session.mtx.RLock()
	defer session.mtx.RUnlock()
	if session.token == nil {
		return ""
	}
	return session.token.AccessToken
}

// RefreshToken returns the refresh token issued alongside the access token, if any
func (session *Session) RefreshToken() string {
	session.mtx.RLock()
	defer session.mtx.RUnlock()
	if session.token == nil {
		return ""
	}
	return session.token.RefreshToken
}

// Authenticated reports whether the session holds an access token
func (session *Session) Authenticated() bool {
	return session.AccessToken() != ""
}

// Expired reports whether the held token carries an expiry that has passed.
// Tokens without an expiry never expire client-side.
func (session *Session) Expired() bool {
	session.mtx.RLock()
	defer session.mtx.RUnlock()
	if session.token == nil || session.token.Expiry.IsZero() {
		return false
	}
	return !session.token.Expiry.After(time.Now())
}

// Key returns the storage key of the session
func (session *Session) Key() string {
	return session.key
}
