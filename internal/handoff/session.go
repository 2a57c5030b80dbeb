package handoff

import (
	"context"
	"sync"
)

// accessTokenKey is the only credential persisted to the backing store.
// The refresh token and the derived identity live in process memory alone,
// so a restarted client re-authenticates rather than resuming a refresh
// chain from durable storage.
const accessTokenKey = "session-access"

// SessionStore owns the session credentials. It satisfies the transport
// layer's Credentials interface: at most one access token is current at any
// time, and installing a new pair supersedes the old one atomically.
type SessionStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	backing Store
}

// NewSessionStore builds a SessionStore over the given backing Store and
// resumes any persisted access token. A resumed token may well be expired;
// the first 401 sorts that out through the normal refresh path, which
// without a refresh token degrades to a forced re-login.
func NewSessionStore(backing Store) *SessionStore {
	s := &SessionStore{backing: backing}
	if v, err := backing.Get(context.Background(), accessTokenKey); err == nil {
		s.access = v
	}
	return s
}

// AccessToken returns the current access token, or "" when signed out.
func (s *SessionStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// RefreshToken returns the current refresh token, or "" when none is held.
func (s *SessionStore) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// SetTokens installs a new credential pair as current. The previous access
// token is invalid for retry purposes from this point on. Only the access
// token is written through to the backing store.
func (s *SessionStore) SetTokens(access, refresh string) {
	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.mu.Unlock()
	_ = s.backing.Put(context.Background(), accessTokenKey, access, 0)
}

// Clear wipes both credentials and the persisted copy. Called on logout and
// on refresh failure.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.access = ""
	s.refresh = ""
	s.mu.Unlock()
	_ = s.backing.Delete(context.Background(), accessTokenKey)
}

// Authenticated reports whether an access token is currently installed.
func (s *SessionStore) Authenticated() bool { return s.AccessToken() != "" }
