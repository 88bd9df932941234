// Package session holds the console's credential: the bearer token and the admin profile,
// persisted to a long-lived Storage and mirrored to the accessToken cookie.
package session

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"savings-admin/console/internal/security"
	"savings-admin/console/internal/session/domain"
)

// Store is the session context shared by the API client and the dashboard. Safe for concurrent use.
// Call Hydrate once on start to load what a previous run persisted.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	mirror  CookieMirror
	token   string
	admin   *domain.Admin
}

// NewStore returns a Store over storage. storage nil means no local store is reachable
// (e.g. a server-side render): reads report no session. mirror may be nil.
func NewStore(storage Storage, mirror CookieMirror) *Store {
	return &Store{storage: storage, mirror: mirror}
}

// Hydrate replaces the in-memory state with what storage holds and re-syncs the cookie mirror.
// An unreachable storage or malformed profile yields an empty token or nil profile, not an error.
// It reports whether the token differs from the one held before, i.e. whether another process
// logged out or in since the last read.
func (s *Store) Hydrate() (changed bool) {
	token, admin := s.read()

	s.mu.Lock()
	changed = s.token != token
	s.token = token
	s.admin = admin
	s.mu.Unlock()

	if token != "" {
		s.setCookie(TokenCookie(token))
	} else {
		s.setCookie(ExpiredCookie())
	}
	return changed
}

func (s *Store) read() (string, *domain.Admin) {
	if s.storage == nil {
		return "", nil
	}
	token, ok, err := s.storage.Get(domain.TokenKey)
	if err != nil {
		log.Printf("session: read token: %v", err)
		return "", nil
	}
	if !ok {
		token = ""
	}
	raw, ok, err := s.storage.Get(domain.AdminKey)
	if err != nil || !ok {
		return token, nil
	}
	return token, decodeAdmin(raw)
}

// StoreToken persists token and sets the accessToken cookie. Storage is written first;
// on failure neither the in-memory token nor the cookie changes.
func (s *Store) StoreToken(token string) error {
	if token == "" {
		return errors.New("session: empty token")
	}
	if s.storage != nil {
		if err := s.storage.Set(domain.TokenKey, token); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.setCookie(TokenCookie(token))
	return nil
}

// Token returns the current token. ok is false when there is no session or no local store.
func (s *Store) Token() (string, bool) {
	if s.storage == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// ClearToken removes the token from storage, memory and the cookie. Idempotent.
// Storage is cleared first; on failure the token stays in memory and in the cookie.
func (s *Store) ClearToken() error {
	if s.storage != nil {
		if err := s.storage.Delete(domain.TokenKey); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.setCookie(ExpiredCookie())
	return nil
}

// StoreAdmin persists the display profile.
func (s *Store) StoreAdmin(admin domain.Admin) error {
	raw, err := json.Marshal(admin)
	if err != nil {
		return err
	}
	if s.storage != nil {
		if err := s.storage.Set(domain.AdminKey, string(raw)); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.admin = &admin
	s.mu.Unlock()
	return nil
}

// Admin returns a copy of the stored profile, or nil when none is stored, the stored value
// is malformed, or there is no local store.
func (s *Store) Admin() *domain.Admin {
	if s.storage == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.admin == nil {
		return nil
	}
	a := *s.admin
	return &a
}

// ClearAdmin removes the profile. Idempotent.
func (s *Store) ClearAdmin() error {
	if s.storage != nil {
		if err := s.storage.Delete(domain.AdminKey); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.admin = nil
	s.mu.Unlock()
	return nil
}

// Clear removes token and profile, returning the first error.
func (s *Store) Clear() error {
	errToken := s.ClearToken()
	errAdmin := s.ClearAdmin()
	if errToken != nil {
		return errToken
	}
	return errAdmin
}

// Active reports whether a token is held and, when it is a JWT with an exp claim,
// whether that exp is still in the future at now.
func (s *Store) Active(now time.Time) bool {
	token, ok := s.Token()
	if !ok {
		return false
	}
	info, err := security.InspectToken(token)
	if err != nil {
		return true
	}
	return !info.Expired(now)
}

// Snapshot returns the current session. Token is empty when there is none.
func (s *Store) Snapshot() domain.Session {
	token, _ := s.Token()
	sess := domain.Session{Token: token, Admin: s.Admin()}
	if info, err := security.InspectToken(token); err == nil {
		sess.ExpiresAt = info.ExpiresAt
	}
	return sess
}

func (s *Store) setCookie(c *http.Cookie) {
	if s.mirror != nil {
		s.mirror.SetCookie(c)
	}
}

func decodeAdmin(raw string) *domain.Admin {
	if raw == "" {
		return nil
	}
	var a domain.Admin
	if err := json.Unmarshal([]byte(raw), &a); err != nil || a == (domain.Admin{}) {
		return nil
	}
	return &a
}
