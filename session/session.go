package session

import (
	"context"
	"errors"
	"time"

	"github.com/upb/newsroom-api/identity"
)

// ErrUnbound is returned when saving a session that has no backing store
var ErrUnbound = errors.New("session: not bound to a store")

// AuthRecord is the authentication state cached on a session after a
// successful token verification
type AuthRecord struct {
	UID          string           `json:"uid"`
	MID          string           `json:"mid"`
	JWT          string           `json:"jwt"`
	Exp          int64            `json:"exp"`
	Roles        []string         `json:"roles"`
	DecodedToken *identity.Claims `json:"decodedToken"`
}

// Session is the server-held record for one client. A loaded session is
// bound to the store it came from so request handlers can persist it.
type Session struct {
	ID        string      `json:"id"`
	Auth      *AuthRecord `json:"auth,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt time.Time   `json:"expiresAt"`

	store Store
}

// New creates an unsaved session bound to store
func New(store Store, ttl time.Duration, now time.Time) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		store:     store,
	}, nil
}

// Resume creates an unsaved session under an id the client already holds.
// Anonymous sessions are never persisted, so their cookie outlives the
// store entry.
func Resume(store Store, id string, ttl time.Duration, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		store:     store,
	}
}

// Bind attaches the session to store
func (s *Session) Bind(store Store) {
	s.store = store
}

// Save persists the session synchronously
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return ErrUnbound
	}
	return s.store.Save(ctx, s)
}

// Destroy removes the session from its store and clears cached auth state
func (s *Session) Destroy(ctx context.Context) error {
	s.Auth = nil
	if s.store == nil {
		return nil
	}
	return s.store.Delete(ctx, s.ID)
}

// ExtendTo moves the expiry forward to t, never past now+maxTTL.
// The expiry is never shortened.
func (s *Session) ExtendTo(t time.Time, now time.Time, maxTTL time.Duration) {
	if maxTTL > 0 {
		if limit := now.Add(maxTTL); t.After(limit) {
			t = limit
		}
	}
	if t.After(s.ExpiresAt) {
		s.ExpiresAt = t
	}
}

// Valid reports whether sess carries reusable authentication state for
// rawHeader at now. The cached record must have been produced from exactly
// the same header and must not have expired.
func Valid(sess *Session, rawHeader string, now time.Time) bool {
	if sess == nil || sess.Auth == nil || sess.Auth.DecodedToken == nil {
		return false
	}
	if sess.Auth.JWT != rawHeader {
		return false
	}
	return now.Unix() < sess.Auth.Exp
}
