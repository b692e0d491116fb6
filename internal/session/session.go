// Package session keeps the Rezzy bearer token and username between requests.
// The networking layer receives a Store explicitly; there is no package-level token.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/rezzydesk/internal/internaltypes"
)

type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (s Session) Valid() bool { return strings.TrimSpace(s.Token) != "" }

// Store is a key-value home for the current session. Load returns
// internaltypes.ErrNoSession when nothing is stored.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// ExpiresAt reads the exp claim of a JWT access token without checking its signature.
// The server stays the authority; this only lets the CLI warn early.
func ExpiresAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether the token carries an exp claim that is already past.
func Expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	return ok && !now.Before(exp)
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	cur *Session
}

func NewMemoryStore(initial *Session) *MemoryStore {
	return &MemoryStore{cur: initial}
}

func (m *MemoryStore) Load(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil || !m.cur.Valid() {
		return Session{}, internaltypes.ErrNoSession
	}
	return *m.cur, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if !s.Valid() {
		return errors.New("session: empty token")
	}
	m.mu.Lock()
	m.cur = &s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.cur = nil
	m.mu.Unlock()
	return nil
}
