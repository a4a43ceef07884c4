// Package session tracks whether a shopper session is present. The session
// is persisted under the "user" key and observers are told when it changes.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/internal/storage/kv"
)

// ErrTokenRequired is returned by Login when the user carries no token.
var ErrTokenRequired = errors.New("session token required")

// User is the signed-in shopper as returned by the auth service.
type User struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token,omitempty"`
}

// Observer is called after every session change with the new user, or nil
// once the session is gone.
type Observer func(ctx context.Context, u *User)

// Manager owns the current session.
type Manager struct {
	mu        sync.RWMutex
	store     kv.Store
	lg        *zap.Logger
	user      *User
	observers []Observer
	now       func() time.Time
}

// New creates a Manager hydrated from the store.
func New(ctx context.Context, store kv.Store, lg *zap.Logger) *Manager {
	if lg == nil {
		lg = zap.NewNop()
	}
	m := &Manager{store: store, lg: lg, now: time.Now}

	var u User
	ok, err := kv.LoadJSON(ctx, store, kv.KeyUser, &u)
	switch {
	case err != nil:
		lg.Warn("Discarding unreadable session", zap.Error(err))
	case ok && u.Token != "":
		m.user = &u
	}
	return m
}

// Subscribe registers an observer. Observers run synchronously, in
// registration order, on the goroutine that changed the session.
func (m *Manager) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observers = append(m.observers, o)
}

// Login stores u as the current session and notifies observers.
func (m *Manager) Login(ctx context.Context, u User) error {
	if u.Token == "" {
		return ErrTokenRequired
	}
	if err := kv.SaveJSON(ctx, m.store, kv.KeyUser, u); err != nil {
		return errors.Wrap(err, "persist session")
	}

	m.mu.Lock()
	m.user = &u
	observers := m.observers
	m.mu.Unlock()

	m.lg.Info("Session started", zap.String("user_id", u.ID))
	cp := u
	for _, o := range observers {
		o(ctx, &cp)
	}
	return nil
}

// Logout drops the session and notifies observers.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Remove(ctx, kv.KeyUser); err != nil {
		return errors.Wrap(err, "remove session")
	}

	m.mu.Lock()
	m.user = nil
	observers := m.observers
	m.mu.Unlock()

	m.lg.Info("Session ended")
	for _, o := range observers {
		o(ctx, nil)
	}
	return nil
}

// Current returns a copy of the signed-in user, if a live session exists.
func (m *Manager) Current() (*User, bool) {
	m.mu.RLock()
	u := m.user
	m.mu.RUnlock()

	if u == nil || m.expired(u.Token) {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// Authenticated reports whether a live session exists.
func (m *Manager) Authenticated() bool {
	_, ok := m.Current()
	return ok
}

// Token returns the bearer token of the live session, or "".
func (m *Manager) Token() string {
	u, ok := m.Current()
	if !ok {
		return ""
	}
	return u.Token
}

// expired reads the exp claim without verifying the signature; the client
// never holds the signing key. Opaque or claim-less tokens do not expire.
func (m *Manager) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !m.now().Before(exp.Time)
}
