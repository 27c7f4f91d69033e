// Package session tracks whether a user is signed in to the record service.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/nhle/vibratodo/internal/credential"
)

// ErrExpired is returned by Login for a token whose exp claim has passed.
var ErrExpired = errors.New("session token expired")

// Secrets is where the session token is kept.
type Secrets interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Manager answers isAuthenticated and performs logout. Callers register
// teardown hooks that run on logout, such as discarding the current task
// list session.
type Manager struct {
	secrets Secrets
	now     func() time.Time

	mu      sync.Mutex
	onLeave []func()
}

// NewManager returns a manager over secrets.
func NewManager(secrets Secrets) *Manager {
	return &Manager{secrets: secrets, now: time.Now}
}

// Token returns the stored session token, or "" when signed out.
func (m *Manager) Token() string {
	tok, err := m.secrets.Get(credential.KeySessionToken)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(tok)
}

// IsAuthenticated reports whether a token is stored and, if it is a JWT
// carrying an exp claim, that it has not expired.
func (m *Manager) IsAuthenticated() bool {
	tok := m.Token()
	if tok == "" {
		return false
	}
	return !m.expired(tok)
}

// Login stores token as the current session.
func (m *Manager) Login(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session token is empty")
	}
	if m.expired(token) {
		return ErrExpired
	}
	if err := m.secrets.Set(credential.KeySessionToken, token); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Logout forgets the stored token and runs every teardown hook.
func (m *Manager) Logout() error {
	err := m.secrets.Delete(credential.KeySessionToken)

	m.mu.Lock()
	hooks := append([]func(){}, m.onLeave...)
	m.mu.Unlock()
	for _, h := range hooks {
		h()
	}

	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// OnLogout registers fn to run when the session ends.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLeave = append(m.onLeave, fn)
}

// expired parses tok without verifying it. Opaque tokens never expire
// client-side; the record service is the authority on them.
func (m *Manager) expired(tok string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	return !claims.VerifyExpiresAt(m.now().Unix(), false)
}
