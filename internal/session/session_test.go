package session

import (
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/vibratodo/internal/credential"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	t.Setenv("VIBRATODO_TOKEN", "")
	return NewManager(credential.NewStore(keyring.NewArrayKeyring(nil)))
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestLoginLogout(t *testing.T) {
	m := newTestManager(t)
	assert.False(t, m.IsAuthenticated())

	require.NoError(t, m.Login(signed(t, time.Now().Add(time.Hour))))
	assert.True(t, m.IsAuthenticated())

	var torn int
	m.OnLogout(func() { torn++ })
	require.NoError(t, m.Logout())
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 1, torn)
}

func TestLoginRejectsExpiredAndEmpty(t *testing.T) {
	m := newTestManager(t)

	assert.ErrorIs(t, m.Login(signed(t, time.Now().Add(-time.Minute))), ErrExpired)
	assert.Error(t, m.Login("   "))
	assert.False(t, m.IsAuthenticated())
}

func TestOpaqueTokenCountsAsAuthenticated(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Login("opaque-api-token"))
	assert.True(t, m.IsAuthenticated())
}

func TestStoredTokenExpires(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Login(signed(t, time.Now().Add(time.Minute))))

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.False(t, m.IsAuthenticated())
}
