package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/account-service/internal/core/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_IssueAndParse(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewTokenManager(testSecret, time.Hour)
	m.now = func() time.Time { return now }

	session, err := m.Issue(&domain.Account{ID: "user-1", Email: "user@example.com"}, domain.AuthMethodGoogle)
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, now.Add(time.Hour), session.ExpiresAt)

	principal, err := m.Parse(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: "user-1", Email: "user@example.com", AuthMethod: domain.AuthMethodGoogle}, principal)
}

func TestTokenManager_ParseExpired(t *testing.T) {
	now := time.Now()
	m := NewTokenManager(testSecret, time.Minute)
	m.now = func() time.Time { return now }

	session, err := m.Issue(&domain.Account{ID: "user-1"}, domain.AuthMethodPassword)
	require.NoError(t, err)

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = m.Parse(session.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenManager_ParseRejects(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)

	foreign, err := other.Issue(&domain.Account{ID: "user-1"}, domain.AuthMethodPassword)
	require.NoError(t, err)
	_, err = m.Parse(foreign.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "wrong secret")

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		TokenType:        "refresh",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = m.Parse(wrongType)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "wrong token type")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		TokenType:        tokenTypeSession,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(none)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "alg none")

	_, err = m.Parse("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
