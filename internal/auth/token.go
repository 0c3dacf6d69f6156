package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/duynhne/account-service/internal/core/domain"
)

const tokenTypeSession = "session"

// Claims represents JWT claims of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	AuthMethod string `json:"auth_method"`
	TokenType  string `json:"typ"`
}

// TokenManager issues and parses HMAC-signed session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager with the provided secret key and session lifetime.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a session for account signed in with authMethod.
func (m *TokenManager) Issue(account *domain.Account, authMethod string) (domain.Session, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:      account.Email,
		AuthMethod: authMethod,
		TokenType:  tokenTypeSession,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return domain.Session{
		AccessToken: signed,
		UserID:      account.ID,
		ExpiresAt:   expiresAt,
	}, nil
}

// Parse validates tokenString and returns the principal it was issued for.
func (m *TokenManager) Parse(tokenString string) (domain.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return domain.Principal{}, fmt.Errorf("parse session token: %w", domain.ErrInvalidToken)
	}
	if !token.Valid || claims.TokenType != tokenTypeSession || claims.Subject == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	return domain.Principal{
		UserID:     claims.Subject,
		Email:      claims.Email,
		AuthMethod: claims.AuthMethod,
	}, nil
}
