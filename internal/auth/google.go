package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/duynhne/account-service/internal/core/domain"
)

// oauthAccessDenied is the OAuth2 error code sent when the user dismisses the consent screen.
const oauthAccessDenied = "access_denied"

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleClaims are the ID token claims used for federated sign-in.
type GoogleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Nonce         string `json:"nonce"`
}

// GoogleProvider exchanges authorization codes for Google ID tokens.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a provider for the given OAuth2 client.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthCodeURL returns the consent URL; Google echoes hashedNonce in the ID token.
func (p *GoogleProvider) AuthCodeURL(state, hashedNonce string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", hashedNonce))
}

// RequestCredential exchanges req.Code in the background and reports the result to callback.
func (p *GoogleProvider) RequestCredential(ctx context.Context, req domain.CredentialRequest, callback func(domain.Credential, error)) {
	if req.Error != "" {
		err := fmt.Errorf("provider returned %q: %w", req.Error, domain.ErrInvalidCredentials)
		if req.Error == oauthAccessDenied {
			err = domain.ErrCredentialCancelled
		}
		go callback(domain.Credential{}, err)
		return
	}

	go func() {
		var opts []oauth2.AuthCodeOption
		if req.RedirectURI != "" {
			opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", req.RedirectURI))
		}

		token, err := p.config.Exchange(ctx, req.Code, opts...)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				callback(domain.Credential{}, domain.ErrCredentialCancelled)
				return
			}
			callback(domain.Credential{}, fmt.Errorf("exchange authorization code: %w", err))
			return
		}

		idToken, ok := token.Extra("id_token").(string)
		if !ok || idToken == "" {
			callback(domain.Credential{Type: "oauth2_access_token", Token: token.AccessToken}, nil)
			return
		}

		claims, err := ParseGoogleIDToken(idToken, p.config.ClientID, time.Now())
		if err != nil {
			callback(domain.Credential{}, err)
			return
		}
		if req.HashedNonce != "" && claims.Nonce != req.HashedNonce {
			callback(domain.Credential{}, fmt.Errorf("id token nonce mismatch: %w", domain.ErrInvalidToken))
			return
		}

		callback(domain.Credential{Type: domain.CredentialTypeGoogleIDToken, Token: idToken}, nil)
	}()
}

// ParseGoogleIDToken checks the issuer, audience and expiry of an ID token.
// The signature is not verified: tokens reach this service only from Google's
// token endpoint over TLS, authenticated with the client secret.
func ParseGoogleIDToken(idToken, clientID string, now time.Time) (*GoogleClaims, error) {
	claims := &GoogleClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", domain.ErrInvalidToken)
	}

	if !googleIssuers[claims.Issuer] {
		return nil, fmt.Errorf("unexpected issuer %q: %w", claims.Issuer, domain.ErrInvalidToken)
	}
	audienceOK := false
	for _, aud := range claims.Audience {
		if aud == clientID {
			audienceOK = true
			break
		}
	}
	if !audienceOK {
		return nil, fmt.Errorf("unexpected audience: %w", domain.ErrInvalidToken)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now) {
		return nil, fmt.Errorf("id token expired: %w", domain.ErrInvalidToken)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("id token lacks subject or email: %w", domain.ErrInvalidToken)
	}

	return claims, nil
}
