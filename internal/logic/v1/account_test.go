package v1

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/auth"
	"github.com/duynhne/account-service/internal/core/domain"
	"github.com/duynhne/account-service/internal/core/repository/memory"
)

const testGoogleClientID = "client-123.apps.googleusercontent.com"

type captureMailer struct {
	mu     sync.Mutex
	sent   map[string]string // email -> token
	failed error
}

func (m *captureMailer) SendRecovery(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed != nil {
		return m.failed
	}
	if m.sent == nil {
		m.sent = make(map[string]string)
	}
	m.sent[email] = token
	return nil
}

func newTestAccountService(t *testing.T) (*AccountService, *memory.Store, *captureMailer, *auth.TokenManager) {
	t.Helper()
	store := memory.NewStore()
	mailer := &captureMailer{}
	tokens := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	svc := NewAccountService(AccountDeps{
		Accounts:       store,
		Recovery:       store,
		Hasher:         auth.NewPasswordHasher(1024, 1, 1),
		Tokens:         tokens,
		Mailer:         mailer,
		GoogleClientID: testGoogleClientID,
		RecoveryTTL:    time.Minute,
		Logger:         zap.NewNop(),
	})
	return svc, store, mailer, tokens
}

func googleIDToken(t *testing.T, subject, email string, verified bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.GoogleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   subject,
			Audience:  jwt.ClaimStrings{testGoogleClientID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:         email,
		EmailVerified: verified,
	})
	signed, err := token.SignedString([]byte("google-key-not-checked"))
	require.NoError(t, err)
	return signed
}

func TestAccountService_SignUpAndAuthenticate(t *testing.T) {
	svc, _, _, tokens := newTestAccountService(t)
	ctx := context.Background()

	created, err := svc.SignUp(ctx, " User@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, created.AccessToken)

	session, err := svc.Authenticate(ctx, "user@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, session.UserID)

	principal, err := tokens.Parse(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: created.UserID, Email: "user@example.com", AuthMethod: domain.AuthMethodPassword}, principal)
}

func TestAccountService_SignUpRejects(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "not-an-email", "password")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.SignUp(ctx, "user@example.com", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyPassword)

	_, err = svc.SignUp(ctx, "user@example.com", "password")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "USER@example.com", "password")
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestAccountService_AuthenticateFailures(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "user@example.com", "right")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "user@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "right")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAccountService_RecoveryFlow(t *testing.T) {
	svc, _, mailer, _ := newTestAccountService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "user@example.com", "old-password")
	require.NoError(t, err)

	require.NoError(t, svc.SendRecoveryEmail(ctx, "user@example.com"))
	token := mailer.sent["user@example.com"]
	require.NotEmpty(t, token)

	require.NoError(t, svc.ResetPassword(ctx, token, "new-password"))

	_, err = svc.Authenticate(ctx, "user@example.com", "old-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "user@example.com", "new-password")
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, token, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAccountService_ResetPassword_TokenForRemovedAccount(t *testing.T) {
	svc, store, _, _ := newTestAccountService(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "orphan-token", "missing-account", time.Minute))

	err := svc.ResetPassword(ctx, "orphan-token", "new-password")

	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAccountService_SendRecoveryEmail_UnknownAddressIsSilent(t *testing.T) {
	svc, _, mailer, _ := newTestAccountService(t)

	require.NoError(t, svc.SendRecoveryEmail(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.sent)
}

func TestAccountService_SendRecoveryEmail_MailerFailure(t *testing.T) {
	svc, _, mailer, _ := newTestAccountService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "user@example.com", "pw")
	require.NoError(t, err)
	mailer.failed = assert.AnError

	assert.ErrorIs(t, svc.SendRecoveryEmail(ctx, "user@example.com"), assert.AnError)
}

func TestAccountService_ExchangeFederatedToken(t *testing.T) {
	svc, store, _, tokens := newTestAccountService(t)
	ctx := context.Background()

	first, err := svc.ExchangeFederatedToken(ctx, googleIDToken(t, "google-sub-1", "Fed@Example.com", true))
	require.NoError(t, err)

	again, err := svc.ExchangeFederatedToken(ctx, googleIDToken(t, "google-sub-1", "fed@example.com", true))
	require.NoError(t, err)
	assert.Equal(t, first.UserID, again.UserID)

	account, err := store.GetByID(ctx, first.UserID)
	require.NoError(t, err)
	assert.Equal(t, "fed@example.com", account.Email)
	assert.Empty(t, account.PasswordHash)

	principal, err := tokens.Parse(first.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.AuthMethodGoogle, principal.AuthMethod)
}

func TestAccountService_ExchangeFederatedToken_LinksVerifiedEmail(t *testing.T) {
	svc, _, _, tokens := newTestAccountService(t)
	ctx := context.Background()
	created, err := svc.SignUp(ctx, "user@example.com", "pw")
	require.NoError(t, err)

	session, err := svc.ExchangeFederatedToken(ctx, googleIDToken(t, "google-sub-2", "user@example.com", true))
	require.NoError(t, err)
	assert.Equal(t, created.UserID, session.UserID)

	principal, err := tokens.Parse(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.AuthMethodGoogle, principal.AuthMethod)
}

func TestAccountService_ExchangeFederatedToken_Rejects(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.ExchangeFederatedToken(ctx, googleIDToken(t, "sub", "user@example.com", false))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.ExchangeFederatedToken(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAccountService_Current(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)

	email, ok := svc.CurrentEmail(context.Background())
	assert.False(t, ok)
	assert.Empty(t, email)
	assert.Empty(t, svc.CurrentUserID(context.Background()))

	ctx := domain.WithPrincipal(context.Background(), domain.Principal{UserID: "u1", Email: "a@b.co", AuthMethod: domain.AuthMethodGoogle})
	email, ok = svc.CurrentEmail(ctx)
	assert.True(t, ok)
	assert.Equal(t, "a@b.co", email)
	method, ok := svc.CurrentAuthMethod(ctx)
	assert.True(t, ok)
	assert.Equal(t, domain.AuthMethodGoogle, method)
	assert.Equal(t, "u1", svc.CurrentUserID(ctx))
}
