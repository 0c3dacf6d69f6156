package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/auth"
	"github.com/duynhne/account-service/internal/core/domain"
	"github.com/duynhne/account-service/middleware"
)

var _ domain.AccountService = (*AccountService)(nil)

// AccountDeps are the collaborators of AccountService.
type AccountDeps struct {
	Accounts       domain.AccountRepository
	Recovery       domain.RecoveryTokenStore
	Hasher         *auth.PasswordHasher
	Tokens         *auth.TokenManager
	Mailer         domain.Mailer
	GoogleClientID string
	RecoveryTTL    time.Duration
	Logger         *zap.Logger
}

// AccountService is the identity backend: password and federated sign-in,
// password recovery, and the current principal.
type AccountService struct {
	deps AccountDeps
	now  func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(deps AccountDeps) *AccountService {
	return &AccountService{deps: deps, now: time.Now}
}

func (s *AccountService) CurrentEmail(ctx context.Context) (string, bool) {
	p, ok := domain.PrincipalFrom(ctx)
	return p.Email, ok && p.Email != ""
}

func (s *AccountService) CurrentAuthMethod(ctx context.Context) (string, bool) {
	p, ok := domain.PrincipalFrom(ctx)
	return p.AuthMethod, ok && p.AuthMethod != ""
}

func (s *AccountService) CurrentUserID(ctx context.Context) string {
	p, _ := domain.PrincipalFrom(ctx)
	return p.UserID
}

// SignUp creates a password account and signs it in.
func (s *AccountService) SignUp(ctx context.Context, email, password string) (domain.Session, error) {
	ctx, span := middleware.StartSpan(ctx, "account.sign_up", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	email = normalizeEmail(email)
	if !IsValidEmail(email) {
		return domain.Session{}, fmt.Errorf("sign up %q: %w", email, domain.ErrInvalidEmail)
	}
	if IsBlank(password) {
		return domain.Session{}, fmt.Errorf("sign up %q: %w", email, domain.ErrEmptyPassword)
	}

	hash, err := s.deps.Hasher.Hash(password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	account, err := s.deps.Accounts.Create(ctx, domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		AuthMethod:   domain.AuthMethodPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("create account: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", account.ID))
	s.deps.Logger.Info("Account created", zap.String("user_id", account.ID))
	return s.deps.Tokens.Issue(account, domain.AuthMethodPassword)
}

// Authenticate checks an email/password pair and issues a session.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (domain.Session, error) {
	ctx, span := middleware.StartSpan(ctx, "account.authenticate", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	account, err := s.deps.Accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Session{}, domain.ErrInvalidCredentials
		}
		return domain.Session{}, fmt.Errorf("get account by email: %w", err)
	}
	if account.PasswordHash == "" {
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	ok, err := s.deps.Hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return domain.Session{}, fmt.Errorf("verify password for %q: %w", account.ID, err)
	}
	if !ok {
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	span.SetAttributes(attribute.String("user.id", account.ID))
	return s.deps.Tokens.Issue(account, domain.AuthMethodPassword)
}

// SendRecoveryEmail mails a single-use reset token. Unknown addresses are
// accepted silently so the endpoint does not reveal which accounts exist.
func (s *AccountService) SendRecoveryEmail(ctx context.Context, email string) error {
	ctx, span := middleware.StartSpan(ctx, "account.send_recovery_email", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	email = normalizeEmail(email)
	if !IsValidEmail(email) {
		return fmt.Errorf("send recovery email: %w", domain.ErrInvalidEmail)
	}

	account, err := s.deps.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			span.SetAttributes(attribute.Bool("account.found", false))
			s.deps.Logger.Info("Recovery requested for unknown email")
			return nil
		}
		return fmt.Errorf("get account by email: %w", err)
	}

	token := uuid.NewString()
	if err := s.deps.Recovery.Put(ctx, token, account.ID, s.deps.RecoveryTTL); err != nil {
		return fmt.Errorf("store recovery token: %w", err)
	}
	if err := s.deps.Mailer.SendRecovery(ctx, account.Email, token); err != nil {
		return fmt.Errorf("deliver recovery email: %w", err)
	}

	span.SetAttributes(attribute.Bool("account.found", true))
	return nil
}

// ResetPassword consumes a recovery token and sets a new password.
func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	ctx, span := middleware.StartSpan(ctx, "account.reset_password", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if IsBlank(password) {
		return domain.ErrEmptyPassword
	}

	accountID, err := s.deps.Recovery.Consume(ctx, token)
	if err != nil {
		return fmt.Errorf("consume recovery token: %w", err)
	}
	account, err := s.deps.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("recovery token for removed account %q: %w", accountID, domain.ErrInvalidToken)
		}
		return fmt.Errorf("get account by id: %w", err)
	}

	hash, err := s.deps.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.deps.Accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.deps.Logger.Info("Password reset", zap.String("user_id", account.ID))
	return nil
}

// ExchangeFederatedToken signs in with a Google ID token, creating the account
// on first use. An existing account with the same verified email is reused.
func (s *AccountService) ExchangeFederatedToken(ctx context.Context, token string) (domain.Session, error) {
	ctx, span := middleware.StartSpan(ctx, "account.exchange_federated_token", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	claims, err := auth.ParseGoogleIDToken(token, s.deps.GoogleClientID, s.now())
	if err != nil {
		return domain.Session{}, err
	}
	if !claims.EmailVerified {
		return domain.Session{}, fmt.Errorf("email %q not verified by provider: %w", claims.Email, domain.ErrUnauthorized)
	}

	account, err := s.federatedAccount(ctx, claims)
	if err != nil {
		return domain.Session{}, err
	}

	span.SetAttributes(attribute.String("user.id", account.ID))
	return s.deps.Tokens.Issue(account, domain.AuthMethodGoogle)
}

func (s *AccountService) federatedAccount(ctx context.Context, claims *auth.GoogleClaims) (*domain.Account, error) {
	account, err := s.deps.Accounts.GetByProvider(ctx, domain.AuthMethodGoogle, claims.Subject)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("get account by provider: %w", err)
	}

	email := normalizeEmail(claims.Email)
	account, err = s.deps.Accounts.GetByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	now := s.now()
	account, err = s.deps.Accounts.Create(ctx, domain.Account{
		ID:         uuid.NewString(),
		Email:      email,
		AuthMethod: domain.AuthMethodGoogle,
		ProviderID: claims.Subject,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("create federated account: %w", err)
	}
	s.deps.Logger.Info("Federated account created", zap.String("user_id", account.ID))
	return account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
