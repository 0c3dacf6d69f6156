package v1

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/duynhne/account-service/internal/core/domain"
	"github.com/duynhne/account-service/middleware"
)

// Action names, also used as metric labels and singleflight keys.
const (
	actionSignIn          = "sign_in"
	actionForgotPassword  = "forgot_password"
	actionFederatedSignIn = "federated_sign_in"
	actionProfileSave     = "profile_save"
)

// pendingFederated is a begun federated sign-in awaiting its completion.
type pendingFederated struct {
	state       string
	hashedNonce string
}

// FederatedStart is returned when a federated sign-in is begun.
type FederatedStart struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// LoginFlow holds the login screen draft and runs its actions.
// Concurrent calls of the same action are collapsed into one backend call.
type LoginFlow struct {
	identity domain.AccountService
	provider domain.CredentialProvider
	logger   *zap.Logger

	mu      sync.RWMutex
	draft   domain.LoginDraft
	pending *pendingFederated

	group singleflight.Group
}

// NewLoginFlow creates a login flow with an empty draft.
// provider may be nil when federated sign-in is not configured.
func NewLoginFlow(identity domain.AccountService, provider domain.CredentialProvider, logger *zap.Logger) *LoginFlow {
	return &LoginFlow{identity: identity, provider: provider, logger: logger}
}

// State returns a copy of the draft.
func (f *LoginFlow) State() domain.LoginDraft {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.draft
}

func (f *LoginFlow) OnEmailChange(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.draft
	next.Email = v
	f.draft = next
}

func (f *LoginFlow) OnPasswordChange(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.draft
	next.Password = v
	f.draft = next
}

// SignIn validates the draft and authenticates with it.
func (f *LoginFlow) SignIn(ctx context.Context, ui UI) Effect {
	ctx, span := middleware.StartSpan(ctx, "login.sign_in", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	draft := f.State()
	return f.once(actionSignIn, ui, func() Effect {
		var effect Effect
		if !IsValidEmail(draft.Email) {
			middleware.RecordWorkflowOutcome(actionSignIn, outcomeRejected)
			effect.ShowMessage(domain.MessageEmailError)
			return effect
		}
		if IsBlank(draft.Password) {
			middleware.RecordWorkflowOutcome(actionSignIn, outcomeRejected)
			effect.ShowMessage(domain.MessageEmptyPasswordError)
			return effect
		}

		session, err := f.identity.Authenticate(ctx, draft.Email, draft.Password)
		if err != nil {
			catchError(ctx, f.logger, &effect, actionSignIn, fmt.Errorf("authenticate: %w", err))
			return effect
		}

		middleware.RecordWorkflowOutcome(actionSignIn, outcomeOK)
		span.SetAttributes(attribute.String("user.id", session.UserID))
		effect.Session = &session
		effect.NavigateAndClear(domain.RouteTasks, domain.RouteLogin)
		return effect
	})
}

// ForgotPassword requests a recovery email for the draft's address.
func (f *LoginFlow) ForgotPassword(ctx context.Context, ui UI) Effect {
	ctx, span := middleware.StartSpan(ctx, "login.forgot_password", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	email := f.State().Email
	return f.once(actionForgotPassword, ui, func() Effect {
		var effect Effect
		if !IsValidEmail(email) {
			middleware.RecordWorkflowOutcome(actionForgotPassword, outcomeRejected)
			effect.ShowMessage(domain.MessageEmailError)
			return effect
		}

		if err := f.identity.SendRecoveryEmail(ctx, email); err != nil {
			catchError(ctx, f.logger, &effect, actionForgotPassword, fmt.Errorf("send recovery email: %w", err))
			return effect
		}

		middleware.RecordWorkflowOutcome(actionForgotPassword, outcomeOK)
		effect.ShowMessage(domain.MessageRecoveryEmailSent)
		return effect
	})
}

// BeginFederatedSignIn generates the nonce for the next FederatedSignIn and
// returns the provider URL carrying it. The completion must echo state.
func (f *LoginFlow) BeginFederatedSignIn(state string) (FederatedStart, error) {
	if f.provider == nil {
		return FederatedStart{}, domain.ErrFederatedDisabled
	}
	_, hashed := newNonce()

	f.mu.Lock()
	f.pending = &pendingFederated{state: state, hashedNonce: hashed}
	f.mu.Unlock()

	return FederatedStart{URL: f.provider.AuthCodeURL(state, hashed), State: state}, nil
}

// FederatedSignIn completes a federated sign-in with the authorization result
// the client obtained from the provider.
func (f *LoginFlow) FederatedSignIn(ctx context.Context, ui UI, platform domain.FederatedSignInRequest) Effect {
	ctx, span := middleware.StartSpan(ctx, "login.federated_sign_in", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	return f.once(actionFederatedSignIn, ui, func() Effect {
		var effect Effect
		if f.provider == nil {
			catchError(ctx, f.logger, &effect, actionFederatedSignIn, domain.ErrFederatedDisabled)
			return effect
		}

		hashedNonce, err := f.takePending(platform.State)
		if err != nil {
			catchError(ctx, f.logger, &effect, actionFederatedSignIn, err)
			return effect
		}

		outcome := awaitCredential(ctx, f.provider, domain.CredentialRequest{
			HashedNonce: hashedNonce,
			Code:        platform.Code,
			RedirectURI: platform.RedirectURI,
			Error:       platform.Error,
		})
		span.SetAttributes(attribute.String("credential.outcome", outcome.Kind.String()))

		switch outcome.Kind {
		case OutcomeCancelled:
			middleware.RecordWorkflowOutcome(actionFederatedSignIn, outcomeCancelled)
			f.logger.Info("Federated sign-in cancelled", zap.Error(outcome.Err))
			effect.ShowMessage(domain.MessageGenericError)
			return effect
		case OutcomeFailed:
			catchError(ctx, f.logger, &effect, actionFederatedSignIn, outcome.Err)
			return effect
		}

		session, err := f.identity.ExchangeFederatedToken(ctx, outcome.Credential.Token)
		if err != nil {
			catchError(ctx, f.logger, &effect, actionFederatedSignIn, fmt.Errorf("exchange federated token: %w", err))
			return effect
		}

		middleware.RecordWorkflowOutcome(actionFederatedSignIn, outcomeOK)
		effect.Session = &session
		effect.NavigateAndClear(domain.RouteTasks, domain.RouteLogin)
		return effect
	})
}

// takePending consumes the begun sign-in and returns its nonce when state
// matches. A begun sign-in serves one completion, matching or not.
func (f *LoginFlow) takePending(state string) (string, error) {
	f.mu.Lock()
	p := f.pending
	f.pending = nil
	f.mu.Unlock()

	if p == nil {
		return "", fmt.Errorf("no federated sign-in in progress: %w", domain.ErrInvalidToken)
	}
	if subtle.ConstantTimeCompare([]byte(p.state), []byte(state)) != 1 {
		return "", fmt.Errorf("federated sign-in state mismatch: %w", domain.ErrInvalidToken)
	}
	return p.hashedNonce, nil
}

// once runs fn unless the same action is already in flight, in which case the
// caller shares that action's effect. The effect is replayed onto ui.
func (f *LoginFlow) once(action string, ui UI, fn func() Effect) Effect {
	return runOnce(&f.group, action, ui, fn)
}

func runOnce(group *singleflight.Group, action string, ui UI, fn func() Effect) Effect {
	v, _, shared := group.Do(action, func() (any, error) {
		return fn(), nil
	})
	effect := v.(Effect)
	if shared {
		middleware.RecordWorkflowOutcome(action, outcomeShared)
		effect.Shared = true
	}
	effect.Replay(ui)
	return effect
}
