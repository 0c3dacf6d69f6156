package domain

import "context"

// MessageKey names a user-facing notification. The client owns the translations.
type MessageKey string

const (
	MessageEmailError         MessageKey = "email_error"
	MessageEmptyPasswordError MessageKey = "empty_password_error"
	MessageRecoveryEmailSent  MessageKey = "recovery_email_sent"
	MessageDataUpdated        MessageKey = "data_updated"
	MessageGenericError       MessageKey = "smth_go_wrong"
)

// Route names a client screen.
type Route string

const (
	RouteLogin Route = "LoginScreen"
	RouteTasks Route = "TasksScreen"
)

// AccountService is the identity backend.
// The Current* accessors read the principal carried by ctx.
type AccountService interface {
	CurrentEmail(ctx context.Context) (string, bool)
	CurrentAuthMethod(ctx context.Context) (string, bool)
	CurrentUserID(ctx context.Context) string
	Authenticate(ctx context.Context, email, password string) (Session, error)
	SendRecoveryEmail(ctx context.Context, email string) error
	ExchangeFederatedToken(ctx context.Context, token string) (Session, error)
}

// Notifier shows a transient message to the user.
type Notifier interface {
	ShowMessage(key MessageKey)
}

// Navigator moves the client to route and removes popUp from its back stack.
type Navigator interface {
	NavigateAndClear(route, popUp Route)
}

// Mailer delivers account emails.
type Mailer interface {
	SendRecovery(ctx context.Context, email, token string) error
}

// CredentialType tags what a credential provider returned.
type CredentialType string

const CredentialTypeGoogleIDToken CredentialType = "google_id_token"

// CredentialRequest is handed to the federated credential provider.
type CredentialRequest struct {
	HashedNonce string
	Code        string
	RedirectURI string
	// Error is the provider error reported back to the client, e.g. "access_denied".
	Error string
}

// Credential is the provider's answer to a CredentialRequest.
type Credential struct {
	Type  CredentialType
	Token string
}

// CredentialProvider performs a callback-driven credential exchange.
// The callback may be invoked from another goroutine.
type CredentialProvider interface {
	// AuthCodeURL returns the URL the client opens to obtain an authorization code.
	AuthCodeURL(state, hashedNonce string) string
	RequestCredential(ctx context.Context, req CredentialRequest, callback func(Credential, error))
}
