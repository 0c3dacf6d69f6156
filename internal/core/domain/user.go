package domain

import "time"

// UnknownIdentity is shown in place of an identity field the backend could not provide.
const UnknownIdentity = "Amogus"

// Authentication method labels reported by the identity service.
const (
	AuthMethodPassword = "password"
	AuthMethodGoogle   = "google.com"
)

// UserData is the persisted profile record of a user.
// A record with an empty UserID has not been created yet.
type UserData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	UserID    string `json:"user_id"`
}

// Exists reports whether the record was loaded from storage.
func (d UserData) Exists() bool {
	return d.UserID != ""
}

// Account is the backend identity behind a session.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	AuthMethod   string
	ProviderID   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is issued after a successful credential exchange.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID     string
	Email      string
	AuthMethod string
}

// ProfileDraft is the editable state of the "my account" screen.
// Login and AuthType are read-only.
type ProfileDraft struct {
	Login    string `json:"login"`
	AuthType string `json:"auth_type"`
	Name     string `json:"name"`
	Birth    string `json:"birth"`
}

// LoginDraft is the editable state of the login screen.
type LoginDraft struct {
	Email    string `json:"email"`
	Password string `json:"-"`
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type UpdateLoginDraftRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type UpdateProfileDraftRequest struct {
	Name  *string `json:"name"`
	Birth *string `json:"birth"`
}

type FederatedSignInRequest struct {
	State       string `json:"state"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
	Error       string `json:"error"`
}
