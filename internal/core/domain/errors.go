package domain

import "errors"

// Sentinel errors for account operations.
var (
	// ErrUserNotFound indicates the requested account or record does not exist.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates an account with the same email already exists.
	// HTTP Status: 409 Conflict
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidEmail indicates the provided email address is invalid.
	// HTTP Status: 400 Bad Request
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrEmptyPassword indicates a blank password was submitted.
	// HTTP Status: 400 Bad Request
	ErrEmptyPassword = errors.New("empty password")

	// ErrInvalidCredentials indicates the email/password pair was rejected.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized indicates the user is not authorized to perform the operation.
	// HTTP Status: 403 Forbidden
	ErrUnauthorized = errors.New("unauthorized access")

	// ErrInvalidToken indicates a session or recovery token is malformed or expired.
	// HTTP Status: 401 Unauthorized
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrScreenNotFound indicates the screen session is unknown, expired or owned by another user.
	// HTTP Status: 404 Not Found
	ErrScreenNotFound = errors.New("screen not found")

	// ErrFederatedDisabled indicates no federated identity provider is configured.
	// HTTP Status: 404 Not Found
	ErrFederatedDisabled = errors.New("federated sign-in is not configured")

	// ErrCredentialCancelled indicates the user dismissed the federated credential request.
	ErrCredentialCancelled = errors.New("credential request cancelled")

	// ErrInvalidCredentialType indicates the credential provider returned an unexpected credential.
	ErrInvalidCredentialType = errors.New("received an invalid credential type")
)
