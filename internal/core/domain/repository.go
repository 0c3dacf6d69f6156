package domain

import (
	"context"
	"time"
)

// StorageService is the record storage backend used by the profile screen.
type StorageService interface {
	// SubscribeUserData streams the user's record until ctx is done.
	// The current record, if any, is emitted first.
	SubscribeUserData(ctx context.Context, userID string) (<-chan UserData, error)
	SaveUserData(ctx context.Context, data UserData) (string, error)
	UpdateUserData(ctx context.Context, data UserData) error
}

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByProvider(ctx context.Context, method, providerID string) (*Account, error)
	Create(ctx context.Context, account Account) (*Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// RecoveryTokenStore keeps single-use password recovery tokens.
type RecoveryTokenStore interface {
	Put(ctx context.Context, token, accountID string, ttl time.Duration) error
	// Consume returns the account bound to token and deletes it.
	Consume(ctx context.Context, token string) (string, error)
}
