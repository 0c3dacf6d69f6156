package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duynhne/account-service/internal/core/domain"
)

const recoveryKeyPrefix = "account:recovery:"

var _ domain.RecoveryTokenStore = (*RecoveryStore)(nil)

// RecoveryStore keeps password recovery tokens in Redis with a TTL.
type RecoveryStore struct {
	client redis.UniversalClient
}

// NewRecoveryStore creates a recovery token store backed by client.
func NewRecoveryStore(client redis.UniversalClient) *RecoveryStore {
	return &RecoveryStore{client: client}
}

// Put binds token to accountID for ttl.
func (s *RecoveryStore) Put(ctx context.Context, token, accountID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, recoveryKeyPrefix+token, accountID, ttl).Err(); err != nil {
		return fmt.Errorf("store recovery token: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes token.
func (s *RecoveryStore) Consume(ctx context.Context, token string) (string, error) {
	accountID, err := s.client.GetDel(ctx, recoveryKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrInvalidToken
		}
		return "", fmt.Errorf("consume recovery token: %w", err)
	}
	return accountID, nil
}
