// Package memory keeps accounts, user data and recovery tokens in process memory.
// It backs local development when DB_HOST is unset and the handler tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duynhne/account-service/internal/core/domain"
)

var (
	_ domain.StorageService     = (*Store)(nil)
	_ domain.AccountRepository  = (*Store)(nil)
	_ domain.RecoveryTokenStore = (*Store)(nil)
)

type recoveryToken struct {
	accountID string
	expiresAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]domain.Account
	userData    map[string]domain.UserData // keyed by user id
	tokens      map[string]recoveryToken
	subscribers map[string]map[chan domain.UserData]struct{}
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts:    make(map[string]domain.Account),
		userData:    make(map[string]domain.UserData),
		tokens:      make(map[string]recoveryToken),
		subscribers: make(map[string]map[chan domain.UserData]struct{}),
		now:         time.Now,
	}
}

func (s *Store) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &a, nil
}

func (s *Store) GetByProvider(_ context.Context, method, providerID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.AuthMethod == method && a.ProviderID == providerID && providerID != "" {
			return &a, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) Create(_ context.Context, account domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return nil, fmt.Errorf("create account %q: %w", account.Email, domain.ErrUserExists)
		}
	}
	s.accounts[account.ID] = account
	return &account, nil
}

func (s *Store) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("update password for %q: %w", id, domain.ErrUserNotFound)
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = s.now()
	s.accounts[id] = a
	return nil
}

// SubscribeUserData emits the current record, then every change, until ctx is done.
func (s *Store) SubscribeUserData(ctx context.Context, userID string) (<-chan domain.UserData, error) {
	ch := make(chan domain.UserData, 1)

	s.mu.Lock()
	if s.subscribers[userID] == nil {
		s.subscribers[userID] = make(map[chan domain.UserData]struct{})
	}
	s.subscribers[userID][ch] = struct{}{}
	if current, ok := s.userData[userID]; ok {
		ch <- current
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers[userID], ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}

func (s *Store) SaveUserData(_ context.Context, data domain.UserData) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data.ID = uuid.NewString()
	s.userData[data.UserID] = data
	s.publish(data)
	return data.ID, nil
}

func (s *Store) UpdateUserData(_ context.Context, data domain.UserData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.userData[data.UserID]
	if !ok || current.ID != data.ID {
		return fmt.Errorf("update user data %q: %w", data.ID, domain.ErrUserNotFound)
	}
	s.userData[data.UserID] = data
	s.publish(data)
	return nil
}

// publish delivers the latest record to every subscriber; a subscriber that has
// not consumed the previous value gets it replaced. Caller holds s.mu.
func (s *Store) publish(data domain.UserData) {
	for ch := range s.subscribers[data.UserID] {
		select {
		case <-ch:
		default:
		}
		ch <- data
	}
}

func (s *Store) Put(_ context.Context, token, accountID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = recoveryToken{accountID: accountID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *Store) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	delete(s.tokens, token)
	if !ok || !s.now().Before(t.expiresAt) {
		return "", domain.ErrInvalidToken
	}
	return t.accountID, nil
}
