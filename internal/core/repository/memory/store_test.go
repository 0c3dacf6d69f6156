package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/account-service/internal/core/domain"
)

func TestStore_Accounts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Create(ctx, domain.Account{ID: "a1", Email: "a@example.com", AuthMethod: domain.AuthMethodPassword})
	require.NoError(t, err)
	_, err = s.Create(ctx, domain.Account{ID: "a2", Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrUserExists)
	_, err = s.Create(ctx, domain.Account{ID: "g1", Email: "g@example.com", AuthMethod: domain.AuthMethodGoogle, ProviderID: "sub"})
	require.NoError(t, err)

	byEmail, err := s.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", byEmail.ID)

	byProvider, err := s.GetByProvider(ctx, domain.AuthMethodGoogle, "sub")
	require.NoError(t, err)
	assert.Equal(t, "g1", byProvider.ID)
	_, err = s.GetByProvider(ctx, domain.AuthMethodPassword, "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, s.UpdatePassword(ctx, "a1", "hash"))
	byID, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)
	assert.ErrorIs(t, s.UpdatePassword(ctx, "missing", "hash"), domain.ErrUserNotFound)
}

func TestStore_SubscribeUserData(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	updates, err := s.SubscribeUserData(ctx, "u1")
	require.NoError(t, err)

	id, err := s.SaveUserData(ctx, domain.UserData{Name: "Ann", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, domain.UserData{ID: id, Name: "Ann", UserID: "u1"}, <-updates)

	_, err = s.SaveUserData(ctx, domain.UserData{Name: "Other", UserID: "u2"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateUserData(ctx, domain.UserData{ID: id, Name: "Anna", UserID: "u1"}))
	assert.Equal(t, "Anna", (<-updates).Name)

	assert.ErrorIs(t, s.UpdateUserData(ctx, domain.UserData{ID: "other", UserID: "u1"}), domain.ErrUserNotFound)

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-updates
		return !open
	}, time.Second, 5*time.Millisecond)
}

func TestStore_SubscribeEmitsCurrentRecord(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := s.SaveUserData(ctx, domain.UserData{Name: "Existing", UserID: "u1"})
	require.NoError(t, err)

	updates, err := s.SubscribeUserData(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, id, (<-updates).ID)
}

func TestStore_SlowSubscriberGetsLatest(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := s.SubscribeUserData(ctx, "u1")
	require.NoError(t, err)

	id, err := s.SaveUserData(ctx, domain.UserData{Name: "v1", UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateUserData(ctx, domain.UserData{ID: id, Name: "v2", UserID: "u1"}))
	require.NoError(t, s.UpdateUserData(ctx, domain.UserData{ID: id, Name: "v3", UserID: "u1"}))

	assert.Equal(t, "v3", (<-updates).Name)
}

func TestStore_RecoveryTokens(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "t1", "a1", time.Minute))
	accountID, err := s.Consume(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "a1", accountID)

	_, err = s.Consume(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	require.NoError(t, s.Put(ctx, "t2", "a1", time.Minute))
	s.now = func() time.Time { return now.Add(time.Hour) }
	_, err = s.Consume(ctx, "t2")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
