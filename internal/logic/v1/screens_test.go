package v1

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/core/domain"
)

func newTestScreens(t *testing.T, ttl time.Duration, storage *fakeStorage) *Screens {
	t.Helper()
	identity := signedInIdentity("owner@example.com", domain.AuthMethodPassword, "owner")
	screens := NewScreens(ttl, ScreenDeps{
		Identity: identity,
		Storage:  storage,
		Logger:   zap.NewNop(),
	})
	t.Cleanup(screens.Close)
	return screens
}

func ownerCtx(userID string) context.Context {
	return domain.WithPrincipal(context.Background(), domain.Principal{UserID: userID, Email: userID + "@example.com"})
}

func TestScreens_LoginLifecycle(t *testing.T) {
	screens := newTestScreens(t, time.Minute, newFakeStorage())

	screen := screens.OpenLogin()
	require.NotEmpty(t, screen.ID)

	got, err := screens.Login(screen.ID)
	require.NoError(t, err)
	assert.Same(t, screen.Flow, got.Flow)

	require.NoError(t, screens.CloseLogin(screen.ID))
	_, err = screens.Login(screen.ID)
	assert.ErrorIs(t, err, domain.ErrScreenNotFound)
	assert.ErrorIs(t, screens.CloseLogin(screen.ID), domain.ErrScreenNotFound)
}

func TestScreens_LoginScreensAreIndependent(t *testing.T) {
	screens := newTestScreens(t, time.Minute, newFakeStorage())

	a, b := screens.OpenLogin(), screens.OpenLogin()
	a.Flow.OnEmailChange("a@example.com")

	assert.Equal(t, "a@example.com", a.Flow.State().Email)
	assert.Empty(t, b.Flow.State().Email)
}

func TestScreens_IdleScreenExpires(t *testing.T) {
	screens := newTestScreens(t, 20*time.Millisecond, newFakeStorage())

	screen := screens.OpenLogin()
	time.Sleep(40 * time.Millisecond)

	_, err := screens.Login(screen.ID)
	assert.ErrorIs(t, err, domain.ErrScreenNotFound)
}

func TestScreens_ProfileRequiresPrincipal(t *testing.T) {
	screens := newTestScreens(t, time.Minute, newFakeStorage())

	_, err := screens.OpenProfile(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestScreens_ProfileIsOwned(t *testing.T) {
	screens := newTestScreens(t, time.Minute, newFakeStorage())

	screen, err := screens.OpenProfile(ownerCtx("owner"))
	require.NoError(t, err)
	assert.Equal(t, "owner", screen.OwnerID)

	_, err = screens.Profile(ownerCtx("owner"), screen.ID)
	require.NoError(t, err)

	_, err = screens.Profile(ownerCtx("intruder"), screen.ID)
	assert.ErrorIs(t, err, domain.ErrScreenNotFound)
	assert.ErrorIs(t, screens.CloseProfile(ownerCtx("intruder"), screen.ID), domain.ErrScreenNotFound)
}

func TestScreens_OpenProfileOutlivesRequest(t *testing.T) {
	storage := newFakeStorage()
	screens := newTestScreens(t, time.Minute, storage)

	reqCtx, cancel := context.WithCancel(ownerCtx("owner"))
	_, err := screens.OpenProfile(reqCtx)
	require.NoError(t, err)
	cancel()

	assert.NoError(t, storage.SubscribeCtx().Err())
}

func TestScreens_CloseProfileEndsSubscription(t *testing.T) {
	storage := newFakeStorage()
	screens := newTestScreens(t, time.Minute, storage)

	screen, err := screens.OpenProfile(ownerCtx("owner"))
	require.NoError(t, err)

	require.NoError(t, screens.CloseProfile(ownerCtx("owner"), screen.ID))

	assert.ErrorIs(t, storage.SubscribeCtx().Err(), context.Canceled)
	_, err = screens.Profile(ownerCtx("owner"), screen.ID)
	assert.ErrorIs(t, err, domain.ErrScreenNotFound)
}

func TestScreens_CloseEndsEveryScreen(t *testing.T) {
	storage := newFakeStorage()
	identity := signedInIdentity("owner@example.com", domain.AuthMethodPassword, "owner")
	screens := NewScreens(time.Minute, ScreenDeps{Identity: identity, Storage: storage, Logger: zap.NewNop()})

	_, err := screens.OpenProfile(ownerCtx("owner"))
	require.NoError(t, err)
	login := screens.OpenLogin()

	screens.Close()

	assert.ErrorIs(t, storage.SubscribeCtx().Err(), context.Canceled)
	_, err = screens.Login(login.ID)
	assert.ErrorIs(t, err, domain.ErrScreenNotFound)
}

func TestScreens_TouchDoesNotRestoreClosedScreen(t *testing.T) {
	screens := newTestScreens(t, time.Minute, newFakeStorage())
	screen := screens.OpenLogin()
	key := loginKey(screen.ID)

	_, ok := screens.touch(key)
	require.True(t, ok)

	screens.cache.Delete(key)
	_, ok = screens.touch(key)
	assert.False(t, ok)
	assert.Zero(t, screens.cache.ItemCount())
}

func TestScreens_LookupRacingCloseLeavesScreenClosed(t *testing.T) {
	screens := newTestScreens(t, time.Minute, newFakeStorage())

	for range 50 {
		screen := screens.OpenLogin()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 20 {
				_, _ = screens.Login(screen.ID)
			}
		}()
		go func() {
			defer wg.Done()
			_ = screens.CloseLogin(screen.ID)
		}()
		wg.Wait()

		_, err := screens.Login(screen.ID)
		assert.ErrorIs(t, err, domain.ErrScreenNotFound)
	}
	assert.Zero(t, screens.cache.ItemCount())
}
