package v1

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/core/domain"
	"github.com/duynhne/account-service/middleware"
)

const (
	screenLogin   = "login"
	screenProfile = "profile"
)

// LoginScreen is a live login screen session.
type LoginScreen struct {
	ID   string
	Flow *LoginFlow
}

// ProfileScreen is a live "my account" screen session owned by one user.
type ProfileScreen struct {
	ID      string
	OwnerID string
	Editor  *ProfileEditor
}

// ScreenDeps are the services screens are built from.
type ScreenDeps struct {
	Identity domain.AccountService
	Storage  domain.StorageService
	Provider domain.CredentialProvider
	Profile  ProfileOptions
	Logger   *zap.Logger
}

// Screens keeps live screen sessions. An idle screen expires after ttl;
// expiry and Close both end the screen's subscriptions.
type Screens struct {
	cache *cache.Cache
	ttl   time.Duration
	deps  ScreenDeps
}

// NewScreens creates a registry whose screens expire after ttl without use.
func NewScreens(ttl time.Duration, deps ScreenDeps) *Screens {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(key string, v any) {
		switch s := v.(type) {
		case *LoginScreen:
			middleware.ScreenOpened(screenLogin, -1)
		case *ProfileScreen:
			s.Editor.Close()
			middleware.ScreenOpened(screenProfile, -1)
		}
		deps.Logger.Debug("Screen closed", zap.String("screen", key))
	})
	return &Screens{cache: c, ttl: ttl, deps: deps}
}

// OpenLogin starts a login screen with an empty draft.
func (s *Screens) OpenLogin() *LoginScreen {
	screen := &LoginScreen{
		ID:   uuid.NewString(),
		Flow: NewLoginFlow(s.deps.Identity, s.deps.Provider, s.deps.Logger),
	}
	s.cache.SetDefault(loginKey(screen.ID), screen)
	middleware.ScreenOpened(screenLogin, 1)
	return screen
}

// Login returns a live login screen and extends its lifetime.
func (s *Screens) Login(id string) (*LoginScreen, error) {
	v, ok := s.touch(loginKey(id))
	if !ok {
		return nil, fmt.Errorf("login screen %q: %w", id, domain.ErrScreenNotFound)
	}
	return v.(*LoginScreen), nil
}

// CloseLogin ends a login screen.
func (s *Screens) CloseLogin(id string) error {
	if _, err := s.Login(id); err != nil {
		return err
	}
	s.cache.Delete(loginKey(id))
	return nil
}

// OpenProfile starts a profile screen for the principal in ctx. The screen
// outlives the request, so only ctx's values are kept.
func (s *Screens) OpenProfile(ctx context.Context) (*ProfileScreen, error) {
	principal, ok := domain.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	editor, err := NewProfileEditor(context.WithoutCancel(ctx), s.deps.Identity, s.deps.Storage, s.deps.Logger, s.deps.Profile)
	if err != nil {
		return nil, err
	}

	screen := &ProfileScreen{ID: uuid.NewString(), OwnerID: principal.UserID, Editor: editor}
	s.cache.SetDefault(profileKey(screen.ID), screen)
	middleware.ScreenOpened(screenProfile, 1)
	return screen, nil
}

// Profile returns a live profile screen owned by the principal in ctx.
func (s *Screens) Profile(ctx context.Context, id string) (*ProfileScreen, error) {
	principal, ok := domain.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	v, found := s.cache.Get(profileKey(id))
	if !found || v.(*ProfileScreen).OwnerID != principal.UserID {
		return nil, fmt.Errorf("profile screen %q: %w", id, domain.ErrScreenNotFound)
	}
	if _, found = s.touch(profileKey(id)); !found {
		return nil, fmt.Errorf("profile screen %q: %w", id, domain.ErrScreenNotFound)
	}
	return v.(*ProfileScreen), nil
}

// CloseProfile ends a profile screen owned by the principal in ctx.
func (s *Screens) CloseProfile(ctx context.Context, id string) error {
	if _, err := s.Profile(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(profileKey(id))
	return nil
}

// Close ends every live screen.
func (s *Screens) Close() {
	for key := range s.cache.Items() {
		s.cache.Delete(key)
	}
}

// touch restarts the idle timer of a live screen. A screen closed or expired
// in the meantime stays gone.
func (s *Screens) touch(key string) (any, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	if err := s.cache.Replace(key, v, cache.DefaultExpiration); err != nil {
		return nil, false
	}
	return v, true
}

func loginKey(id string) string   { return screenLogin + ":" + id }
func profileKey(id string) string { return screenProfile + ":" + id }
