package v1

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/duynhne/account-service/internal/core/domain"
)

type identityMock struct {
	mock.Mock
}

func (m *identityMock) CurrentEmail(ctx context.Context) (string, bool) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1)
}

func (m *identityMock) CurrentAuthMethod(ctx context.Context) (string, bool) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1)
}

func (m *identityMock) CurrentUserID(ctx context.Context) string {
	return m.Called(ctx).String(0)
}

func (m *identityMock) Authenticate(ctx context.Context, email, password string) (domain.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *identityMock) SendRecoveryEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *identityMock) ExchangeFederatedToken(ctx context.Context, token string) (domain.Session, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Session), args.Error(1)
}

// signedInIdentity stubs the Current* accessors for a signed-in user.
func signedInIdentity(email, method, userID string) *identityMock {
	m := &identityMock{}
	m.On("CurrentEmail", mock.Anything).Return(email, email != "")
	m.On("CurrentAuthMethod", mock.Anything).Return(method, method != "")
	m.On("CurrentUserID", mock.Anything).Return(userID)
	return m
}

type recordingUI struct {
	mu          sync.Mutex
	messages    []domain.MessageKey
	navigations []Navigation
}

func (u *recordingUI) ShowMessage(key domain.MessageKey) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.messages = append(u.messages, key)
}

func (u *recordingUI) NavigateAndClear(route, popUp domain.Route) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.navigations = append(u.navigations, Navigation{Route: route, PopUp: popUp})
}

func (u *recordingUI) Messages() []domain.MessageKey {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]domain.MessageKey(nil), u.messages...)
}

func (u *recordingUI) Navigations() []Navigation {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Navigation(nil), u.navigations...)
}

// fakeStorage hands out a test-controlled update stream and records writes.
type fakeStorage struct {
	mu           sync.Mutex
	updates      chan domain.UserData
	subscribedID string
	subscribeCtx context.Context
	subscribeErr error
	saved        []domain.UserData
	updated      []domain.UserData
	newID        string
	saveErr      error
	updateErr    error
	// onUpdate runs before UpdateUserData records the call, outside the lock.
	onUpdate func()
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{updates: make(chan domain.UserData, 4), newID: "record-1"}
}

func (s *fakeStorage) SubscribeUserData(ctx context.Context, userID string) (<-chan domain.UserData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.subscribedID = userID
	s.subscribeCtx = ctx
	return s.updates, nil
}

func (s *fakeStorage) SaveUserData(_ context.Context, data domain.UserData) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, data)
	if s.saveErr != nil {
		return "", s.saveErr
	}
	return s.newID, nil
}

func (s *fakeStorage) UpdateUserData(_ context.Context, data domain.UserData) error {
	if s.onUpdate != nil {
		s.onUpdate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, data)
	return s.updateErr
}

func (s *fakeStorage) Saved() []domain.UserData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.UserData(nil), s.saved...)
}

func (s *fakeStorage) Updated() []domain.UserData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.UserData(nil), s.updated...)
}

func (s *fakeStorage) SubscribeCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeCtx
}

// fakeProvider answers credential requests with respond.
type fakeProvider struct {
	mu       sync.Mutex
	nonces   []string
	requests []domain.CredentialRequest
	respond  func(req domain.CredentialRequest, callback func(domain.Credential, error))
}

func (p *fakeProvider) AuthCodeURL(state, hashedNonce string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonces = append(p.nonces, hashedNonce)
	return "https://accounts.example/auth?state=" + state + "&nonce=" + hashedNonce
}

func (p *fakeProvider) RequestCredential(_ context.Context, req domain.CredentialRequest, callback func(domain.Credential, error)) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	p.respond(req, callback)
}

func (p *fakeProvider) Requests() []domain.CredentialRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.CredentialRequest(nil), p.requests...)
}
