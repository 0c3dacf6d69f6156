package v1

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/duynhne/account-service/internal/core/domain"
	"github.com/duynhne/account-service/middleware"
)

// ProfileOptions tunes the profile editor.
type ProfileOptions struct {
	// OptimisticNotice shows "data updated" before the backend confirms the save.
	OptimisticNotice bool
}

// ProfileEditor holds the "my account" draft for one screen. It keeps a
// subscription to the user's record open until Close is called.
type ProfileEditor struct {
	identity domain.AccountService
	storage  domain.StorageService
	logger   *zap.Logger
	opts     ProfileOptions

	// ctx carries the screen owner's principal; cancel ends the subscription.
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	mu       sync.RWMutex
	draft    domain.ProfileDraft
	dataCopy domain.UserData

	group singleflight.Group
}

// NewProfileEditor reads the current identity into a new draft and subscribes
// to the user's record. The subscription lives until Close or until ctx is done.
func NewProfileEditor(ctx context.Context, identity domain.AccountService, storage domain.StorageService, logger *zap.Logger, opts ProfileOptions) (*ProfileEditor, error) {
	login, ok := identity.CurrentEmail(ctx)
	if !ok || login == "" {
		login = domain.UnknownIdentity
	}
	authType, ok := identity.CurrentAuthMethod(ctx)
	if !ok || authType == "" {
		authType = domain.UnknownIdentity
	}

	screenCtx, cancel := context.WithCancel(ctx)
	e := &ProfileEditor{
		identity: identity,
		storage:  storage,
		logger:   logger,
		opts:     opts,
		ctx:      screenCtx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
		draft:    domain.ProfileDraft{Login: login, AuthType: authType},
	}

	userID := identity.CurrentUserID(screenCtx)
	updates, err := storage.SubscribeUserData(screenCtx, userID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to user data %q: %w", userID, err)
	}

	go e.collect(updates)
	return e, nil
}

func (e *ProfileEditor) collect(updates <-chan domain.UserData) {
	defer close(e.stopped)
	for {
		select {
		case data, ok := <-updates:
			if !ok {
				return
			}
			e.apply(data)
		case <-e.ctx.Done():
			return
		}
	}
}

// apply overwrites name and birth from data and keeps data as the reference copy.
func (e *ProfileEditor) apply(data domain.UserData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dataCopy = data
	next := e.draft
	next.Name = data.Name
	next.Birth = data.BirthDate
	e.draft = next
}

// State returns a copy of the draft.
func (e *ProfileEditor) State() domain.ProfileDraft {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.draft
}

// Reference returns the last record received from storage.
func (e *ProfileEditor) Reference() domain.UserData {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dataCopy
}

func (e *ProfileEditor) OnNameChange(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.draft
	next.Name = v
	e.draft = next
}

func (e *ProfileEditor) OnBirthChange(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.draft
	next.Birth = v
	e.draft = next
}

// Save updates the existing record, or creates one when none was loaded.
func (e *ProfileEditor) Save(ctx context.Context, ui UI) Effect {
	ctx, span := middleware.StartSpan(ctx, "profile.save", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	return runOnce(&e.group, actionProfileSave, ui, func() Effect {
		var effect Effect
		if e.opts.OptimisticNotice {
			effect.ShowMessage(domain.MessageDataUpdated)
		}

		created, err := e.persist(ctx)
		span.SetAttributes(attribute.Bool("user_data.created", created))
		if err != nil {
			catchError(ctx, e.logger, &effect, actionProfileSave, err)
			return effect
		}

		middleware.RecordWorkflowOutcome(actionProfileSave, outcomeOK)
		if !e.opts.OptimisticNotice {
			effect.ShowMessage(domain.MessageDataUpdated)
		}
		return effect
	})
}

func (e *ProfileEditor) persist(ctx context.Context) (created bool, err error) {
	e.mu.RLock()
	draft, ref := e.draft, e.dataCopy
	e.mu.RUnlock()

	if ref.Exists() {
		data := domain.UserData{ID: ref.ID, Name: draft.Name, BirthDate: draft.Birth, UserID: ref.UserID}
		if err := e.storage.UpdateUserData(ctx, data); err != nil {
			return false, fmt.Errorf("update user data %q: %w", ref.ID, err)
		}
		return false, nil
	}

	data := domain.UserData{Name: draft.Name, BirthDate: draft.Birth, UserID: e.identity.CurrentUserID(e.ctx)}
	id, err := e.storage.SaveUserData(ctx, data)
	if err != nil {
		return false, fmt.Errorf("create user data: %w", err)
	}

	// Keep the new id so a save issued before the subscription catches up updates instead of creating twice.
	data.ID = id
	e.mu.Lock()
	if !e.dataCopy.Exists() {
		e.dataCopy = data
	}
	e.mu.Unlock()
	return true, nil
}

// Close cancels the record subscription and waits for it to stop.
func (e *ProfileEditor) Close() {
	e.cancel()
	<-e.stopped
}
