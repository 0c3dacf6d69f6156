package psql

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/core/domain"
)

// userDataChannel is the NOTIFY channel raised by the user_data trigger; the payload is user_id.
const userDataChannel = "user_data_changed"

var _ domain.StorageService = (*UserDataRepository)(nil)

// listenerRetry bounds the reconnect backoff of the shared listener.
const listenerRetry = 30 * time.Second

// UserDataRepository implements domain.StorageService using PostgreSQL.
// Subscriptions share one LISTEN connection; notifications are fanned out by user_id.
type UserDataRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	mu          sync.Mutex
	subscribers map[string]map[chan domain.UserData]struct{}
	stop        context.CancelFunc
	done        chan struct{}
}

// NewUserDataRepository creates a new PostgreSQL user data repository
func NewUserDataRepository(pool *pgxpool.Pool, logger *zap.Logger) *UserDataRepository {
	return &UserDataRepository{
		pool:        pool,
		logger:      logger,
		subscribers: make(map[string]map[chan domain.UserData]struct{}),
	}
}

// GetByUserID retrieves the record owned by userID
func (r *UserDataRepository) GetByUserID(ctx context.Context, userID string) (domain.UserData, error) {
	var d domain.UserData
	query := `SELECT id, name, birth_date, user_id FROM user_data WHERE user_id = $1`
	err := r.pool.QueryRow(ctx, query, userID).Scan(&d.ID, &d.Name, &d.BirthDate, &d.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserData{}, domain.ErrUserNotFound
		}
		return domain.UserData{}, fmt.Errorf("query user data: %w", err)
	}
	return d, nil
}

// SaveUserData inserts a new record and returns its id
func (r *UserDataRepository) SaveUserData(ctx context.Context, data domain.UserData) (string, error) {
	id := uuid.NewString()
	query := `INSERT INTO user_data (id, user_id, name, birth_date) VALUES ($1, $2, $3, $4)`
	if _, err := r.pool.Exec(ctx, query, id, data.UserID, data.Name, data.BirthDate); err != nil {
		return "", fmt.Errorf("insert user data: %w", err)
	}
	return id, nil
}

// UpdateUserData updates the record identified by data.ID
func (r *UserDataRepository) UpdateUserData(ctx context.Context, data domain.UserData) error {
	query := `UPDATE user_data SET name = $1, birth_date = $2, updated_at = now() WHERE id = $3 AND user_id = $4`
	result, err := r.pool.Exec(ctx, query, data.Name, data.BirthDate, data.ID, data.UserID)
	if err != nil {
		return fmt.Errorf("update user data: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update user data %q: %w", data.ID, domain.ErrUserNotFound)
	}
	return nil
}

// SubscribeUserData emits the current record and every later change until ctx is done.
// The first subscription starts the shared listener; later ones reuse it.
func (r *UserDataRepository) SubscribeUserData(ctx context.Context, userID string) (<-chan domain.UserData, error) {
	if err := r.ensureListener(ctx); err != nil {
		return nil, err
	}

	ch := r.addSubscriber(userID)
	go func() {
		<-ctx.Done()
		r.removeSubscriber(userID, ch)
	}()

	r.refresh(ctx, userID)
	return ch, nil
}

// Close stops the shared listener and releases its connection.
// Open subscriptions stay registered but receive no further changes.
func (r *UserDataRepository) Close() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// ensureListener acquires the LISTEN connection on first use.
func (r *UserDataRepository) ensureListener(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return nil
	}

	conn, err := r.listen(ctx)
	if err != nil {
		return err
	}

	listenCtx, stop := context.WithCancel(context.Background())
	r.stop = stop
	r.done = make(chan struct{})
	go r.run(listenCtx, conn, r.done)
	return nil
}

func (r *UserDataRepository) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+userDataChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", userDataChannel, err)
	}
	return conn, nil
}

// run serves notifications until ctx is done, reconnecting with backoff when
// the connection drops. After a reconnect every subscribed user is reloaded.
func (r *UserDataRepository) run(ctx context.Context, conn *pgxpool.Conn, done chan struct{}) {
	defer close(done)

	backoff := time.Second
	for {
		err := r.serve(ctx, conn)
		release(conn)
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("User data listener disconnected", zap.Error(err), zap.Duration("retry_in", backoff))

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < listenerRetry {
				backoff *= 2
			}
			conn, err = r.listen(ctx)
			if err == nil {
				break
			}
			r.logger.Warn("User data listener reconnect failed", zap.Error(err))
		}

		backoff = time.Second
		for _, userID := range r.subscribedUsers() {
			r.refresh(ctx, userID)
		}
	}
}

func (r *UserDataRepository) serve(ctx context.Context, conn *pgxpool.Conn) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if r.hasSubscribers(n.Payload) {
			r.refresh(ctx, n.Payload)
		}
	}
}

func release(conn *pgxpool.Conn) {
	if !conn.Conn().IsClosed() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN "+userDataChannel)
	}
	conn.Release()
}

// refresh loads the record of userID and hands it to its subscribers.
func (r *UserDataRepository) refresh(ctx context.Context, userID string) {
	data, err := r.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("Failed to load user data", zap.String("user_id", userID), zap.Error(err))
		}
		return
	}
	r.publish(data)
}

func (r *UserDataRepository) addSubscriber(userID string) chan domain.UserData {
	ch := make(chan domain.UserData, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscribers[userID] == nil {
		r.subscribers[userID] = make(map[chan domain.UserData]struct{})
	}
	r.subscribers[userID][ch] = struct{}{}
	return ch
}

func (r *UserDataRepository) removeSubscriber(userID string, ch chan domain.UserData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subscribers[userID]
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	if len(subs) == 0 {
		delete(r.subscribers, userID)
	}
	close(ch)
}

func (r *UserDataRepository) hasSubscribers(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers[userID]) > 0
}

func (r *UserDataRepository) subscribedUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]string, 0, len(r.subscribers))
	for userID := range r.subscribers {
		users = append(users, userID)
	}
	return users
}

// publish replaces whatever a slow subscriber has not consumed yet with data.
func (r *UserDataRepository) publish(data domain.UserData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subscribers[data.UserID] {
		select {
		case <-ch:
		default:
		}
		ch <- data
	}
}
