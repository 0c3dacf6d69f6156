package psql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/account-service/internal/core/domain"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

var _ domain.AccountRepository = (*AccountRepository)(nil)

const accountColumns = `id, email, password_hash, auth_method, provider_id, created_at, updated_at`

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByEmail retrieves an account by its email address
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.getOne(ctx, query, email)
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByProvider retrieves an account linked to a federated identity
func (r *AccountRepository) GetByProvider(ctx context.Context, method, providerID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE auth_method = $1 AND provider_id = $2`
	return r.getOne(ctx, query, method, providerID)
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (*domain.Account, error) {
	query := `INSERT INTO accounts (id, email, password_hash, auth_method, provider_id, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + accountColumns

	created, err := scanAccount(r.pool.QueryRow(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.AuthMethod, account.ProviderID,
		account.CreatedAt, account.UpdatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("create account %q: %w", account.Email, domain.ErrUserExists)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return created, nil
}

// UpdatePassword replaces the password hash of an account
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $1, updated_at = now() WHERE id = $2`
	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update password for %q: %w", id, domain.ErrUserNotFound)
	}
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	account, err := scanAccount(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.AuthMethod, &a.ProviderID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
