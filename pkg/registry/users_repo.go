package registry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prisken/hubstore/pkg/domain"
)

// UsersRepository handles user persistence.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// Create creates a new user.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, password_hash, created_at, last_login_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.PasswordHash, user.CreatedAt, user.LastLoginAt,
	)
	return mapError(err)
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, name, password_hash, created_at, last_login_at
		FROM users
		WHERE id = ?
	`
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.PasswordHash, &user.CreatedAt, &user.LastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

// GetByName retrieves a user by name.
func (r *UsersRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	query := `
		SELECT id, name, password_hash, created_at, last_login_at
		FROM users
		WHERE name = ?
	`
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&user.ID, &user.Name, &user.PasswordHash, &user.CreatedAt, &user.LastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

// UpdateLastLogin records a successful authentication.
func (r *UsersRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// DeleteTx permanently deletes a user within a transaction. Membership and
// organization rows referencing the user must already be gone or the foreign
// key constraint fails.
func (r *UsersRepository) DeleteTx(ctx context.Context, q Querier, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
