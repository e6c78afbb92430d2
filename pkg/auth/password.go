package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prisken/hubstore/pkg/domain"
	"github.com/prisken/hubstore/pkg/registry"
)

// PasswordService handles account creation and password authentication
// against the registry store.
type PasswordService struct {
	users *registry.UsersRepository
}

// NewPasswordService creates a new password service.
func NewPasswordService(users *registry.UsersRepository) *PasswordService {
	return &PasswordService{users: users}
}

// CreateUser hashes the password and inserts a new user row. A duplicate
// name (or, practically unreachable, a duplicate generated id) fails with
// domain.ErrConstraintViolation.
func (s *PasswordService) CreateUser(ctx context.Context, name, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name must not be empty")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies name and password. On success it records the login
// time and returns the user. Unknown user and wrong password both fail with
// domain.ErrInvalidCredentials so callers cannot enumerate accounts.
func (s *PasswordService) Authenticate(ctx context.Context, name, password string) (*domain.User, error) {
	user, err := s.users.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return user, nil
}
