package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents the account.
type User struct {
	ID           uuid.UUID
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// HasLoggedIn returns true if the user has authenticated at least once.
func (u *User) HasLoggedIn() bool {
	return u.LastLoginAt != nil
}
