package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role within an organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Membership links a user to an organization. The pair
// (UserID, OrganizationID) is the composite key.
type Membership struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           Role
	CreatedAt      time.Time
}

// IsOwner returns true if the membership carries the owner role.
func (m *Membership) IsOwner() bool {
	return m.Role == RoleOwner
}
