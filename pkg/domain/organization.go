package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Organization represents a workspace owning one isolated tenant store.
type Organization struct {
	ID          uuid.UUID
	OwnerUserID uuid.UUID
	Name        string
	Description *string
	Settings    json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
