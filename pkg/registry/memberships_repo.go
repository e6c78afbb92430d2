package registry

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/prisken/hubstore/pkg/domain"
)

// MembershipsRepository handles membership persistence.
type MembershipsRepository struct {
	db *sql.DB
}

// NewMembershipsRepository creates a new memberships repository.
func NewMembershipsRepository(db *sql.DB) *MembershipsRepository {
	return &MembershipsRepository{db: db}
}

// CreateTx creates a new membership within a transaction.
func (r *MembershipsRepository) CreateTx(ctx context.Context, q Querier, membership *domain.Membership) error {
	query := `
		INSERT INTO memberships (user_id, organization_id, role, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		membership.UserID,
		membership.OrganizationID,
		membership.Role,
		membership.CreatedAt,
	)
	return mapError(err)
}

// GetByUserAndOrganization retrieves a membership by its composite key.
func (r *MembershipsRepository) GetByUserAndOrganization(ctx context.Context, userID, organizationID uuid.UUID) (*domain.Membership, error) {
	query := `
		SELECT user_id, organization_id, role, created_at
		FROM memberships
		WHERE user_id = ? AND organization_id = ?
	`
	var membership domain.Membership
	err := r.db.QueryRowContext(ctx, query, userID, organizationID).Scan(
		&membership.UserID,
		&membership.OrganizationID,
		&membership.Role,
		&membership.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMembershipNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &membership, nil
}

// ListByOrganization retrieves all memberships of an organization.
func (r *MembershipsRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*domain.Membership, error) {
	query := `
		SELECT user_id, organization_id, role, created_at
		FROM memberships
		WHERE organization_id = ?
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var memberships []*domain.Membership
	for rows.Next() {
		var membership domain.Membership
		err := rows.Scan(
			&membership.UserID,
			&membership.OrganizationID,
			&membership.Role,
			&membership.CreatedAt,
		)
		if err != nil {
			return nil, mapError(err)
		}
		memberships = append(memberships, &membership)
	}

	return memberships, mapError(rows.Err())
}

// DeleteByOrganizationTx deletes all memberships of an organization within a
// transaction.
func (r *MembershipsRepository) DeleteByOrganizationTx(ctx context.Context, q Querier, organizationID uuid.UUID) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM memberships WHERE organization_id = ?`, organizationID)
	return mapError(err)
}

// DeleteByUserTx deletes all memberships referencing a user within a
// transaction.
func (r *MembershipsRepository) DeleteByUserTx(ctx context.Context, q Querier, userID uuid.UUID) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM memberships WHERE user_id = ?`, userID)
	return mapError(err)
}
