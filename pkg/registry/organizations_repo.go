package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prisken/hubstore/pkg/domain"
)

// OrganizationsRepository handles organization persistence.
type OrganizationsRepository struct {
	db *sql.DB
}

// NewOrganizationsRepository creates a new organizations repository.
func NewOrganizationsRepository(db *sql.DB) *OrganizationsRepository {
	return &OrganizationsRepository{db: db}
}

// CreateTx creates a new organization within a transaction.
func (r *OrganizationsRepository) CreateTx(ctx context.Context, q Querier, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (id, owner_user_id, name, description, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	settings := org.Settings
	if settings == nil {
		settings = json.RawMessage(`{}`)
	}
	_, err := q.ExecContext(ctx, query,
		org.ID, org.OwnerUserID, org.Name, org.Description, string(settings),
		org.CreatedAt, org.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves an organization by ID.
func (r *OrganizationsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	query := `
		SELECT id, owner_user_id, name, description, settings, created_at, updated_at
		FROM organizations
		WHERE id = ?
	`
	return scanOrganization(r.db.QueryRowContext(ctx, query, id))
}

// ListForUser retrieves all organizations the user is a member of, newest
// first. The result is a finite snapshot, not a restartable cursor.
func (r *OrganizationsRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Organization, error) {
	query := `
		SELECT o.id, o.owner_user_id, o.name, o.description, o.settings, o.created_at, o.updated_at
		FROM memberships m
		INNER JOIN organizations o ON m.organization_id = o.id
		WHERE m.user_id = ?
		ORDER BY o.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var orgs []*domain.Organization
	for rows.Next() {
		var org domain.Organization
		var settings string
		err := rows.Scan(
			&org.ID, &org.OwnerUserID, &org.Name, &org.Description, &settings,
			&org.CreatedAt, &org.UpdatedAt,
		)
		if err != nil {
			return nil, mapError(err)
		}
		org.Settings = json.RawMessage(settings)
		orgs = append(orgs, &org)
	}

	return orgs, mapError(rows.Err())
}

// ListOwnedByUserTx retrieves the ids of organizations owned by the user,
// within a transaction.
func (r *OrganizationsRepository) ListOwnedByUserTx(ctx context.Context, q Querier, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM organizations WHERE owner_user_id = ?`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}

	return ids, mapError(rows.Err())
}

// UpdateSettings replaces the settings blob. The schema of the blob is owned
// by the application layer, not the registry.
func (r *OrganizationsRepository) UpdateSettings(ctx context.Context, id uuid.UUID, settings json.RawMessage) error {
	query := `
		UPDATE organizations
		SET settings = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, string(settings), time.Now().UTC(), id)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

// DeleteTx deletes an organization within a transaction. Membership rows
// referencing it must already be gone.
func (r *OrganizationsRepository) DeleteTx(ctx context.Context, q Querier, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, `DELETE FROM organizations WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

// DeleteByIDsTx deletes a set of organizations within a transaction.
func (r *OrganizationsRepository) DeleteByIDsTx(ctx context.Context, q Querier, ids []uuid.UUID) error {
	for _, id := range ids {
		if err := r.DeleteTx(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

func scanOrganization(row *sql.Row) (*domain.Organization, error) {
	var org domain.Organization
	var settings string
	err := row.Scan(
		&org.ID, &org.OwnerUserID, &org.Name, &org.Description, &settings,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	org.Settings = json.RawMessage(settings)
	return &org, nil
}
