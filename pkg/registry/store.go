package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prisken/hubstore/pkg/domain"
)

// Store is the registry store: the single database holding users,
// organizations, and memberships. It owns identity and ownership truth.
//
// A Store is an explicitly constructed instance. Open it once at startup,
// inject it where needed, and Close it on shutdown. It is safe for
// concurrent use; the single-connection limit queues transactions so
// multi-row mutations never interleave destructively.
type Store struct {
	db          *sql.DB
	users       *UsersRepository
	orgs        *OrganizationsRepository
	memberships *MembershipsRepository
}

// Open creates or opens the registry database at path and applies the
// registry schema. Idempotent: opening an existing registry never destroys
// data.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:          db,
		users:       NewUsersRepository(db),
		orgs:        NewOrganizationsRepository(db),
		memberships: NewMembershipsRepository(db),
	}, nil
}

// Close closes the registry database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct statements. Prefer the typed
// operations when one exists.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Users returns the users repository.
func (s *Store) Users() *UsersRepository {
	return s.users
}

// Organizations returns the organizations repository.
func (s *Store) Organizations() *OrganizationsRepository {
	return s.orgs
}

// Memberships returns the memberships repository.
func (s *Store) Memberships() *MembershipsRepository {
	return s.memberships
}

// CreateOrganization inserts the organization row and its owning membership
// as a single atomic unit. If the membership insert fails, the organization
// insert is rolled back, so no organization row ever exists without exactly
// one owner membership.
func (s *Store) CreateOrganization(ctx context.Context, ownerUserID uuid.UUID, name string, description *string) (*domain.Organization, error) {
	now := time.Now().UTC()
	org := &domain.Organization{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	membership := &domain.Membership{
		UserID:         ownerUserID,
		OrganizationID: org.ID,
		Role:           domain.RoleOwner,
		CreatedAt:      now,
	}

	err := Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.orgs.CreateTx(ctx, tx, org); err != nil {
			return err
		}
		return s.memberships.CreateTx(ctx, tx, membership)
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

// ListOrganizationsForUser returns the organizations the user belongs to,
// newest first.
func (s *Store) ListOrganizationsForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Organization, error) {
	return s.orgs.ListForUser(ctx, userID)
}

// DeleteOrganizationCascade removes the organization and its memberships in
// one transaction. The tenant store on disk is untouched; callers sequence
// filesystem teardown after this commits.
func (s *Store) DeleteOrganizationCascade(ctx context.Context, organizationID uuid.UUID) error {
	return Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.memberships.DeleteByOrganizationTx(ctx, tx, organizationID); err != nil {
			return err
		}
		return s.orgs.DeleteTx(ctx, tx, organizationID)
	})
}

// DeleteUserCascade removes the user, all their memberships, and every
// organization they own, in one transaction. It returns the ids of the
// deleted organizations so the caller can tear down their tenant stores
// after the commit. On any failure the whole transaction rolls back and the
// registry is unchanged.
func (s *Store) DeleteUserCascade(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var owned []uuid.UUID
	err := Tx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		owned, err = s.orgs.ListOwnedByUserTx(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("list owned organizations: %w", err)
		}
		if err := s.memberships.DeleteByUserTx(ctx, tx, userID); err != nil {
			return err
		}
		// Memberships of other users in the owned organizations must go
		// before the organization rows themselves.
		for _, orgID := range owned {
			if err := s.memberships.DeleteByOrganizationTx(ctx, tx, orgID); err != nil {
				return err
			}
		}
		if err := s.orgs.DeleteByIDsTx(ctx, tx, owned); err != nil {
			return err
		}
		return s.users.DeleteTx(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}
	return owned, nil
}
