// Package lifecycle sequences registry-store transactions and tenant-store
// teardown so that the system converges to a consistent state even when a
// step fails.
//
// The ordering is deliberate: registry mutation is transactional and commits
// first; filesystem teardown is best-effort and runs strictly after the
// commit. This avoids holding a transaction open across slow filesystem I/O,
// at the cost of a recoverable inconsistency window (an orphaned tenant
// directory), which Reconcile closes.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/prisken/hubstore/pkg/domain"
	"github.com/prisken/hubstore/pkg/registry"
	"github.com/prisken/hubstore/pkg/tenant"
)

// CleanupError reports tenant-store teardown failures that occurred after
// the registry deletion already committed. It is warning-class: the caller's
// data is gone from the registry, but cleanup is incomplete and the listed
// directories remain on disk as orphans until Reconcile removes them.
type CleanupError struct {
	Failures map[uuid.UUID]error
}

func (e *CleanupError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for id, err := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", id, err))
	}
	return fmt.Sprintf("registry deletion committed but tenant store cleanup incomplete: %s",
		strings.Join(parts, "; "))
}

// Stores is the tenant-side surface the orchestrator needs. *tenant.Manager
// satisfies it.
type Stores interface {
	DestroyStore(ctx context.Context, organizationID uuid.UUID) error
	ListStoreDirs() ([]uuid.UUID, error)
}

var _ Stores = (*tenant.Manager)(nil)

// Orchestrator coordinates cascading deletion across the registry store and
// the filesystem.
type Orchestrator struct {
	registry *registry.Store
	tenants  Stores
	logger   *slog.Logger
}

// NewOrchestrator creates a deletion orchestrator.
func NewOrchestrator(reg *registry.Store, tenants Stores, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{registry: reg, tenants: tenants, logger: logger}
}

// DeleteOrganization removes the organization and its memberships from the
// registry in one transaction, then tears down its tenant store. If the
// transaction fails, nothing changes and the tenant store is untouched. If
// teardown fails after the commit, the registry deletion stands and the
// returned error is a *CleanupError.
func (o *Orchestrator) DeleteOrganization(ctx context.Context, organizationID uuid.UUID) error {
	if err := o.registry.DeleteOrganizationCascade(ctx, organizationID); err != nil {
		return err
	}

	if err := o.tenants.DestroyStore(ctx, organizationID); err != nil {
		o.logger.Warn("tenant store orphaned after organization deletion",
			"organization_id", organizationID, "error", err)
		return &CleanupError{Failures: map[uuid.UUID]error{organizationID: err}}
	}

	return nil
}

// DeleteUser removes the user, their memberships, and every organization
// they own from the registry in one transaction, then tears down each owned
// organization's tenant store. Teardown calls are independent: one failure
// neither blocks the others nor reverts the committed registry deletion.
// All teardown failures are collected into a single *CleanupError.
func (o *Orchestrator) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	owned, err := o.registry.DeleteUserCascade(ctx, userID)
	if err != nil {
		return err
	}

	failures := make(map[uuid.UUID]error)
	for _, orgID := range owned {
		if err := o.tenants.DestroyStore(ctx, orgID); err != nil {
			o.logger.Warn("tenant store orphaned after user deletion",
				"user_id", userID, "organization_id", orgID, "error", err)
			failures[orgID] = err
		}
	}
	if len(failures) > 0 {
		return &CleanupError{Failures: failures}
	}

	return nil
}

// ReconcileReport describes the outcome of one reconciliation sweep.
type ReconcileReport struct {
	// Removed lists orphaned tenant directories that were cleaned up.
	Removed []uuid.UUID
	// Failed lists orphans whose removal failed; they will be retried on
	// the next sweep.
	Failed map[uuid.UUID]error
}

// MarshalJSON renders failures as their messages; error values would
// otherwise serialize as empty objects.
func (r *ReconcileReport) MarshalJSON() ([]byte, error) {
	failed := make(map[string]string, len(r.Failed))
	for id, err := range r.Failed {
		failed[id.String()] = err.Error()
	}
	return json.Marshal(struct {
		Removed []uuid.UUID       `json:"removed"`
		Failed  map[string]string `json:"failed"`
	}{Removed: r.Removed, Failed: failed})
}

// Reconcile compares tenant directories on disk against organization rows
// in the registry and removes orphans (directories whose organization is
// gone). The reverse case, an organization row without a directory, is a
// hard failure surfaced when the store is opened, never repaired here.
func (o *Orchestrator) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	onDisk, err := o.tenants.ListStoreDirs()
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Failed: make(map[uuid.UUID]error)}
	for _, id := range onDisk {
		_, err := o.registry.Organizations().GetByID(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrOrganizationNotFound) {
			return report, fmt.Errorf("check organization %s: %w", id, err)
		}

		if err := o.tenants.DestroyStore(ctx, id); err != nil {
			report.Failed[id] = err
			continue
		}
		o.logger.Info("removed orphaned tenant store", "organization_id", id)
		report.Removed = append(report.Removed, id)
	}

	return report, nil
}
