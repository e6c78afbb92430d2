// Package store provides the gateway the rest of the application talks to:
// one entry point that routes a (scope, statement, parameters) request
// either to the registry store or to a named tenant store.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/prisken/hubstore/pkg/domain"
	"github.com/prisken/hubstore/pkg/registry"
	"github.com/prisken/hubstore/pkg/tenant"
)

// Scope selects the target store for a gateway request: the global registry
// or one organization's tenant store.
type Scope struct {
	organizationID uuid.UUID
	global         bool
}

// Global is the sentinel scope routing to the registry store.
var Global = Scope{global: true}

// ForOrganization returns the scope routing to an organization's tenant
// store.
func ForOrganization(organizationID uuid.UUID) Scope {
	return Scope{organizationID: organizationID}
}

// IsGlobal reports whether the scope targets the registry store.
func (s Scope) IsGlobal() bool {
	return s.global
}

// OrganizationID returns the tenant scope's organization id. Only meaningful
// when IsGlobal is false.
func (s Scope) OrganizationID() uuid.UUID {
	return s.organizationID
}

func (s Scope) String() string {
	if s.global {
		return "global"
	}
	return s.organizationID.String()
}

// Gateway routes statements by scope. It holds no state of its own beyond
// the injected stores; tenant connections are opened on demand by the
// manager. Executing against a tenant scope never creates the store
// implicitly: the application must call CreateOrganizationStore first.
type Gateway struct {
	registry *registry.Store
	tenants  *tenant.Manager
}

// NewGateway creates a gateway over an opened registry store and a tenant
// manager.
func NewGateway(reg *registry.Store, tenants *tenant.Manager) *Gateway {
	return &Gateway{registry: reg, tenants: tenants}
}

// CreateOrganizationStore provisions the tenant store for an organization.
// Explicit by design; Run and Query fail on a missing store.
func (g *Gateway) CreateOrganizationStore(ctx context.Context, organizationID uuid.UUID) error {
	if g.registry == nil {
		return domain.ErrNotInitialized
	}
	return g.tenants.CreateStore(ctx, organizationID)
}

// Run executes a mutating statement in the given scope.
func (g *Gateway) Run(ctx context.Context, scope Scope, statement string, params ...any) (tenant.ExecResult, error) {
	if g.registry == nil {
		return tenant.ExecResult{}, domain.ErrNotInitialized
	}

	if scope.IsGlobal() {
		result, err := g.registry.DB().ExecContext(ctx, statement, params...)
		if err != nil {
			return tenant.ExecResult{}, fmt.Errorf("registry exec: %w", wrapTimeout(err))
		}
		affected, _ := result.RowsAffected()
		lastID, _ := result.LastInsertId()
		return tenant.ExecResult{RowsAffected: affected, LastInsertID: lastID}, nil
	}

	return g.tenants.Execute(ctx, scope.OrganizationID(), statement, params...)
}

// Query executes a read statement in the given scope and returns a
// materialized snapshot of the result.
func (g *Gateway) Query(ctx context.Context, scope Scope, statement string, params ...any) ([]tenant.Row, error) {
	if g.registry == nil {
		return nil, domain.ErrNotInitialized
	}

	if scope.IsGlobal() {
		rows, err := g.registry.DB().QueryContext(ctx, statement, params...)
		if err != nil {
			return nil, fmt.Errorf("registry query: %w", wrapTimeout(err))
		}
		return tenant.CollectRows(rows)
	}

	return g.tenants.Query(ctx, scope.OrganizationID(), statement, params...)
}

func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}
