package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/hubstore/pkg/domain"
	"github.com/prisken/hubstore/pkg/registry"
	"github.com/prisken/hubstore/pkg/tenant"
)

func newTestGateway(t *testing.T) (*Gateway, *tenant.Manager) {
	t.Helper()
	dataDir := t.TempDir()

	reg, err := registry.Open(filepath.Join(dataDir, "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	tenants := tenant.NewManager(tenant.Config{DataDir: dataDir})
	t.Cleanup(func() { tenants.Close() })

	return NewGateway(reg, tenants), tenants
}

func TestGateway_NotInitialized(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(nil, nil)

	_, err := g.Run(ctx, Global, `SELECT 1`)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	_, err = g.Query(ctx, Global, `SELECT 1`)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	err = g.CreateOrganizationStore(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestGateway_GlobalScope(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)

	result, err := g.Run(ctx, Global,
		`INSERT INTO users (id, name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), "alice", "hash", "2026-01-02 15:04:05")
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.RowsAffected)

	rows, err := g.Query(ctx, Global, `SELECT name FROM users`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0]["name"])
}

func TestGateway_TenantScope(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	orgID := uuid.New()

	require.NoError(t, g.CreateOrganizationStore(ctx, orgID))

	_, err := g.Run(ctx, ForOrganization(orgID),
		`INSERT INTO categories (id, name) VALUES (?, ?)`, uuid.NewString(), "news")
	require.NoError(t, err)

	rows, err := g.Query(ctx, ForOrganization(orgID), `SELECT name FROM categories`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "news", rows[0]["name"])

	// Tenant tables never leak into the registry.
	_, err = g.Query(ctx, Global, `SELECT name FROM categories`)
	assert.Error(t, err)
}

func TestGateway_TenantScopeRequiresExplicitCreate(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)

	// No implicit store creation on execute or query.
	_, err := g.Run(ctx, ForOrganization(uuid.New()), `SELECT 1`)
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
	_, err = g.Query(ctx, ForOrganization(uuid.New()), `SELECT 1`)
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestGateway_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	orgA, orgB := uuid.New(), uuid.New()

	require.NoError(t, g.CreateOrganizationStore(ctx, orgA))
	require.NoError(t, g.CreateOrganizationStore(ctx, orgB))

	_, err := g.Run(ctx, ForOrganization(orgA),
		`INSERT INTO posts (id, content) VALUES (?, ?)`, uuid.NewString(), "only in A")
	require.NoError(t, err)

	rowsA, err := g.Query(ctx, ForOrganization(orgA), `SELECT content FROM posts`)
	require.NoError(t, err)
	rowsB, err := g.Query(ctx, ForOrganization(orgB), `SELECT content FROM posts`)
	require.NoError(t, err)

	assert.Len(t, rowsA, 1)
	assert.Empty(t, rowsB)
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "global", Global.String())

	id := uuid.New()
	assert.Equal(t, id.String(), ForOrganization(id).String())
	assert.False(t, ForOrganization(id).IsGlobal())
	assert.True(t, Global.IsGlobal())
}
