package tenant

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/hubstore/pkg/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Config{DataDir: t.TempDir()})
	t.Cleanup(func() { m.Close() })
	return m
}

func TestCreateStore_Layout(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	orgID := uuid.New()

	require.NoError(t, m.CreateStore(ctx, orgID))

	assert.DirExists(t, m.Layout().OrgDir(orgID))
	assert.DirExists(t, m.Layout().MediaDir(orgID))
	assert.FileExists(t, m.Layout().DBPath(orgID))

	// Business tables exist.
	rows, err := m.Query(ctx, orgID,
		`SELECT name FROM sqlite_master WHERE type='table' ORDER BY name`)
	require.NoError(t, err)
	var names []string
	for _, row := range rows {
		names = append(names, row["name"].(string))
	}
	assert.Subset(t, names, []string{"posts", "categories", "media_assets", "templates"})
}

func TestCreateStore_IdempotentPreservesData(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	orgID := uuid.New()

	require.NoError(t, m.CreateStore(ctx, orgID))

	_, err := m.Execute(ctx, orgID,
		`INSERT INTO posts (id, content) VALUES (?, ?)`, uuid.NewString(), "hello")
	require.NoError(t, err)

	// Second create must not erase the row written between the calls.
	require.NoError(t, m.CreateStore(ctx, orgID))

	rows, err := m.Query(ctx, orgID, `SELECT content FROM posts`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0]["content"])
}

func TestCreateStore_FreshDirRemovedOnSchemaFailure(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	orgID := uuid.New()

	original := schemaSQL
	schemaSQL = "CREATE BOGUS;"
	defer func() { schemaSQL = original }()

	err := m.CreateStore(ctx, orgID)
	require.Error(t, err)

	// The half-initialized directory is gone.
	_, statErr := os.Stat(m.Layout().OrgDir(orgID))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreateStore_PreexistingDirKeptOnSchemaFailure(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	orgID := uuid.New()

	require.NoError(t, m.CreateStore(ctx, orgID))
	marker := filepath.Join(m.Layout().MediaDir(orgID), "asset.bin")
	require.NoError(t, os.WriteFile(marker, []byte("data"), 0o644))

	original := schemaSQL
	schemaSQL = "CREATE BOGUS;"
	defer func() { schemaSQL = original }()

	err := m.CreateStore(ctx, orgID)
	require.Error(t, err)

	// Pre-existing store is left untouched.
	assert.FileExists(t, marker)
	assert.FileExists(t, m.Layout().DBPath(orgID))
}

func TestOpenStore_NotFound(t *testing.T) {
	m := newTestManager(t)

	_, err := m.OpenStore(uuid.New())
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestExecuteQuery_MissingStore(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Execute(ctx, uuid.New(), `SELECT 1`)
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)

	_, err = m.Query(ctx, uuid.New(), `SELECT 1`)
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestExecute_ReportsResult(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	orgID := uuid.New()
	require.NoError(t, m.CreateStore(ctx, orgID))

	result, err := m.Execute(ctx, orgID,
		`INSERT INTO categories (id, name) VALUES (?, ?)`, uuid.NewString(), "news")
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.RowsAffected)
}

func TestDestroyStore_RemovesEverything(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	orgID := uuid.New()
	require.NoError(t, m.CreateStore(ctx, orgID))

	_, err := m.Execute(ctx, orgID,
		`INSERT INTO posts (id, content) VALUES (?, ?)`, uuid.NewString(), "bye")
	require.NoError(t, err)

	require.NoError(t, m.DestroyStore(ctx, orgID))

	_, statErr := os.Stat(m.Layout().OrgDir(orgID))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDestroyStore_MissingIsNoOp(t *testing.T) {
	m := newTestManager(t)

	// Deleting something already gone is not an error.
	err := m.DestroyStore(context.Background(), uuid.New())
	assert.NoError(t, err)
}

func TestDestroyStore_SurfacesRemovalFailure(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	orgID := uuid.New()
	require.NoError(t, m.CreateStore(ctx, orgID))

	m.removeAll = func(string) error { return errors.New("device busy") }

	err := m.DestroyStore(ctx, orgID)
	assert.ErrorIs(t, err, domain.ErrStoreIO)

	// No restore is attempted; a later retry with a healthy filesystem
	// succeeds.
	m.removeAll = os.RemoveAll
	assert.NoError(t, m.DestroyStore(ctx, orgID))
}

func TestListStoreDirs(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	ids, err := m.ListStoreDirs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	a, b := uuid.New(), uuid.New()
	require.NoError(t, m.CreateStore(ctx, a))
	require.NoError(t, m.CreateStore(ctx, b))

	// Non-id entries are skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(m.Layout().Root(), "not-a-uuid"), 0o755))

	ids, err = m.ListStoreDirs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ids)
}

func TestManager_ConcurrentDifferentOrgs(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		ids[i] = uuid.New()
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := m.CreateStore(ctx, ids[i]); err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = m.Execute(ctx, ids[i],
				`INSERT INTO posts (id, content) VALUES (?, ?)`,
				uuid.NewString(), fmt.Sprintf("post-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "org %d", i)
	}

	listed, err := m.ListStoreDirs()
	require.NoError(t, err)
	assert.Len(t, listed, n)
}

func TestDestroyStore_ForgetsLock(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	orgID := uuid.New()

	require.NoError(t, m.CreateStore(ctx, orgID))
	require.NoError(t, m.DestroyStore(ctx, orgID))

	m.mu.Lock()
	_, ok := m.locks[orgID]
	m.mu.Unlock()
	assert.False(t, ok, "destroyed store left a lock map entry")

	// The missing-store no-op leaves nothing behind either.
	require.NoError(t, m.DestroyStore(ctx, uuid.New()))
	m.mu.Lock()
	n := len(m.locks)
	m.mu.Unlock()
	assert.Zero(t, n)
}
