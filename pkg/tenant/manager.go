package tenant

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/prisken/hubstore/pkg/domain"
)

//go:embed schema.sql
var schemaSQL string

// DefaultIdleTimeout is used when Config.IdleTimeout is zero.
const DefaultIdleTimeout = 5 * time.Minute

// Config holds tenant manager configuration.
type Config struct {
	// DataDir is the application data root; tenant stores live under
	// DataDir/organizations/<orgID>/.
	DataDir string
	// IdleTimeout evicts pooled tenant connections that have been idle
	// this long.
	IdleTimeout time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Manager maps an organization id to a physical store: a directory holding
// one SQLite database file and a media subdirectory. It owns creation,
// pooled access, and destruction of those stores.
//
// Operations against the same organization are serialized; operations
// against different organizations run in parallel. Each organization gets a
// pooled handle limited to a single open connection, preserving the
// single-writer discipline a file-backed store needs, with idle-timeout
// eviction to avoid unbounded file-handle growth.
type Manager struct {
	layout      Layout
	idleTimeout time.Duration
	logger      *slog.Logger

	mu    sync.Mutex
	pools map[uuid.UUID]*sql.DB
	locks map[uuid.UUID]*sync.Mutex

	// removeAll is swapped in tests to simulate filesystem teardown
	// failures.
	removeAll func(path string) error
}

// NewManager creates a tenant store manager rooted at cfg.DataDir.
func NewManager(cfg Config) *Manager {
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		layout:      NewLayout(cfg.DataDir),
		idleTimeout: cfg.IdleTimeout,
		logger:      cfg.Logger,
		pools:       make(map[uuid.UUID]*sql.DB),
		locks:       make(map[uuid.UUID]*sync.Mutex),
		removeAll:   os.RemoveAll,
	}
}

// Layout returns the filesystem layout used by the manager.
func (m *Manager) Layout() Layout {
	return m.layout
}

// lockFor returns the per-organization mutex, creating it on first use.
func (m *Manager) lockFor(organizationID uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[organizationID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[organizationID] = lock
	}
	return lock
}

// CreateStore creates the tenant store for an organization: its directory,
// media subdirectory, database file, and business schema. Idempotent: the
// schema is applied with creation-idempotent statements, so calling
// CreateStore on an existing store never destroys data.
//
// If this call created the directory and schema application then fails, the
// directory is removed again so no half-initialized store is left behind. A
// pre-existing directory is left untouched on failure.
func (m *Manager) CreateStore(ctx context.Context, organizationID uuid.UUID) error {
	lock := m.lockFor(organizationID)
	lock.Lock()
	defer lock.Unlock()

	orgDir := m.layout.OrgDir(organizationID)
	preexisted := true
	if _, err := os.Stat(orgDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("%w: stat %s: %v", domain.ErrStoreIO, orgDir, err)
		}
		preexisted = false
	}

	if err := os.MkdirAll(m.layout.MediaDir(organizationID), 0o755); err != nil {
		return fmt.Errorf("%w: create directories: %v", domain.ErrStoreIO, err)
	}

	if err := m.applySchemaLocked(ctx, organizationID); err != nil {
		if !preexisted {
			if rmErr := m.removeAll(orgDir); rmErr != nil {
				m.logger.Warn("failed to remove half-initialized tenant store",
					"organization_id", organizationID, "error", rmErr)
			}
		}
		return err
	}

	return nil
}

// applySchemaLocked opens (or reuses) the tenant connection and applies the
// business schema. Caller holds the per-organization lock.
func (m *Manager) applySchemaLocked(ctx context.Context, organizationID uuid.UUID) error {
	db, err := m.openLocked(organizationID)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		m.closeLocked(organizationID)
		return fmt.Errorf("apply tenant schema: %w", wrapTimeout(err))
	}
	return nil
}

// OpenStore returns a pooled connection handle to an already-created store.
// Fails with domain.ErrStoreNotFound if the store does not exist on disk.
func (m *Manager) OpenStore(organizationID uuid.UUID) (*sql.DB, error) {
	lock := m.lockFor(organizationID)
	lock.Lock()
	defer lock.Unlock()
	return m.openExistingLocked(organizationID)
}

// openExistingLocked is openLocked plus the existence check OpenStore,
// Execute, and Query require.
func (m *Manager) openExistingLocked(organizationID uuid.UUID) (*sql.DB, error) {
	if _, ok := m.pools[organizationID]; !ok {
		if _, err := os.Stat(m.layout.DBPath(organizationID)); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: organization %s", domain.ErrStoreNotFound, organizationID)
			}
			return nil, fmt.Errorf("%w: stat tenant db: %v", domain.ErrStoreIO, err)
		}
	}
	return m.openLocked(organizationID)
}

// openLocked returns the pooled handle for the organization, creating the
// database file if necessary. Caller holds the per-organization lock.
func (m *Manager) openLocked(organizationID uuid.UUID) (*sql.DB, error) {
	m.mu.Lock()
	db, ok := m.pools[organizationID]
	m.mu.Unlock()
	if ok {
		return db, nil
	}

	// Pragmas ride in the DSN so they survive idle-timeout eviction;
	// busy_timeout and foreign_keys are per-connection state.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on",
		m.layout.DBPath(organizationID))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open tenant database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect tenant database: %v", domain.ErrStoreIO, err)
	}

	// Single writer; SQLite rejects concurrent writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(m.idleTimeout)

	m.mu.Lock()
	m.pools[organizationID] = db
	m.mu.Unlock()
	return db, nil
}

// closeLocked drops and closes the pooled handle, if any. Caller holds the
// per-organization lock.
func (m *Manager) closeLocked(organizationID uuid.UUID) {
	m.mu.Lock()
	db, ok := m.pools[organizationID]
	delete(m.pools, organizationID)
	m.mu.Unlock()
	if ok {
		if err := db.Close(); err != nil {
			m.logger.Warn("failed to close tenant connection",
				"organization_id", organizationID, "error", err)
		}
	}
}

// Execute runs a mutating statement against the organization's store.
func (m *Manager) Execute(ctx context.Context, organizationID uuid.UUID, statement string, params ...any) (ExecResult, error) {
	lock := m.lockFor(organizationID)
	lock.Lock()
	defer lock.Unlock()

	db, err := m.openExistingLocked(organizationID)
	if err != nil {
		return ExecResult{}, err
	}
	result, err := db.ExecContext(ctx, statement, params...)
	if err != nil {
		return ExecResult{}, wrapTimeout(err)
	}
	return execResult(result), nil
}

// Query runs a read statement against the organization's store and returns
// a materialized snapshot of the result.
func (m *Manager) Query(ctx context.Context, organizationID uuid.UUID, statement string, params ...any) ([]Row, error) {
	lock := m.lockFor(organizationID)
	lock.Lock()
	defer lock.Unlock()

	db, err := m.openExistingLocked(organizationID)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, statement, params...)
	if err != nil {
		return nil, wrapTimeout(err)
	}
	return CollectRows(rows)
}

// DestroyStore removes the organization's directory and everything in it.
// Idempotent: destroying a store that does not exist succeeds as a no-op.
// Filesystem deletes are not transactional; on partial failure the error is
// surfaced and no attempt is made to restore prior state.
func (m *Manager) DestroyStore(ctx context.Context, organizationID uuid.UUID) error {
	lock := m.lockFor(organizationID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	m.closeLocked(organizationID)

	orgDir := m.layout.OrgDir(organizationID)
	if _, err := os.Stat(orgDir); err != nil {
		if os.IsNotExist(err) {
			m.dropLock(organizationID)
			return nil
		}
		return fmt.Errorf("%w: stat %s: %v", domain.ErrStoreIO, orgDir, err)
	}

	if err := m.removeAll(orgDir); err != nil {
		m.logger.Error("tenant store teardown failed",
			"organization_id", organizationID, "path", orgDir, "error", err)
		return fmt.Errorf("%w: remove %s: %v", domain.ErrStoreIO, orgDir, err)
	}

	m.dropLock(organizationID)
	return nil
}

// dropLock forgets the per-organization mutex of a destroyed store so the
// lock map does not grow with every id ever touched. The caller still holds
// the mutex; later callers get a fresh one.
func (m *Manager) dropLock(organizationID uuid.UUID) {
	m.mu.Lock()
	delete(m.locks, organizationID)
	m.mu.Unlock()
}

// ListStoreDirs returns the organization ids of all tenant directories on
// disk. Entries that are not directories or not valid ids are skipped.
func (m *Manager) ListStoreDirs() ([]uuid.UUID, error) {
	entries, err := os.ReadDir(m.layout.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStoreIO, m.layout.Root(), err)
	}

	var ids []uuid.UUID
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := uuid.Parse(entry.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close closes every pooled tenant connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for id, db := range m.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
		delete(m.pools, id)
	}
	return errors.Join(errs...)
}

func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}
