package tenant

import (
	"path/filepath"

	"github.com/google/uuid"
)

const (
	organizationsDirName = "organizations"
	dbFileName           = "tenant.db"
	mediaDirName         = "media"
)

// Layout maps organization ids to filesystem paths. Directory names are
// derived solely from the organization id, which is already stable,
// collision-free, and filesystem-safe.
type Layout struct {
	dataDir string
}

// NewLayout creates a layout rooted at dataDir.
func NewLayout(dataDir string) Layout {
	return Layout{dataDir: dataDir}
}

// Root returns the directory holding all tenant store directories.
func (l Layout) Root() string {
	return filepath.Join(l.dataDir, organizationsDirName)
}

// OrgDir returns the directory of one organization's tenant store.
func (l Layout) OrgDir(organizationID uuid.UUID) string {
	return filepath.Join(l.Root(), organizationID.String())
}

// DBPath returns the tenant database file path.
func (l Layout) DBPath(organizationID uuid.UUID) string {
	return filepath.Join(l.OrgDir(organizationID), dbFileName)
}

// MediaDir returns the binary-asset directory inside the tenant store.
func (l Layout) MediaDir(organizationID uuid.UUID) string {
	return filepath.Join(l.OrgDir(organizationID), mediaDirName)
}
