package registry

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/semmidev/dbswap/internal/domain"
)

// BackupDirName is the directory under the data dir holding user backups.
const BackupDirName = "user_backups"

// Registry resolves and validates canonical filesystem locations for each
// database slot. It never touches the filesystem: existence checks are the
// caller's job.
type Registry struct {
	dataDir   string
	locations map[domain.DatabaseType]domain.DatabasePath
}

func New(dataDir string) (*Registry, error) {
	if !filepath.IsAbs(dataDir) {
		return nil, &domain.ValidationError{Field: "data_dir", Reason: fmt.Sprintf("%q is not absolute", dataDir)}
	}

	locations := make(map[domain.DatabaseType]domain.DatabasePath, len(domain.AllDatabaseTypes()))
	for _, dbType := range domain.AllDatabaseTypes() {
		p, err := domain.NewDatabasePath(filepath.Join(dataDir, string(dbType)+domain.Extension))
		if err != nil {
			return nil, fmt.Errorf("build canonical path for %s: %w", dbType, err)
		}
		locations[dbType] = p
	}

	return &Registry{dataDir: dataDir, locations: locations}, nil
}

// Resolve returns the canonical path for a slot.
func (r *Registry) Resolve(dbType domain.DatabaseType) (domain.DatabasePath, error) {
	p, ok := r.locations[dbType]
	if !ok {
		return domain.DatabasePath{}, &domain.ValidationError{
			Field:  "database_type",
			Reason: fmt.Sprintf("unknown type %q", dbType),
		}
	}
	return p, nil
}

// Override rebinds a slot's canonical location, e.g. after a committed path
// change.
func (r *Registry) Override(dbType domain.DatabaseType, path string) error {
	if !dbType.Valid() {
		return &domain.ValidationError{Field: "database_type", Reason: fmt.Sprintf("unknown type %q", dbType)}
	}
	p, err := domain.NewDatabasePath(path)
	if err != nil {
		return err
	}
	r.locations[dbType] = p
	return nil
}

// Validate checks that path is acceptable for a slot: absolute, recognized
// extension, no reserved names.
func (r *Registry) Validate(dbType domain.DatabaseType, path string) error {
	if !dbType.Valid() {
		return &domain.ValidationError{Field: "database_type", Reason: fmt.Sprintf("unknown type %q", dbType)}
	}
	_, err := domain.NewDatabasePath(path)
	return err
}

// BackupDir returns the designated backups directory.
func (r *Registry) BackupDir() string {
	return filepath.Join(r.dataDir, BackupDirName)
}

// DeriveBackupPath places a timestamped backup for a slot inside the backups
// directory.
func (r *Registry) DeriveBackupPath(dbType domain.DatabaseType, at time.Time) string {
	return filepath.Join(r.BackupDir(), domain.BackupFileName(dbType, at))
}

// DeriveTempPath places a randomized temp name next to the given path.
func (r *Registry) DeriveTempPath(p domain.DatabasePath, dbType domain.DatabaseType) string {
	return filepath.Join(p.Dir(), domain.TempFileName(dbType))
}

// InsideBackupDir reports whether path resolves inside the backups directory,
// rejecting traversal escapes.
func (r *Registry) InsideBackupDir(path string) bool {
	rel, err := filepath.Rel(r.BackupDir(), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
