package domain

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Extension is the only recognized database file extension.
const Extension = ".db"

// TimestampLayout is the timestamp format embedded in backup file names.
const TimestampLayout = "20060102_150405"

// PathKind classifies a database file name by the naming grammar alone.
type PathKind string

const (
	PathKindStandard PathKind = "standard"
	PathKindBackup   PathKind = "backup"
	PathKindTemp     PathKind = "temp"
)

var (
	backupNamePattern = regexp.MustCompile(`^([a-z_]+)_backup_(\d{8}_\d{6})\.db$`)
	tempNamePattern   = regexp.MustCompile(`^([a-z_]+)_temp_([0-9a-f]{8})\.db$`)

	// Windows device names are rejected on every host so a data
	// directory synced across machines stays portable.
	reservedNames = map[string]struct{}{
		"con": {}, "prn": {}, "aux": {}, "nul": {},
		"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
		"com6": {}, "com7": {}, "com8": {}, "com9": {},
		"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
		"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
	}
)

// DatabasePath is a validated absolute path to a database file.
type DatabasePath struct {
	raw string
}

func NewDatabasePath(path string) (DatabasePath, error) {
	if strings.TrimSpace(path) == "" {
		return DatabasePath{}, &ValidationError{Field: "path", Reason: "must not be empty"}
	}
	if !filepath.IsAbs(path) {
		return DatabasePath{}, &ValidationError{Field: "path", Reason: fmt.Sprintf("%q is not absolute", path)}
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		return DatabasePath{}, &ValidationError{Field: "path", Reason: "file name must not be empty"}
	}
	if !strings.EqualFold(filepath.Ext(base), Extension) {
		return DatabasePath{}, &ValidationError{
			Field:  "path",
			Reason: fmt.Sprintf("%q does not use the %s extension", base, Extension),
		}
	}
	if _, reserved := reservedNames[strings.ToLower(stem)]; reserved {
		return DatabasePath{}, &ValidationError{
			Field:  "path",
			Reason: fmt.Sprintf("%q is a reserved file name", stem),
		}
	}

	return DatabasePath{raw: filepath.Clean(path)}, nil
}

func (p DatabasePath) String() string { return p.raw }
func (p DatabasePath) Dir() string    { return filepath.Dir(p.raw) }
func (p DatabasePath) Base() string   { return filepath.Base(p.raw) }

// BackupFileName builds a backup file name for a slot following the
// {slot}_backup_{timestamp}.db grammar.
func BackupFileName(dbType DatabaseType, at time.Time) string {
	return fmt.Sprintf("%s_backup_%s%s", dbType, at.Format(TimestampLayout), Extension)
}

// TempFileName builds a temp file name for a slot following the
// {slot}_temp_{random}.db grammar.
func TempFileName(dbType DatabaseType) string {
	return fmt.Sprintf("%s_temp_%08x%s", dbType, rand.Uint32(), Extension)
}

// ClassifyFileName reports which part of the naming grammar a file name
// matches. Anything that is neither a backup nor a temp name is standard.
func ClassifyFileName(name string) PathKind {
	if backupNamePattern.MatchString(name) {
		return PathKindBackup
	}
	if tempNamePattern.MatchString(name) {
		return PathKindTemp
	}
	return PathKindStandard
}

// ParseBackupTimestamp extracts the creation timestamp from a backup file
// name produced by BackupFileName.
func ParseBackupTimestamp(name string) (time.Time, error) {
	matches := backupNamePattern.FindStringSubmatch(name)
	if len(matches) < 3 {
		return time.Time{}, fmt.Errorf("invalid backup file name: %q", name)
	}
	return time.Parse(TimestampLayout, matches[2])
}

// TempNameForType reports whether name is a temp file belonging to the
// given slot.
func TempNameForType(name string, dbType DatabaseType) bool {
	matches := tempNamePattern.FindStringSubmatch(name)
	return len(matches) == 3 && matches[1] == string(dbType)
}
