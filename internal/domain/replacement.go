package domain

// ReplacementKind selects which workflow a replacement request runs.
type ReplacementKind string

const (
	KindBackupRestore ReplacementKind = "backup_restore"
	KindPathChange    ReplacementKind = "path_change"
	KindFileImport    ReplacementKind = "file_import"
)

func (k ReplacementKind) Valid() bool {
	switch k {
	case KindBackupRestore, KindPathChange, KindFileImport:
		return true
	}
	return false
}

// ReplacementRequest asks the coordinator to point a database slot at a
// different file.
type ReplacementRequest struct {
	Kind               ReplacementKind
	DatabaseType       DatabaseType
	SourcePath         string
	Description        string
	CreateSafetyBackup bool
	Force              bool
	RollbackOnFailure  bool
}

// Phase names one step of the replacement workflow.
type Phase string

const (
	PhaseValidating  Phase = "validating"
	PhaseSafetyCheck Phase = "safety_check"
	PhaseBackup      Phase = "backup"
	PhasePausing     Phase = "pausing"
	PhaseSwapping    Phase = "swapping"
	PhaseFinalizing  Phase = "finalizing"

	PhaseSuccess             Phase = "success"
	PhaseFailedRolledBack    Phase = "failed_rolled_back"
	PhaseFailedUnrecoverable Phase = "failed_unrecoverable"
)

// ProgressFunc receives phase transitions while a replacement runs. May be
// nil.
type ProgressFunc func(phase Phase, message string)

// ReplacementResult is the outcome handed back to any presentation layer.
type ReplacementResult struct {
	Success           bool
	Phase             Phase
	NewPath           string
	SafetyBackupPath  string
	SourceChecksum    string
	ErrorMessage      string
	RollbackPerformed bool
}
