package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BackupType string

const (
	BackupTypeManual    BackupType = "manual"
	BackupTypeAutomatic BackupType = "automatic"
	BackupTypeScheduled BackupType = "scheduled"
)

type BackupStatus string

const (
	BackupStatusPending   BackupStatus = "pending"
	BackupStatusRunning   BackupStatus = "running"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
	BackupStatusCorrupted BackupStatus = "corrupted"
)

// BackupRecord describes one snapshot of a profile's file and its
// verification state. Lifecycle: pending -> running -> completed | failed;
// a completed record may later be reclassified corrupted.
type BackupRecord struct {
	ID           string
	ProfileID    string
	DatabaseType DatabaseType
	FilePath     string
	Type         BackupType
	Status       BackupStatus
	CreatedAt    time.Time
	CompletedAt  *time.Time
	SizeBytes    int64
	Checksum     string
	ErrorMessage string
}

func NewBackupRecord(profile *Profile, backupType BackupType, filePath string) *BackupRecord {
	return &BackupRecord{
		ID:           uuid.NewString(),
		ProfileID:    profile.ID,
		DatabaseType: profile.Type,
		FilePath:     filePath,
		Type:         backupType,
		Status:       BackupStatusPending,
		CreatedAt:    time.Now(),
	}
}

func (r *BackupRecord) Start() error {
	if r.Status != BackupStatusPending {
		return fmt.Errorf("cannot start backup in status %s", r.Status)
	}
	r.Status = BackupStatusRunning
	return nil
}

// Complete transitions the record to completed. The snapshot file must
// already exist with the given size and checksum.
func (r *BackupRecord) Complete(sizeBytes int64, checksum string, at time.Time) error {
	if r.Status != BackupStatusRunning {
		return fmt.Errorf("cannot complete backup in status %s", r.Status)
	}
	if checksum == "" {
		return fmt.Errorf("completed backup requires a checksum")
	}
	if at.Before(r.CreatedAt) {
		return fmt.Errorf("completion time precedes creation time")
	}
	r.Status = BackupStatusCompleted
	r.SizeBytes = sizeBytes
	r.Checksum = checksum
	r.CompletedAt = &at
	return nil
}

func (r *BackupRecord) Fail(message string) {
	if message == "" {
		message = "backup failed"
	}
	r.Status = BackupStatusFailed
	r.ErrorMessage = message
}

// MarkCorrupted reclassifies a completed record after a later verification
// failure. No-op for records that never completed.
func (r *BackupRecord) MarkCorrupted(reason string) {
	if r.Status != BackupStatusCompleted {
		return
	}
	r.Status = BackupStatusCorrupted
	r.ErrorMessage = reason
}

// BackupMetadata is one entry in the sidecar metadata map kept next to the
// backup files, keyed by backup file name.
type BackupMetadata struct {
	Description string     `json:"description"`
	BackupType  BackupType `json:"backup_type"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
