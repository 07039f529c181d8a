package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/semmidev/dbswap/internal/domain"
	"github.com/semmidev/dbswap/internal/registry"
	"github.com/semmidev/dbswap/internal/store"
)

// IntegrityService verifies checksums and file structure.
type IntegrityService interface {
	Checksum(path string) (string, error)
	VerifyStructure(path string) error
	VerifyBackup(record *domain.BackupRecord, expectedChecksum string) error
}

// UploadTarget is one offsite destination for completed snapshots.
type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

// BackupManager creates, verifies and retires backup snapshots.
type BackupManager struct {
	store         *store.ProfileStore
	registry      *registry.Registry
	integrity     IntegrityService
	compressor    domain.Compressor
	uploadTargets []UploadTarget
	logger        Logger
	compress      bool
}

func NewBackupManager(
	profileStore *store.ProfileStore,
	reg *registry.Registry,
	integrity IntegrityService,
	compressor domain.Compressor,
	uploadTargets []UploadTarget,
	logger Logger,
	compress bool,
) *BackupManager {
	return &BackupManager{
		store:         profileStore,
		registry:      reg,
		integrity:     integrity,
		compressor:    compressor,
		uploadTargets: uploadTargets,
		logger:        logger,
		compress:      compress,
	}
}

// CreateBackup snapshots the profile's current file into the backups
// directory. The record reaches completed only after the copy exists with a
// verified structure and a recorded checksum; any earlier failure removes the
// partial file and yields a failed record.
func (m *BackupManager) CreateBackup(ctx context.Context, profile *domain.Profile, backupType domain.BackupType, description string) (*domain.BackupRecord, error) {
	start := time.Now()
	m.logger.Infof("[%s] Starting %s backup...", profile.Type, backupType)

	// Timestamps have second resolution: bump until the derived name is
	// free so rapid backups never overwrite each other.
	at := start
	backupPath := m.registry.DeriveBackupPath(profile.Type, at)
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			break
		}
		at = at.Add(time.Second)
		backupPath = m.registry.DeriveBackupPath(profile.Type, at)
	}

	record := domain.NewBackupRecord(profile, backupType, backupPath)
	if err := m.store.AddBackup(record); err != nil {
		return nil, fmt.Errorf("register backup record: %w", err)
	}

	fail := func(err error) (*domain.BackupRecord, error) {
		if removeErr := os.Remove(backupPath); removeErr != nil && !os.IsNotExist(removeErr) {
			m.logger.Warnf("[%s] Could not remove partial backup %s: %v", profile.Type, backupPath, removeErr)
		}
		record.Fail(err.Error())
		return record, err
	}

	if err := record.Start(); err != nil {
		return record, err
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if err := os.MkdirAll(m.registry.BackupDir(), 0755); err != nil {
		return fail(fmt.Errorf("create backup directory: %w", err))
	}
	if err := copyFile(profile.FilePath, backupPath); err != nil {
		return fail(fmt.Errorf("copy snapshot: %w", err))
	}

	if err := m.integrity.VerifyStructure(backupPath); err != nil {
		return fail(err)
	}

	checksum, err := m.integrity.Checksum(backupPath)
	if err != nil {
		return fail(err)
	}
	info, err := os.Stat(backupPath)
	if err != nil {
		return fail(fmt.Errorf("stat snapshot: %w", err))
	}
	if err := record.Complete(info.Size(), checksum, time.Now()); err != nil {
		return fail(err)
	}

	if err := writeMetadataEntry(m.registry.BackupDir(), filepath.Base(backupPath), domain.BackupMetadata{
		Description: description,
		BackupType:  backupType,
		UpdatedAt:   time.Now(),
	}); err != nil {
		m.logger.Warnf("[%s] Could not update backup metadata: %v", profile.Type, err)
	}

	m.logger.Infof("[%s] Backup completed in %s: %s (%.2f MB)",
		profile.Type, time.Since(start).Round(time.Millisecond), filepath.Base(backupPath),
		float64(info.Size())/(1024*1024))

	if len(m.uploadTargets) > 0 {
		m.replicateOffsite(ctx, record)
	}

	return record, nil
}

// RestoreBackup copies a completed, verified snapshot over the target
// profile's current file. The current file is set aside first; a checksum
// mismatch after the copy restores it and reports an integrity error.
func (m *BackupManager) RestoreBackup(ctx context.Context, record *domain.BackupRecord, target *domain.Profile) error {
	if record.Status != domain.BackupStatusCompleted {
		return &domain.ValidationError{
			Field:  "backup",
			Reason: fmt.Sprintf("cannot restore a backup in status %s", record.Status),
		}
	}
	if err := m.VerifyBackup(record); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	targetPath, err := domain.NewDatabasePath(target.FilePath)
	if err != nil {
		return err
	}

	// Keep the current file recoverable until the restored copy verifies.
	asidePath := ""
	if _, err := os.Stat(target.FilePath); err == nil {
		asidePath = m.registry.DeriveTempPath(targetPath, target.Type)
		if err := copyFile(target.FilePath, asidePath); err != nil {
			return fmt.Errorf("set aside current file: %w", err)
		}
	}

	if err := copyFile(record.FilePath, target.FilePath); err != nil {
		m.recoverAside(asidePath, target.FilePath)
		return fmt.Errorf("copy backup into place: %w", err)
	}

	restored, err := m.integrity.Checksum(target.FilePath)
	if err != nil {
		m.recoverAside(asidePath, target.FilePath)
		return err
	}
	if restored != record.Checksum {
		m.recoverAside(asidePath, target.FilePath)
		return &domain.IntegrityError{Path: target.FilePath, Reason: "restored file checksum does not match backup record"}
	}

	if asidePath != "" {
		if err := os.Remove(asidePath); err != nil {
			m.logger.Warnf("[%s] Could not remove aside copy %s: %v", target.Type, asidePath, err)
		}
	}
	target.Touch()

	m.logger.Infof("[%s] Restored backup %s", target.Type, filepath.Base(record.FilePath))
	return nil
}

// VerifyBackup re-checks a completed record and reclassifies it corrupted
// when the check fails.
func (m *BackupManager) VerifyBackup(record *domain.BackupRecord) error {
	err := m.integrity.VerifyBackup(record, record.Checksum)
	if err == nil {
		return nil
	}
	record.MarkCorrupted(err.Error())
	m.logger.Errorf("[%s] Backup %s failed verification: %v", record.DatabaseType, record.ID, err)
	return err
}

// CleanupOld removes records created before the cutoff and best-effort their
// files. Re-running with the same cutoff removes nothing further.
func (m *BackupManager) CleanupOld(ctx context.Context, cutoff time.Time) (int, error) {
	old := m.store.BackupsOlderThan(cutoff)

	removed := 0
	for _, record := range old {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		if err := os.Remove(record.FilePath); err != nil && !os.IsNotExist(err) {
			m.logger.Warnf("Could not remove backup file %s: %v", record.FilePath, err)
		}
		if err := removeMetadataEntry(m.registry.BackupDir(), filepath.Base(record.FilePath)); err != nil {
			m.logger.Warnf("Could not prune metadata for %s: %v", record.FilePath, err)
		}
		if err := m.store.RemoveBackup(record.ID); err != nil {
			m.logger.Warnf("Could not remove backup record %s: %v", record.ID, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		m.logger.Infof("Cleanup removed %d old backup(s)", removed)
	}
	return removed, nil
}

// replicateOffsite ships a completed snapshot to every configured target,
// compressing a staging copy first when enabled. Failures never affect the
// local record.
func (m *BackupManager) replicateOffsite(ctx context.Context, record *domain.BackupRecord) {
	localPath := record.FilePath
	remoteName := filepath.Base(record.FilePath)

	if m.compress && m.compressor != nil {
		staged := filepath.Join(os.TempDir(), remoteName+".gz")
		if err := m.compressor.Compress(localPath, staged); err != nil {
			m.logger.Errorf("Failed to compress %s for offsite upload: %v", remoteName, err)
		} else {
			defer os.Remove(staged)
			localPath, remoteName = staged, remoteName+".gz"
		}
	}

	var wg sync.WaitGroup
	for _, target := range m.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			if err := t.Storage.Upload(ctx, localPath, remoteName); err != nil {
				m.logger.Errorf("Failed to upload %s to %s: %v", remoteName, t.Name, err)
			} else {
				m.logger.Infof("Uploaded %s to %s", remoteName, t.Name)
			}
		}(target)
	}
	wg.Wait()
}

func (m *BackupManager) recoverAside(asidePath, targetPath string) {
	if asidePath == "" {
		return
	}
	if err := copyFile(asidePath, targetPath); err != nil {
		m.logger.Errorf("Failed to recover aside copy %s: %v", asidePath, err)
		return
	}
	_ = os.Remove(asidePath)
}
