package usecase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/semmidev/dbswap/internal/domain"
)

// MetadataFileName is the sidecar map kept in the backups directory, keyed by
// backup file name.
const MetadataFileName = "backup_metadata.json"

func loadMetadata(backupDir string) (map[string]domain.BackupMetadata, error) {
	path := filepath.Join(backupDir, MetadataFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]domain.BackupMetadata), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup metadata: %w", err)
	}

	entries := make(map[string]domain.BackupMetadata)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse backup metadata: %w", err)
	}
	return entries, nil
}

func saveMetadata(backupDir string, entries map[string]domain.BackupMetadata) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup metadata: %w", err)
	}

	path := filepath.Join(backupDir, MetadataFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}
	return nil
}

func writeMetadataEntry(backupDir, fileName string, entry domain.BackupMetadata) error {
	entries, err := loadMetadata(backupDir)
	if err != nil {
		return err
	}
	entries[fileName] = entry
	return saveMetadata(backupDir, entries)
}

func removeMetadataEntry(backupDir, fileName string) error {
	entries, err := loadMetadata(backupDir)
	if err != nil {
		return err
	}
	if _, ok := entries[fileName]; !ok {
		return nil
	}
	delete(entries, fileName)
	return saveMetadata(backupDir, entries)
}
