package integrity

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/semmidev/dbswap/internal/domain"
)

const headerSize = 100

var magic = []byte("SQLite format 3\x00")

// Service computes checksums and performs structural sanity checks on
// database files.
type Service struct{}

func New() *Service {
	return &Service{}
}

// Checksum returns the hex-encoded SHA-256 digest of the whole file.
func (s *Service) Checksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyStructure checks the file's magic header and runs a lightweight
// consistency check. A zero or near-zero byte file is always invalid.
func (s *Service) VerifyStructure(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() < headerSize {
		return &domain.IntegrityError{Path: path, Reason: fmt.Sprintf("file too small (%d bytes)", info.Size())}
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(file, header); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	if !bytes.Equal(header[:len(magic)], magic) {
		return &domain.IntegrityError{Path: path, Reason: "bad magic header"}
	}

	// Offset 16 holds the page size: a power of two in [512, 32768],
	// or 1 meaning 65536.
	pageSize := int64(binary.BigEndian.Uint16(header[16:18]))
	if pageSize == 1 {
		pageSize = 65536
	}
	if pageSize < 512 || pageSize > 65536 || pageSize&(pageSize-1) != 0 {
		return &domain.IntegrityError{Path: path, Reason: fmt.Sprintf("implausible page size %d", pageSize)}
	}
	if info.Size()%pageSize != 0 {
		return &domain.IntegrityError{
			Path:   path,
			Reason: fmt.Sprintf("file size %d is not a multiple of page size %d", info.Size(), pageSize),
		}
	}

	return nil
}

// VerifyBackup checks that a backup record's file still exists, matches the
// recorded size, matches the expected checksum when supplied, and passes the
// structure check.
func (s *Service) VerifyBackup(record *domain.BackupRecord, expectedChecksum string) error {
	info, err := os.Stat(record.FilePath)
	if err != nil {
		return &domain.IntegrityError{Path: record.FilePath, Reason: "backup file missing"}
	}
	if info.Size() != record.SizeBytes {
		return &domain.IntegrityError{
			Path:   record.FilePath,
			Reason: fmt.Sprintf("size mismatch: recorded %d, found %d", record.SizeBytes, info.Size()),
		}
	}

	if expectedChecksum != "" {
		actual, err := s.Checksum(record.FilePath)
		if err != nil {
			return err
		}
		if actual != expectedChecksum {
			return &domain.IntegrityError{Path: record.FilePath, Reason: "checksum mismatch"}
		}
	}

	return s.VerifyStructure(record.FilePath)
}
