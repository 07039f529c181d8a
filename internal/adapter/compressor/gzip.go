package compressor

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// GzipCompressor stages backup snapshots as .gz archives before offsite
// upload. Database files compress well, so BestCompression is worth the CPU.
type GzipCompressor struct{}

func NewGzip() *GzipCompressor {
	return &GzipCompressor{}
}

func (g *GzipCompressor) Compress(snapshotPath, archivePath string) error {
	snapshot, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer snapshot.Close()

	archive, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer archive.Close()

	gz, err := gzip.NewWriterLevel(archive, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	defer gz.Close()

	if _, err := io.Copy(gz, snapshot); err != nil {
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}

	return nil
}

func (g *GzipCompressor) Decompress(archivePath, snapshotPath string) error {
	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	gz, err := gzip.NewReader(archive)
	if err != nil {
		return fmt.Errorf("failed to read archive header: %w", err)
	}
	defer gz.Close()

	snapshot, err := os.Create(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer snapshot.Close()

	if _, err := io.Copy(snapshot, gz); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	return nil
}
