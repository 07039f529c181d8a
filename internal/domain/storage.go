package domain

import (
	"context"
	"time"
)

// Storage is an offsite destination for verified backup snapshots.
type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
	GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error)
}

// Compressor stages snapshots for offsite upload. Local backups stay
// uncompressed byte-copies so size and checksum invariants hold.
type Compressor interface {
	Compress(sourcePath, destPath string) error
	Decompress(sourcePath, destPath string) error
}
