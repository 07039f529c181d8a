package offsite

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	appconfig "github.com/semmidev/dbswap/internal/config"
)

// DriveTarget replicates backup snapshots into a Google Drive folder.
type DriveTarget struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(cfg *appconfig.OffsiteTarget) (*DriveTarget, error) {
	ctx := context.Background()

	service, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveTarget{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

func (t *DriveTarget) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	metadata := &drive.File{
		Name:    remoteName,
		Parents: []string{t.folderID},
	}

	_, err = t.service.Files.Create(metadata).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to gdrive: %w", err)
	}

	return nil
}

func (t *DriveTarget) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", t.folderID)

	fileList, err := t.service.Files.List().
		Q(query).
		Fields("files(id, name, createdTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var files []string
	for _, file := range fileList.Files {
		files = append(files, file.Name)
	}

	return files, nil
}

func (t *DriveTarget) Delete(ctx context.Context, remoteName string) error {
	query := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", t.folderID, remoteName)

	fileList, err := t.service.Files.List().
		Q(query).
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to find file: %w", err)
	}
	if len(fileList.Files) == 0 {
		return fmt.Errorf("file not found: %s", remoteName)
	}

	if err := t.service.Files.Delete(fileList.Files[0].Id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (t *DriveTarget) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false and createdTime < '%s'",
		t.folderID,
		cutoffTime.Format(time.RFC3339))

	fileList, err := t.service.Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list old files: %w", err)
	}

	var files []string
	for _, file := range fileList.Files {
		files = append(files, file.Name)
	}

	return files, nil
}
