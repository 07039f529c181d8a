package offsite

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/semmidev/dbswap/internal/config"
)

// S3Target replicates backup snapshots into an S3 bucket.
type S3Target struct {
	client   *s3.Client
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

func NewS3(cfg *appconfig.OffsiteTarget) (*S3Target, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3Target{
		client:   client,
		uploader: s3manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

func (t *S3Target) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	key := path.Join(t.prefix, remoteName)

	_, err = t.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &t.bucket,
		Key:    &key,
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to S3: %w", err)
	}

	return nil
}

func (t *S3Target) List(ctx context.Context) ([]string, error) {
	resp, err := t.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: &t.bucket,
		Prefix: &t.prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list S3 objects: %w", err)
	}

	var files []string
	for _, obj := range resp.Contents {
		name := strings.TrimPrefix(*obj.Key, t.prefix)
		name = strings.TrimPrefix(name, "/")
		if name != "" {
			files = append(files, name)
		}
	}

	return files, nil
}

func (t *S3Target) Delete(ctx context.Context, remoteName string) error {
	key := path.Join(t.prefix, remoteName)

	_, err := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &t.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot from S3: %w", err)
	}

	return nil
}

func (t *S3Target) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	resp, err := t.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: &t.bucket,
		Prefix: &t.prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list S3 objects: %w", err)
	}

	var oldFiles []string
	for _, obj := range resp.Contents {
		if obj.LastModified.Before(cutoffTime) {
			name := strings.TrimPrefix(*obj.Key, t.prefix)
			name = strings.TrimPrefix(name, "/")
			if name != "" {
				oldFiles = append(oldFiles, name)
			}
		}
	}

	return oldFiles, nil
}
