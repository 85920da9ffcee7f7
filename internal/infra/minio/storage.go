package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
)

// Storage reads uploaded club videos and writes roster bundles.
type Storage struct {
	client       *miniogo.Client
	uploadBucket string
	resultBucket string
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UploadBucket string
	ResultBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:       client,
		uploadBucket: cfg.UploadBucket,
		resultBucket: cfg.ResultBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadBucket, s.resultBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// DownloadVideo fetches an uploaded recording. A missing or empty object is
// reported as port.ErrVideoUnreadable: retrying cannot fix it.
func (s *Storage) DownloadVideo(ctx context.Context, objectKey string, destPath string) error {
	info, err := s.client.StatObject(ctx, s.uploadBucket, objectKey, miniogo.StatObjectOptions{})
	if err != nil {
		if isMissing(err) {
			return fmt.Errorf("%w: object %s not found", port.ErrVideoUnreadable, objectKey)
		}
		return fmt.Errorf("stat video %s: %w", objectKey, err)
	}
	if info.Size == 0 {
		return fmt.Errorf("%w: object %s is empty", port.ErrVideoUnreadable, objectKey)
	}

	if err := s.client.FGetObject(ctx, s.uploadBucket, objectKey, destPath, miniogo.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download video %s: %w", objectKey, err)
	}
	return nil
}

// UploadResult stores a roster bundle, named after its key for downloads.
func (s *Storage) UploadResult(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.resultBucket, objectKey, reader, size, miniogo.PutObjectOptions{
		ContentType:        "application/zip",
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", path.Base(objectKey)),
	})
	if err != nil {
		return fmt.Errorf("upload roster bundle %s: %w", objectKey, err)
	}
	return nil
}

func isMissing(err error) bool {
	resp := miniogo.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}
