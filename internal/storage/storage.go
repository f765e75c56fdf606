package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore uploads generated exports and reports where they can be fetched.
type ObjectStore interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	URL(name string) string
}

// MinioStore keeps objects in a single bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	scheme string
	host   string
}

// NewObjectStore returns nil when storage is disabled; callers treat a nil store as
// "archiving unavailable".
func NewObjectStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (ObjectStore, error) {
	if !cfg.Enabled {
		logger.Info("Object storage disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := NewMinioStore(client, cfg.Bucket, cfg.Endpoint, cfg.UseSSL)
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("Object storage ready", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return store, nil
}

func NewMinioStore(client *minio.Client, bucket, host string, useSSL bool) *MinioStore {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return &MinioStore{client: client, bucket: bucket, scheme: scheme, host: host}
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *MinioStore) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return s.URL(name), nil
}

func (s *MinioStore) URL(name string) string {
	return fmt.Sprintf("%s://%s/%s/%s", s.scheme, s.host, s.bucket, name)
}
