package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"soundwave/config"
	"soundwave/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store wraps the MinIO client for the two operations this service needs:
// keyed blob upload and keyed time-limited URL resolution.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore initializes the MinIO client and ensures the bucket exists.
func NewStore(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	logger.Info("MinIO client initialized",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	return &Store{client: client, bucket: cfg.MinioBucket}, nil
}

// Upload streams a blob to the bucket under the given key. Attempt-once:
// there is no retry or resumable upload here.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %q: %w", key, err)
	}
	return nil
}

// PresignedURL resolves a time-limited download URL for the given key. The
// URL is only valid for the given expiry window; callers must re-resolve
// after it lapses.
func (s *Store) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object %q: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes a blob. Unreferenced blobs left behind by record deletion
// are not collected automatically; this exists for the diagnostics command.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %q: %w", key, err)
	}
	return nil
}

// Stats returns object count and total size for the bucket.
func (s *Store) Stats(ctx context.Context) (count int, totalSize int64, err error) {
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return 0, 0, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		count++
		totalSize += object.Size
	}
	return count, totalSize, nil
}
