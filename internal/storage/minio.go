// Package storage stores uploaded files (profile photos, doctor signatures)
// in S3-compatible object storage. Files pass through as opaque blobs; the
// bucket owns their format.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"tritmo/internal/config"
)

// Uploader wraps a minio client for one bucket.
type Uploader struct {
	client *minio.Client
	bucket string
	log    *zap.Logger
}

// NewUploader connects to object storage and ensures the bucket exists.
func NewUploader(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*Uploader, error) {
	if log == nil {
		log = zap.NewNop()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info("created storage bucket", zap.String("bucket", cfg.Bucket))
	}

	return &Uploader{client: client, bucket: cfg.Bucket, log: log}, nil
}

// Upload streams a file into the bucket under the given key.
func (u *Uploader) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := u.client.PutObject(ctx, u.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	u.log.Debug("uploaded object", zap.String("key", key), zap.Int64("size", size))
	return nil
}

// Fetch retrieves an object for streaming back to the caller.
func (u *Uploader) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := u.client.GetObject(ctx, u.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	return obj, nil
}
