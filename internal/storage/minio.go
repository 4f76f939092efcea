// Package storage provides the S3-compatible blob store backing doubt
// attachments.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"doubtabase/internal/config"
	"doubtabase/internal/domain"
	"doubtabase/internal/domain/repositories"
)

// MinioStore implements repositories.BlobStore on a MinIO/S3 bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the configured endpoint and ensures the bucket
// exists.
func NewMinioStore(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.StorageBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.StorageBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.StorageBucket}, nil
}

// Put writes a blob at path
func (s *MinioStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", domain.ErrStorage, path, err)
	}
	return nil
}

// Remove deletes the given blobs. Missing objects are not an error, so removal
// is safe to repeat during rollback.
func (s *MinioStore) Remove(ctx context.Context, paths []string) error {
	for _, path := range paths {
		err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
		if err != nil {
			return fmt.Errorf("%w: remove %s: %v", domain.ErrStorage, path, err)
		}
	}
	return nil
}

// Download fetches a blob's bytes
func (s *MinioStore) Download(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStorage, path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, path, err)
	}
	return data, nil
}

// PresignGet issues a short-lived download URL
func (s *MinioStore) PresignGet(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, path, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: presign get %s: %v", domain.ErrStorage, path, err)
	}
	return u.String(), nil
}

// PresignPut issues a short-lived upload URL
func (s *MinioStore) PresignPut(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, path, expiry)
	if err != nil {
		return "", fmt.Errorf("%w: presign put %s: %v", domain.ErrStorage, path, err)
	}
	return u.String(), nil
}

var _ repositories.BlobStore = (*MinioStore)(nil)
