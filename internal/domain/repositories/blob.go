package repositories

import (
	"context"
	"time"
)

// BlobStore is the object-storage contract the attachment pipeline and the PDF
// exporter depend on. Paths are caller-chosen opaque strings.
type BlobStore interface {
	// Put writes a blob at path
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// Remove deletes the given blobs; missing paths are not an error
	Remove(ctx context.Context, paths []string) error

	// Download fetches a blob's bytes
	Download(ctx context.Context, path string) ([]byte, error)

	// PresignGet issues a short-lived download URL
	PresignGet(ctx context.Context, path string, expiry time.Duration) (string, error)

	// PresignPut issues a short-lived upload URL
	PresignPut(ctx context.Context, path string, expiry time.Duration) (string, error)
}
