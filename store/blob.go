package store

import (
	"context"
)

// Blob interface defines the operations for blob storage
type Blob interface {
	// Upload writes the file at filePath to key, replacing any existing object.
	Upload(ctx context.Context, filePath string, key string) (*TransferInfo, error)

	// Download writes the object at key to destPath, replacing any existing file.
	// The parent directory of destPath must exist.
	Download(ctx context.Context, key string, destPath string) (*TransferInfo, error)

	// List calls fn for every object whose key starts with prefix, in key
	// order. Listing stops at the first error returned by fn.
	List(ctx context.Context, prefix string, fn func(ObjectInfo) error) error

	// Close releases the bucket.
	Close() error
}
