package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // Local file driver for testing
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob" // In-memory driver for testing
	_ "gocloud.dev/blob/s3blob"  // AWS S3 driver
	"gocloud.dev/gcp"
)

// OpenGCS opens a Google Cloud Storage bucket using an authenticated client,
// see credentials.HTTPClient.
func OpenGCS(ctx context.Context, client *gcp.HTTPClient, bucketName string) (*GocloudBlob, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}

	bucket, err := gcsblob.OpenBucket(ctx, client, bucketName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open gcs bucket %s: %w", bucketName, err)
	}

	zerolog.Ctx(ctx).Debug().Str("bucket", bucketName).Msg("opened gcs bucket")

	return NewGocloudBlob(bucket), nil
}

// OpenURL opens a bucket using a gocloud.dev URL.
// For GCS: "gs://bucket-name" (application default credentials)
// For S3: "s3://bucket-name?region=us-east-1"
// For local development: "file:///path/to/directory"
// For tests: "mem://"
func OpenURL(ctx context.Context, bucketURL string) (*GocloudBlob, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob bucket: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("bucket_url", bucketURL).Msg("opened blob bucket")

	return NewGocloudBlob(bucket), nil
}
