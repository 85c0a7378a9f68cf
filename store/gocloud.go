package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/buildkite/gcstool/internal/trace"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// GocloudBlob implements the Blob interface using gocloud.dev
type GocloudBlob struct {
	bucket *blob.Bucket
}

// Ensure GocloudBlob implements the Blob interface
var _ Blob = (*GocloudBlob)(nil)

// NewGocloudBlob wraps an open bucket. The GocloudBlob takes ownership and
// closes the bucket in Close.
func NewGocloudBlob(bucket *blob.Bucket) *GocloudBlob {
	return &GocloudBlob{bucket: bucket}
}

// Close closes the underlying bucket connection
func (b *GocloudBlob) Close() error {
	return b.bucket.Close()
}

// Upload uploads a file to blob storage
func (b *GocloudBlob) Upload(ctx context.Context, filePath string, key string) (*TransferInfo, error) {
	ctx, span := trace.Start(ctx, "GocloudBlob.Upload")
	defer span.End()

	start := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return nil, trace.NewError(span, "failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	writer, err := b.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return nil, trace.NewError(span, "failed to create blob writer: %w", err)
	}

	bytesWritten, err := io.Copy(writer, file)
	if err != nil {
		_ = writer.Close()
		return nil, trace.NewError(span, "failed to copy file to blob: %w", err)
	}

	// the object is only committed once the writer is closed
	if err := writer.Close(); err != nil {
		return nil, trace.NewError(span, "failed to close blob writer: %w", err)
	}

	duration := time.Since(start)
	averageSpeed := calculateTransferSpeedMBps(bytesWritten, duration)

	span.SetAttributes(
		attribute.Int64("bytes_transferred", bytesWritten),
		attribute.String("transfer_speed", fmt.Sprintf("%.2fMB/s", averageSpeed)),
		attribute.String("blob_key", key),
	)

	zerolog.Ctx(ctx).Debug().
		Str("key", key).
		Str("path", filePath).
		Int64("bytes_transferred", bytesWritten).
		Dur("duration", duration).
		Msg("object uploaded")

	return &TransferInfo{
		BytesTransferred: bytesWritten,
		TransferSpeed:    averageSpeed,
		Duration:         duration,
	}, nil
}

// Download downloads a file from blob storage
func (b *GocloudBlob) Download(ctx context.Context, key string, destPath string) (*TransferInfo, error) {
	ctx, span := trace.Start(ctx, "GocloudBlob.Download")
	defer span.End()

	start := time.Now()

	// open the reader first so a missing object leaves no empty file behind
	reader, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, trace.NewError(span, "failed to create blob reader for %s: %w", key, err)
	}
	defer reader.Close()

	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, trace.NewError(span, "failed to create destination file %s: %w", destPath, err)
	}

	bytesWritten, err := io.Copy(destFile, reader)
	if err != nil {
		_ = destFile.Close()
		return nil, trace.NewError(span, "failed to copy blob to file: %w", err)
	}

	if err := destFile.Close(); err != nil {
		return nil, trace.NewError(span, "failed to close destination file %s: %w", destPath, err)
	}

	duration := time.Since(start)
	averageSpeed := calculateTransferSpeedMBps(bytesWritten, duration)

	span.SetAttributes(
		attribute.Int64("bytes_transferred", bytesWritten),
		attribute.String("transfer_speed", fmt.Sprintf("%.2fMB/s", averageSpeed)),
		attribute.String("blob_key", key),
	)

	zerolog.Ctx(ctx).Debug().
		Str("key", key).
		Str("path", destPath).
		Int64("bytes_transferred", bytesWritten).
		Dur("duration", duration).
		Msg("object downloaded")

	return &TransferInfo{
		BytesTransferred: bytesWritten,
		TransferSpeed:    averageSpeed,
		Duration:         duration,
	}, nil
}

// List walks every object under prefix without a delimiter, so nested
// "directories" are flattened into their full keys.
func (b *GocloudBlob) List(ctx context.Context, prefix string, fn func(ObjectInfo) error) error {
	ctx, span := trace.Start(ctx, "GocloudBlob.List")
	defer span.End()

	span.SetAttributes(attribute.String("prefix", prefix))

	iter := b.bucket.List(&blob.ListOptions{Prefix: prefix})

	var count int
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return trace.NewError(span, "failed to list objects with prefix %q: %w", prefix, err)
		}

		count++

		if err := fn(ObjectInfo{Key: obj.Key, Size: obj.Size, ModTime: obj.ModTime}); err != nil {
			return err
		}
	}

	span.SetAttributes(attribute.Int("objects", count))

	return nil
}

// IsNotExist reports whether err means the object does not exist.
func IsNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
