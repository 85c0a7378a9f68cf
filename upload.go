package gcstool

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/buildkite/gcstool/internal/trace"
	"github.com/buildkite/gcstool/pkg/paths"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Upload loads credentials, opens the bucket and uploads cfg.LocalPath to
// cfg.RemotePath. See Client.Upload.
func Upload(ctx context.Context, cfg Config) (UploadResult, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return UploadResult{}, err
	}
	defer client.Close()

	return client.Upload(ctx, cfg.LocalPath, cfg.RemotePath)
}

// Upload copies localPath into the bucket.
//
// A regular file is written to the single key destination, verbatim. For a
// directory every regular file in the tree is written to destination joined
// with the file's path relative to localPath, using "/" separators. Symlinks
// to files are uploaded, symlinked directories are not descended.
//
// When localPath is neither a file nor a directory a "does not exist" line is
// printed, UploadResult.Missing is set and nil is returned.
//
// Existing objects are overwritten without being read first.
func (c *Client) Upload(ctx context.Context, localPath, destination string) (UploadResult, error) {
	ctx, span := trace.Start(ctx, "Client.Upload")
	defer span.End()

	span.SetAttributes(
		attribute.String("local_path", localPath),
		attribute.String("destination", destination),
	)

	start := time.Now()
	result := UploadResult{}

	info, statErr := os.Stat(localPath)

	switch {
	case statErr == nil && info.Mode().IsRegular():
		transfer, err := c.uploadFile(ctx, localPath, destination)
		if err != nil {
			return result, trace.NewError(span, "failed to upload %s: %w", localPath, err)
		}
		result.add(transfer)

	case statErr == nil && info.IsDir():
		if err := c.uploadDir(ctx, localPath, destination, &result); err != nil {
			return result, trace.NewError(span, "failed to upload directory %s: %w", localPath, err)
		}

	default:
		zerolog.Ctx(ctx).Debug().Str("path", localPath).AnErr("stat_error", statErr).Msg("local path is not a file or directory")

		_, _ = c.printer.Warn("", "File or directory does not exist: %s", localPath)
		result.Missing = true
	}

	result.TotalDuration = time.Since(start)

	span.SetAttributes(
		attribute.Bool("missing", result.Missing),
		attribute.Int("files", len(result.Transfers)),
		attribute.Int64("bytes_transferred", result.BytesTransferred),
	)

	zerolog.Ctx(ctx).Info().
		Str("local_path", localPath).
		Str("destination", destination).
		Int("files", len(result.Transfers)).
		Int64("bytes_transferred", result.BytesTransferred).
		Dur("duration", result.TotalDuration).
		Msg("upload finished")

	return result, nil
}

func (c *Client) uploadDir(ctx context.Context, localPath, destination string, result *UploadResult) error {
	root := localPath

	// WalkDir does not follow a symlinked root, a trailing separator makes
	// the kernel resolve it.
	if li, err := os.Lstat(localPath); err == nil && li.Mode()&fs.ModeSymlink != 0 {
		root = filepath.Clean(localPath) + string(filepath.Separator)
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if !isRegularFile(p, d) {
			zerolog.Ctx(ctx).Debug().Str("path", p).Str("type", d.Type().String()).Msg("skipping non regular file")
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s relative to %s: %w", p, root, err)
		}

		transfer, err := c.uploadFile(ctx, p, paths.ObjectKey(destination, rel))
		if err != nil {
			return err
		}

		result.add(transfer)

		return nil
	})
}

func (c *Client) uploadFile(ctx context.Context, localFile, key string) (Transfer, error) {
	info, err := c.blob.Upload(ctx, localFile, key)
	if err != nil {
		return Transfer{}, err
	}

	uri := c.remoteURI(key)

	_, _ = c.printer.Success("", "File uploaded successfully: %s -> %s", localFile, uri)

	return Transfer{
		LocalPath: localFile,
		Key:       key,
		URI:       uri,
		Metrics: TransferMetrics{
			BytesTransferred: info.BytesTransferred,
			TransferSpeed:    info.TransferSpeed,
			Duration:         info.Duration,
		},
	}, nil
}

// isRegularFile reports whether d is a regular file, following symlinks.
func isRegularFile(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}

	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}

	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func (r *UploadResult) add(t Transfer) {
	r.Transfers = append(r.Transfers, t)
	r.BytesTransferred += t.Metrics.BytesTransferred
}
