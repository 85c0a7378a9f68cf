package gcstool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buildkite/gcstool/internal/trace"
	"github.com/buildkite/gcstool/pkg/paths"
	"github.com/buildkite/gcstool/store"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Download loads credentials, opens the bucket and downloads cfg.RemotePath to
// cfg.LocalPath using cfg.Mode. See Client.Download.
func Download(ctx context.Context, cfg Config) (DownloadResult, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return DownloadResult{Mode: cfg.Mode}, err
	}
	defer client.Close()

	return client.Download(ctx, cfg.RemotePath, cfg.LocalPath, cfg.Mode)
}

// Download copies bucket content to disk.
//
// In SingleObject mode exactly the object named source is written to
// localPath. There is never a prefix match.
//
// In PrefixListing mode every object whose key starts with source is written
// to localPath joined with the object's full key, so downloading "ccc/" into
// "aaa/bb" produces "aaa/bb/ccc/x.txt". Keys ending in "/" are directory
// placeholders and are skipped.
//
// Missing parent directories are created and existing files are overwritten.
// The first failure aborts the call, files already written are left in place.
func (c *Client) Download(ctx context.Context, source, localPath string, mode Mode) (DownloadResult, error) {
	ctx, span := trace.Start(ctx, "Client.Download")
	defer span.End()

	span.SetAttributes(
		attribute.String("source", source),
		attribute.String("local_path", localPath),
		attribute.String("mode", mode.String()),
	)

	start := time.Now()
	result := DownloadResult{Mode: mode}

	var err error
	switch mode {
	case SingleObject:
		err = c.downloadSingle(ctx, source, localPath, &result)
	case PrefixListing:
		err = c.downloadPrefix(ctx, source, localPath, &result)
	default:
		err = fmt.Errorf("%w: unsupported mode %s", ErrInvalidConfiguration, mode)
	}
	if err != nil {
		return result, trace.NewError(span, "failed to download %s: %w", source, err)
	}

	result.TotalDuration = time.Since(start)

	span.SetAttributes(
		attribute.Int("files", len(result.Transfers)),
		attribute.Int("skipped", result.Skipped),
		attribute.Int64("bytes_transferred", result.BytesTransferred),
	)

	zerolog.Ctx(ctx).Info().
		Str("source", source).
		Str("local_path", localPath).
		Str("mode", mode.String()).
		Int("files", len(result.Transfers)).
		Int("skipped", result.Skipped).
		Int64("bytes_transferred", result.BytesTransferred).
		Dur("duration", result.TotalDuration).
		Msg("download finished")

	return result, nil
}

func (c *Client) downloadSingle(ctx context.Context, key, localPath string, result *DownloadResult) error {
	if key == "" {
		return fmt.Errorf("%w: remote path cannot be empty", ErrInvalidConfiguration)
	}

	if localPath == "" {
		return fmt.Errorf("%w: local path cannot be empty", ErrInvalidConfiguration)
	}

	transfer, err := c.downloadObject(ctx, key, localPath)
	if err != nil {
		return err
	}

	result.add(transfer)

	return nil
}

func (c *Client) downloadPrefix(ctx context.Context, prefix, localPath string, result *DownloadResult) error {
	return c.blob.List(ctx, prefix, func(obj store.ObjectInfo) error {
		if strings.HasSuffix(obj.Key, "/") {
			zerolog.Ctx(ctx).Debug().Str("key", obj.Key).Msg("skipping directory placeholder")
			result.Skipped++
			return nil
		}

		target, ok := paths.LocalTarget(localPath, obj.Key)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsafeKey, obj.Key)
		}

		transfer, err := c.downloadObject(ctx, obj.Key, target)
		if err != nil {
			return err
		}

		result.add(transfer)

		return nil
	})
}

func (c *Client) downloadObject(ctx context.Context, key, target string) (Transfer, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Transfer{}, fmt.Errorf("failed to create directory for %s: %w", target, err)
	}

	info, err := c.blob.Download(ctx, key, target)
	if err != nil {
		return Transfer{}, err
	}

	uri := c.remoteURI(key)

	_, _ = c.printer.Success("", "File downloaded successfully: %s -> %s", uri, target)

	return Transfer{
		LocalPath: target,
		Key:       key,
		URI:       uri,
		Metrics: TransferMetrics{
			BytesTransferred: info.BytesTransferred,
			TransferSpeed:    info.TransferSpeed,
			Duration:         info.Duration,
		},
	}, nil
}

func (r *DownloadResult) add(t Transfer) {
	r.Transfers = append(r.Transfers, t)
	r.BytesTransferred += t.Metrics.BytesTransferred
}
