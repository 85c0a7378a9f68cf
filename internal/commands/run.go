package commands

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/buildkite/gcstool"
	"github.com/buildkite/gcstool/configuration"
	"github.com/buildkite/gcstool/internal/trace"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultConfigPaths are searched in order when --config is not given.
var DefaultConfigPaths = []string{".gcstool.yml", ".gcstool.yaml", ".gcstool.json"}

type RunCmd struct {
	IDs []string `flag:"id" help:"Only run the transfers with these IDs, in configuration order."`
}

func (cmd *RunCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "RunCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running RunCmd")

	path, err := findConfig(globals.ConfigPath)
	if err != nil {
		return trace.NewError(span, "failed to find configuration: %w", err)
	}

	file, err := configuration.Load(path)
	if err != nil {
		return trace.NewError(span, "failed to load configuration: %w", err)
	}

	transfers, err := configuration.ExpandTransfers(file.Transfers)
	if err != nil {
		return trace.NewError(span, "failed to expand transfers: %w", err)
	}

	transfers, err = selectTransfers(transfers, cmd.IDs)
	if err != nil {
		return trace.NewError(span, "failed to select transfers: %w", err)
	}

	span.SetAttributes(
		attribute.String("config", path),
		attribute.Int("transfers", len(transfers)),
	)

	if len(transfers) == 0 {
		globals.Printer.Warn("⚠️", "No transfers configured in %s", path)
		return nil
	}

	// flags and environment win over the file
	if globals.Common.Bucket == "" {
		globals.Common.Bucket = file.Bucket
	}
	if globals.Common.Credentials == "" {
		globals.Common.Credentials = file.Credentials
	}
	if globals.Common.BucketURL == "" {
		globals.Common.BucketURL = file.BucketURL
	}

	client, err := gcstool.NewClient(ctx, globals.config("", "", gcstool.SingleObject))
	if err != nil {
		return trace.NewError(span, "failed to open bucket: %w", err)
	}
	defer client.Close()

	rows := make([]summaryRow, 0, len(transfers))
	detail := globals.Printer.WithIndent("   ")

	for _, t := range transfers {
		globals.Printer.Info("🚚", "Running transfer %s (%s)", t.ID, t.Direction)

		row, err := runTransfer(ctx, client, globals, t)
		if err != nil {
			return trace.NewError(span, "transfer %s failed: %w", t.ID, err)
		}

		detail.Info("", "%s: %d files, %s", row.ID, row.Files, humanize.Bytes(Int64ToUint64(row.Bytes)))

		rows = append(rows, row)
	}

	globals.Printer.Info("📊", "Transfer summary:\n%s", summaryTable(rows))

	return nil
}

func runTransfer(ctx context.Context, client *gcstool.Client, globals *Globals, t configuration.Transfer) (summaryRow, error) {
	switch t.Direction {
	case configuration.DirectionUpload:
		result, err := client.Upload(ctx, t.LocalPath, t.RemotePath)
		if err != nil {
			return summaryRow{}, err
		}
		return uploadRow(t.ID, t.LocalPath, globals.remoteLabel(t.RemotePath), result), nil

	case configuration.DirectionDownload:
		mode, err := t.ResolveMode()
		if err != nil {
			return summaryRow{}, err
		}

		result, err := client.Download(ctx, t.RemotePath, t.LocalPath, mode)
		if err != nil {
			return summaryRow{}, err
		}
		return downloadRow(t.ID, globals.remoteLabel(t.RemotePath), t.LocalPath, result), nil

	default:
		return summaryRow{}, fmt.Errorf("unknown direction %q", t.Direction)
	}
}

// findConfig returns explicit when set, otherwise the first default path that
// exists in the working directory.
func findConfig(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no configuration file given and none of %v found", DefaultConfigPaths)
}

// selectTransfers keeps the transfers named in ids, all of them when ids is
// empty. Unknown IDs are an error.
func selectTransfers(transfers []configuration.Transfer, ids []string) ([]configuration.Transfer, error) {
	if len(ids) == 0 {
		return transfers, nil
	}

	known := make(map[string]bool, len(transfers))
	for _, t := range transfers {
		known[t.ID] = true
	}

	for _, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("unknown transfer ID %s", id)
		}
	}

	selected := make([]configuration.Transfer, 0, len(ids))
	for _, t := range transfers {
		if slices.Contains(ids, t.ID) {
			selected = append(selected, t)
		}
	}

	return selected, nil
}
