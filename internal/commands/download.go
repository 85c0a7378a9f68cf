package commands

import (
	"context"

	"github.com/buildkite/gcstool"
	"github.com/buildkite/gcstool/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type DownloadCmd struct {
	Source    string `arg:"" name:"source" help:"Object key, or key prefix with --mode=prefix."`
	LocalPath string `arg:"" name:"local-path" help:"Destination file, or destination directory for a prefix."`
	Mode      string `flag:"mode" help:"auto treats a source ending in / as a prefix." enum:"auto,object,prefix" default:"auto"`
}

func (cmd *DownloadCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "DownloadCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running DownloadCmd")

	mode, err := resolveMode(cmd.Mode, cmd.Source)
	if err != nil {
		return trace.NewError(span, "failed to resolve mode: %w", err)
	}

	span.SetAttributes(
		attribute.String("source", cmd.Source),
		attribute.String("local_path", cmd.LocalPath),
		attribute.String("mode", mode.String()),
	)

	result, err := gcstool.Download(ctx, globals.config(cmd.LocalPath, cmd.Source, mode))
	if err != nil {
		return trace.NewError(span, "failed to download %s: %w", cmd.Source, err)
	}

	if mode == gcstool.PrefixListing && len(result.Transfers) == 0 {
		globals.Printer.Warn("⚠️", "No objects found under prefix: %s", cmd.Source)
	}

	row := downloadRow("-", globals.remoteLabel(cmd.Source), cmd.LocalPath, result)
	globals.Printer.Info("📊", "Download summary:\n%s", summaryTable([]summaryRow{row}))

	return nil
}
