package commands

import (
	"context"

	"github.com/buildkite/gcstool"
	"github.com/buildkite/gcstool/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type UploadCmd struct {
	LocalPath   string `arg:"" name:"local-path" help:"File or directory to upload."`
	Destination string `arg:"" name:"destination" optional:"" help:"Object key for a file, key prefix for a directory. Empty uploads a directory to the bucket root."`
}

func (cmd *UploadCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "UploadCmdRun")
	defer span.End()

	log.Info().Str("version", globals.Version).Msg("Running UploadCmd")

	span.SetAttributes(
		attribute.String("local_path", cmd.LocalPath),
		attribute.String("destination", cmd.Destination),
	)

	result, err := gcstool.Upload(ctx, globals.config(cmd.LocalPath, cmd.Destination, gcstool.SingleObject))
	if err != nil {
		return trace.NewError(span, "failed to upload %s: %w", cmd.LocalPath, err)
	}

	if result.Missing {
		return nil
	}

	row := uploadRow("-", cmd.LocalPath, globals.remoteLabel(cmd.Destination), result)
	globals.Printer.Info("📊", "Upload summary:\n%s", summaryTable([]summaryRow{row}))

	return nil
}
