package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/buildkite/gcstool/internal/commands"
	"github.com/buildkite/gcstool/internal/console"
	"github.com/buildkite/gcstool/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	version = "dev"

	cli struct {
		Version       kong.VersionFlag
		Debug         bool            `help:"Enable debug mode." default:"false" env:"GCSTOOL_DEBUG"`
		TraceExporter string          `flag:"trace-exporter" help:"The trace exporter to use. Defaults to 'noop'." default:"noop" enum:"noop,grpc" env:"GCSTOOL_TRACE_EXPORTER"`
		Config        kong.ConfigFlag `flag:"config" help:"The path to the configuration file. Defaults to .gcstool.yml in the working directory." env:"GCSTOOL_CONFIG"`

		commands.CommonFlags

		Upload   commands.UploadCmd   `cmd:"" help:"upload a file or directory tree."`
		Download commands.DownloadCmd `cmd:"" help:"download an object or every object under a prefix."`
		Run      commands.RunCmd      `cmd:"" help:"run the named transfers from the configuration file."`
	}
)

func main() {
	ctx := context.Background()

	// Overloads `cli` with configuration file values.
	cmd := kong.Parse(&cli,
		kong.Vars{"version": version},
		kong.Configuration(kongyaml.Loader, commands.DefaultConfigPaths...),
		kong.BindTo(ctx, (*context.Context)(nil)))

	err := Run(ctx, cmd)
	cmd.FatalIfErrorf(err)
}

func Run(ctx context.Context, cmd *kong.Context) error {
	start := time.Now()

	if cli.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.ErrorLevel)
	}

	// library packages log through the context logger only
	ctx = log.Logger.WithContext(ctx)
	cmd.BindTo(ctx, (*context.Context)(nil))

	tp, err := trace.NewProvider(ctx, cli.TraceExporter, "github.com/buildkite/gcstool", version)
	if err != nil {
		return fmt.Errorf("failed to create trace provider: %w", err)
	}
	defer func() {
		_ = tp.Shutdown(ctx)
	}()

	printer := console.NewPrinter(os.Stderr)

	err = cmd.Run(&commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		Printer:    printer,
		Output:     os.Stdout,
		ConfigPath: string(cli.Config),
		Common:     cli.CommonFlags,
	})

	return commands.Report(printer, cmd.Command(), time.Since(start), err)
}
