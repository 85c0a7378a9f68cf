package commands

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/buildkite/gcstool"
	"github.com/buildkite/gcstool/internal/console"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

type CommonFlags struct {
	Bucket      string `flag:"bucket" help:"The GCS bucket name." env:"GCSTOOL_BUCKET"`
	Credentials string `flag:"credentials" help:"Path to the service-account JSON key file." env:"GCSTOOL_CREDENTIALS,GOOGLE_APPLICATION_CREDENTIALS"`
	BucketURL   string `flag:"bucket-url" help:"Open the bucket by URL (file://, mem://, s3://, gs://) instead of with a credentials file." env:"GCSTOOL_BUCKET_URL"`
}

type Globals struct {
	Debug   bool
	Version string
	Printer *console.Printer

	// Output receives the per object status lines.
	Output io.Writer

	// ConfigPath is the configuration file named transfers are read from.
	ConfigPath string

	Common CommonFlags
}

// config builds the library configuration for one transfer.
func (g *Globals) config(localPath, remotePath string, mode gcstool.Mode) gcstool.Config {
	return gcstool.Config{
		LocalPath:       localPath,
		Bucket:          g.Common.Bucket,
		RemotePath:      remotePath,
		CredentialsFile: g.Common.Credentials,
		Mode:            mode,
		BucketURL:       g.Common.BucketURL,
		Output:          g.Output,
	}
}

// resolveMode maps the --mode flag onto a download mode.
func resolveMode(flag, remotePath string) (gcstool.Mode, error) {
	if flag == "" || flag == "auto" {
		return gcstool.InferMode(remotePath), nil
	}
	return gcstool.ParseMode(flag)
}

type summaryRow struct {
	ID        string
	Direction string
	Source    string
	Target    string
	Files     int
	Bytes     int64
	Duration  time.Duration
}

func uploadRow(id, localPath, uri string, result gcstool.UploadResult) summaryRow {
	return summaryRow{
		ID:        id,
		Direction: "upload",
		Source:    localPath,
		Target:    uri,
		Files:     len(result.Transfers),
		Bytes:     result.BytesTransferred,
		Duration:  result.TotalDuration,
	}
}

func downloadRow(id, uri, localPath string, result gcstool.DownloadResult) summaryRow {
	return summaryRow{
		ID:        id,
		Direction: "download (" + result.Mode.String() + ")",
		Source:    uri,
		Target:    localPath,
		Files:     len(result.Transfers),
		Bytes:     result.BytesTransferred,
		Duration:  result.TotalDuration,
	}
}

// summaryTable renders one row per transfer plus a total when there is more
// than one.
func summaryTable(rows []summaryRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Direction", "Source", "Target", "Files", "Size", "Duration")

	var files int
	var bytes int64
	for _, r := range rows {
		files += r.Files
		bytes += r.Bytes

		t.Row(r.ID, r.Direction, r.Source, r.Target,
			fmt.Sprintf("%d", r.Files),
			humanize.Bytes(Int64ToUint64(r.Bytes)),
			r.Duration.Round(time.Millisecond).String())
	}

	if len(rows) > 1 {
		t.Row("total", "", "", "", fmt.Sprintf("%d", files), humanize.Bytes(Int64ToUint64(bytes)), "")
	}

	return t.Render()
}

// remoteLabel names a remote path for the summary.
func (g *Globals) remoteLabel(remotePath string) string {
	if g.Common.Bucket != "" {
		return "gs://" + g.Common.Bucket + "/" + remotePath
	}
	if g.Common.BucketURL != "" {
		return g.Common.BucketURL + " " + remotePath
	}
	return remotePath
}

// Report prints the completion line for command and wraps err with the
// command name.
func Report(printer *console.Printer, command string, elapsed time.Duration, err error) error {
	if err != nil {
		printer.Error("❌", "%s failed after %s: %v", command, elapsed.Round(time.Millisecond), err)
		return fmt.Errorf("command %s failed: %w", command, err)
	}

	printer.Info("✅", "%s completed successfully in %s", command, elapsed.String())

	return nil
}

// Int64ToUint64 converts an int64 to uint64, handling negative values and max int64
func Int64ToUint64(x int64) uint64 {
	if x < 0 {
		return 0
	}
	if x == math.MaxInt64 {
		return math.MaxUint64
	}
	return uint64(x)
}
