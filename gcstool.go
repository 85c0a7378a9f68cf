// Package gcstool uploads and downloads files and directory trees to and from
// a Google Cloud Storage bucket using a service-account key file.
//
// The package level Upload and Download functions load the credentials and
// open the bucket on every call:
//
//	result, err := gcstool.Upload(ctx, gcstool.Config{
//	    LocalPath:       "./testfolder/",
//	    Bucket:          "test_bucket",
//	    RemotePath:      "",
//	    CredentialsFile: "env/sa.json",
//	})
//
//	result, err := gcstool.Download(ctx, gcstool.Config{
//	    Bucket:          "test_bucket",
//	    RemotePath:      "ccc/",
//	    LocalPath:       "aaa/bb",
//	    CredentialsFile: "env/sa.json",
//	    Mode:            gcstool.PrefixListing,
//	})
//
// Callers performing many transfers can open a Client once with NewClient and
// reuse it. Transfers are strictly sequential, one object at a time, and the
// first failing object aborts the call.
package gcstool

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Sentinel errors for common scenarios
var (
	// ErrInvalidConfiguration is returned when a Config is missing required
	// fields.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsafeKey is returned when a listed object key would be written
	// outside of the local destination directory.
	ErrUnsafeKey = errors.New("object key escapes local destination")
)

// Mode selects how Download interprets the remote path.
type Mode int

const (
	// SingleObject downloads exactly one object whose key equals the remote path.
	SingleObject Mode = iota

	// PrefixListing downloads every object whose key starts with the remote path.
	PrefixListing
)

func (m Mode) String() string {
	switch m {
	case SingleObject:
		return "object"
	case PrefixListing:
		return "prefix"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "object" or "prefix".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "object", "single":
		return SingleObject, nil
	case "prefix":
		return PrefixListing, nil
	default:
		return SingleObject, fmt.Errorf("unknown mode %q: must be object or prefix", s)
	}
}

// InferMode applies the gsutil style convention where a remote path ending in
// "/" names a directory.
func InferMode(remotePath string) Mode {
	if strings.HasSuffix(remotePath, "/") {
		return PrefixListing
	}
	return SingleObject
}

// Config holds everything needed for a single Upload or Download call.
type Config struct {
	// LocalPath is the file or directory to upload, or the download destination.
	LocalPath string

	// Bucket is the name of the GCS bucket.
	Bucket string

	// RemotePath is the destination key or prefix for uploads, and the source
	// key or prefix for downloads.
	RemotePath string

	// CredentialsFile is the path to a service-account JSON key. It is read on
	// every call. Required unless BucketURL is set.
	CredentialsFile string

	// Mode selects single object or prefix downloads. Ignored by Upload, where
	// the local filesystem decides between file and directory.
	Mode Mode

	// BucketURL opens the bucket through a gocloud.dev URL such as
	// "file:///tmp/bucket" or "s3://bucket" instead of GCS with CredentialsFile.
	BucketURL string

	// Output receives one status line per transfer. Defaults to os.Stdout.
	Output io.Writer
}

// Validate checks the fields shared by uploads and downloads.
func (c Config) Validate() error {
	if c.BucketURL != "" {
		return nil
	}

	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("%w: bucket cannot be empty", ErrInvalidConfiguration)
	}

	if strings.TrimSpace(c.CredentialsFile) == "" {
		return fmt.Errorf("%w: credentials file cannot be empty", ErrInvalidConfiguration)
	}

	return nil
}

// Transfer is one completed object transfer.
type Transfer struct {
	// LocalPath is the local file that was read or written.
	LocalPath string

	// Key is the full object key.
	Key string

	// URI is the fully qualified remote location, e.g. gs://bucket/key.
	URI string

	Metrics TransferMetrics
}

// TransferMetrics contains metrics about a single upload or download.
type TransferMetrics struct {
	// BytesTransferred is the number of bytes uploaded or downloaded.
	BytesTransferred int64

	// TransferSpeed is the transfer rate in MB/s.
	TransferSpeed float64

	// Duration is how long the transfer took.
	Duration time.Duration
}

// UploadResult contains the outcome of an Upload.
type UploadResult struct {
	// Missing is true when the local path was neither a file nor a directory.
	// Nothing is written in that case and no error is returned.
	Missing bool

	// Transfers lists every object written, in walk order.
	Transfers []Transfer

	// BytesTransferred is the sum over Transfers.
	BytesTransferred int64

	// TotalDuration is the end-to-end duration of the call.
	TotalDuration time.Duration
}

// DownloadResult contains the outcome of a Download.
type DownloadResult struct {
	// Mode is the mode the download ran in.
	Mode Mode

	// Transfers lists every file written, in key order.
	Transfers []Transfer

	// Skipped counts directory placeholder objects (keys ending in "/").
	Skipped int

	// BytesTransferred is the sum over Transfers.
	BytesTransferred int64

	// TotalDuration is the end-to-end duration of the call.
	TotalDuration time.Duration
}
