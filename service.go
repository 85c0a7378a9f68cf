package gcstool

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/buildkite/gcstool/credentials"
	"github.com/buildkite/gcstool/internal/console"
	"github.com/buildkite/gcstool/store"
	"github.com/rs/zerolog"
)

// Client performs uploads and downloads against one open bucket.
//
// A Client is not safe for concurrent use; transfers are performed one at a
// time in the order they are discovered.
type Client struct {
	blob    store.Blob
	base    string
	printer *console.Printer
}

// NewClient opens the bucket described by cfg.
//
// When cfg.BucketURL is set the bucket is opened through gocloud.dev URL
// handling and cfg.CredentialsFile is ignored. Otherwise the service-account
// key in cfg.CredentialsFile is loaded and used to open cfg.Bucket on GCS.
//
// Returns ErrInvalidConfiguration (wrapped) when required fields are missing.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.BucketURL != "" {
		b, err := store.OpenURL(ctx, cfg.BucketURL)
		if err != nil {
			return nil, err
		}

		return newClient(b, baseFromURL(cfg.Bucket, cfg.BucketURL), cfg.Output), nil
	}

	creds, err := credentials.Load(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	httpClient, err := credentials.HTTPClient(creds)
	if err != nil {
		return nil, err
	}

	b, err := store.OpenGCS(ctx, httpClient, cfg.Bucket)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("bucket", cfg.Bucket).
		Str("project_id", creds.ProjectID).
		Msg("authenticated with service account")

	return newClient(b, "gs://"+cfg.Bucket, cfg.Output), nil
}

// NewClientWithBlob wraps an already open bucket. Status lines name objects as
// gs://<bucket>/<key>. The Client takes ownership of b and closes it in Close.
func NewClientWithBlob(bucket string, b store.Blob, out io.Writer) *Client {
	return newClient(b, "gs://"+bucket, out)
}

func newClient(b store.Blob, base string, out io.Writer) *Client {
	if out == nil {
		out = os.Stdout
	}

	return &Client{
		blob:    b,
		base:    base,
		printer: console.NewPrinter(out),
	}
}

// Close releases the underlying bucket.
func (c *Client) Close() error {
	return c.blob.Close()
}

// remoteURI returns the fully qualified location of key.
func (c *Client) remoteURI(key string) string {
	return c.base + "/" + key
}

// baseFromURL names objects opened through a bucket URL. A configured bucket
// name wins so status lines stay gs://bucket/key shaped.
func baseFromURL(bucket, bucketURL string) string {
	if bucket != "" {
		return "gs://" + bucket
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return strings.TrimSuffix(bucketURL, "/")
	}

	return strings.TrimSuffix(u.Scheme+"://"+u.Host+u.Path, "/")
}
