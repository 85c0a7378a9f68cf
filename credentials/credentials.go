// Package credentials turns a Google service-account key file into an
// authenticated HTTP client for the Cloud Storage API.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	"gocloud.dev/gcp"
	"golang.org/x/oauth2/google"
)

// ServiceAccountType is the "type" field of a service-account key file.
const ServiceAccountType = "service_account"

// Scope grants read and write access to objects.
const Scope = storage.ScopeReadWrite

// ErrNotServiceAccount is returned when the key file is valid JSON but does not
// describe a service account, e.g. an authorized_user file produced by gcloud.
var ErrNotServiceAccount = errors.New("credentials file is not a service account key")

type keyFile struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
}

// Load reads the service-account key at path.
//
// The file is read on every call, nothing is cached between calls.
func Load(ctx context.Context, path string) (*google.Credentials, error) {
	if path == "" {
		return nil, fmt.Errorf("credentials file path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	return FromJSON(ctx, data)
}

// FromJSON parses service-account key material.
func FromJSON(ctx context.Context, data []byte) (*google.Credentials, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	if kf.Type != ServiceAccountType {
		return nil, fmt.Errorf("%w: type is %q", ErrNotServiceAccount, kf.Type)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load service account %s: %w", kf.ClientEmail, err)
	}

	return creds, nil
}

// HTTPClient returns a client which signs every request with a token from creds.
func HTTPClient(creds *google.Credentials) (*gcp.HTTPClient, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials cannot be nil")
	}

	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP HTTP client: %w", err)
	}

	return client, nil
}
