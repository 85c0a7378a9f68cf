package credentials

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeServiceAccount(t *testing.T, dir string, overrides map[string]string) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	doc := map[string]string{
		"type":           ServiceAccountType,
		"project_id":     "gcstool-test",
		"private_key_id": "0123456789abcdef",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "uploader@gcstool-test.iam.gserviceaccount.com",
		"client_id":      "1234567890",
		"token_uri":      "https://oauth2.googleapis.com/token",
	}
	for k, v := range overrides {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(dir, "sa.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestLoad(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	path := writeServiceAccount(t, t.TempDir(), nil)

	creds, err := Load(ctx, path)
	assert.NoError(err)
	assert.Equal("gcstool-test", creds.ProjectID)
	assert.NotNil(creds.TokenSource)

	client, err := HTTPClient(creds)
	assert.NoError(err)
	assert.NotNil(client)
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty path", func(t *testing.T) {
		_, err := Load(ctx, "")
		require.ErrorContains(t, err, "cannot be empty")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(ctx, filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		require.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("not json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sa.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

		_, err := Load(ctx, path)
		require.ErrorContains(t, err, "failed to parse credentials")
	})

	t.Run("authorized user file", func(t *testing.T) {
		path := writeServiceAccount(t, t.TempDir(), map[string]string{"type": "authorized_user"})

		_, err := Load(ctx, path)
		require.ErrorIs(t, err, ErrNotServiceAccount)
	})
}

func TestHTTPClientNilCredentials(t *testing.T) {
	_, err := HTTPClient(nil)
	require.Error(t, err)
}
