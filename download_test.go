package gcstool

import (
	"bytes"
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/buildkite/gcstool/store"
	"github.com/stretchr/testify/require"
)

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()

	files := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)

	return files
}

func TestDownloadPrefix(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	client, bucket, buf := newTestClient(t)
	seedBucket(t, bucket, map[string]string{
		"ccc/":          "",
		"ccc/x.txt":     "x-ray",
		"ccc/sub/y.txt": "yankee",
		"ccc/sub/":      "",
		"cccd.txt":      "not under the prefix",
		"other/z.txt":   "zulu",
	})

	root := t.TempDir()
	dest := filepath.Join(root, "aaa", "bb")

	result, err := client.Download(ctx, "ccc/", dest, PrefixListing)
	assert.NoError(err)
	assert.Equal(PrefixListing, result.Mode)
	assert.Len(result.Transfers, 2)
	assert.Equal(2, result.Skipped)
	assert.Equal(int64(len("x-ray")+len("yankee")), result.BytesTransferred)

	// the full key, including the prefix, is joined onto the destination
	assert.Equal(map[string]string{
		"aaa/bb/ccc/x.txt":     "x-ray",
		"aaa/bb/ccc/sub/y.txt": "yankee",
	}, readTree(t, root))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(lines, 2)
	assert.Contains(buf.String(), "File downloaded successfully: gs://test_bucket/ccc/x.txt -> "+filepath.Join(dest, "ccc", "x.txt"))
	assert.Contains(buf.String(), "File downloaded successfully: gs://test_bucket/ccc/sub/y.txt -> "+filepath.Join(dest, "ccc", "sub", "y.txt"))
}

func TestDownloadPrefixNoMatches(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	client, bucket, buf := newTestClient(t)
	seedBucket(t, bucket, map[string]string{"ccc/x.txt": "x-ray"})

	dest := filepath.Join(t.TempDir(), "dest")

	result, err := client.Download(ctx, "zzz/", dest, PrefixListing)
	assert.NoError(err)
	assert.Empty(result.Transfers)
	assert.Empty(buf.String())

	_, statErr := os.Stat(dest)
	assert.True(os.IsNotExist(statErr), "destination should not be created when nothing is downloaded")
}

func TestDownloadSingleObjectExactKey(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	client, bucket, buf := newTestClient(t)
	seedBucket(t, bucket, map[string]string{
		"data/file.txt":     "exact",
		"data/file.txt.bak": "prefix match",
		"data/file.txt/x":   "nested prefix match",
	})

	root := t.TempDir()
	dest := filepath.Join(root, "nested", "dir", "file.txt")

	result, err := client.Download(ctx, "data/file.txt", dest, SingleObject)
	assert.NoError(err)
	assert.Equal(SingleObject, result.Mode)
	assert.Len(result.Transfers, 1)
	assert.Equal("data/file.txt", result.Transfers[0].Key)
	assert.Equal(dest, result.Transfers[0].LocalPath)

	assert.Equal(map[string]string{"nested/dir/file.txt": "exact"}, readTree(t, root))
	assert.Contains(buf.String(), "File downloaded successfully: gs://test_bucket/data/file.txt -> "+dest)
}

func TestDownloadSingleObjectMissing(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	client, _, buf := newTestClient(t)

	dest := filepath.Join(t.TempDir(), "out.txt")

	_, err := client.Download(ctx, "nope.txt", dest, SingleObject)
	assert.Error(err)
	assert.True(store.IsNotExist(err), "not found should survive wrapping: %v", err)
	assert.Empty(buf.String())
}

func TestDownloadOverwritesLocalFile(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	client, bucket, _ := newTestClient(t)
	seedBucket(t, bucket, map[string]string{"a.txt": "remote"})

	dest := filepath.Join(t.TempDir(), "a.txt")
	assert.NoError(os.WriteFile(dest, []byte("local content which is longer"), 0o600))

	_, err := client.Download(ctx, "a.txt", dest, SingleObject)
	assert.NoError(err)

	got, err := os.ReadFile(dest)
	assert.NoError(err)
	assert.Equal("remote", string(got))
}

func TestDownloadUnsafeKey(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	client, bucket, _ := newTestClient(t)
	seedBucket(t, bucket, map[string]string{"ccc/../../evil.txt": "evil"})

	root := t.TempDir()
	dest := filepath.Join(root, "aaa", "bb")

	_, err := client.Download(ctx, "ccc/", dest, PrefixListing)
	assert.ErrorIs(err, ErrUnsafeKey)
	assert.Empty(readTree(t, root))
}

func TestDownloadInvalidArguments(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		source string
		local  string
		mode   Mode
	}{
		{name: "unknown mode", source: "a.txt", local: "a.txt", mode: Mode(7)},
		{name: "single object without local path", source: "a.txt", local: "", mode: SingleObject},
		{name: "single object without key", source: "", local: "a.txt", mode: SingleObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t)

			_, err := client.Download(ctx, tt.source, tt.local, tt.mode)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestDownloadLocalDirectoryCreationFailure(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	client, bucket, _ := newTestClient(t)
	seedBucket(t, bucket, map[string]string{"ccc/x.txt": "x-ray"})

	// a regular file where a directory is needed
	root := t.TempDir()
	blocker := filepath.Join(root, "aaa")
	assert.NoError(os.WriteFile(blocker, []byte("file"), 0o600))

	_, err := client.Download(ctx, "ccc/", filepath.Join(blocker, "bb"), PrefixListing)
	assert.ErrorContains(err, "failed to create directory")
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()

	bucketDir := t.TempDir()
	bucketURL := "file://" + filepath.ToSlash(bucketDir)

	t.Run("single file", func(t *testing.T) {
		assert := require.New(t)

		payload := make([]byte, 256*1024)
		_, err := rand.Read(payload)
		assert.NoError(err)

		src := filepath.Join(t.TempDir(), "payload.bin")
		assert.NoError(os.WriteFile(src, payload, 0o600))

		out := new(bytes.Buffer)

		_, err = Upload(ctx, Config{
			LocalPath:  src,
			Bucket:     "test_bucket",
			RemotePath: "roundtrip/payload.bin",
			BucketURL:  bucketURL,
			Output:     out,
		})
		assert.NoError(err)

		dest := filepath.Join(t.TempDir(), "restored", "payload.bin")
		_, err = Download(ctx, Config{
			LocalPath:  dest,
			Bucket:     "test_bucket",
			RemotePath: "roundtrip/payload.bin",
			BucketURL:  bucketURL,
			Output:     out,
		})
		assert.NoError(err)

		got, err := os.ReadFile(dest)
		assert.NoError(err)
		assert.True(bytes.Equal(payload, got), "downloaded bytes differ from uploaded bytes")
	})

	t.Run("directory", func(t *testing.T) {
		assert := require.New(t)

		src := filepath.Join(t.TempDir(), "testfolder")
		tree := map[string]string{"a.txt": "alpha", "sub/b.txt": "bravo"}
		writeTree(t, src, tree)

		out := new(bytes.Buffer)

		uploaded, err := Upload(ctx, Config{
			LocalPath:  src,
			Bucket:     "test_bucket",
			RemotePath: "tree",
			BucketURL:  bucketURL,
			Output:     out,
		})
		assert.NoError(err)
		assert.Len(uploaded.Transfers, 2)

		root := t.TempDir()
		downloaded, err := Download(ctx, Config{
			LocalPath:  root,
			Bucket:     "test_bucket",
			RemotePath: "tree/",
			BucketURL:  bucketURL,
			Mode:       PrefixListing,
			Output:     out,
		})
		assert.NoError(err)
		assert.Len(downloaded.Transfers, 2)

		assert.Equal(map[string]string{"tree/a.txt": "alpha", "tree/sub/b.txt": "bravo"}, readTree(t, root))
	})

	t.Run("missing local path", func(t *testing.T) {
		assert := require.New(t)

		out := new(bytes.Buffer)
		result, err := Upload(ctx, Config{
			LocalPath:  "/does/not/exist",
			Bucket:     "b",
			RemotePath: "p",
			BucketURL:  bucketURL,
			Output:     out,
		})
		assert.NoError(err)
		assert.True(result.Missing)
		assert.Contains(out.String(), "File or directory does not exist: /does/not/exist")
	})
}

func TestPackageFunctionsValidateConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Upload(ctx, Config{LocalPath: "x", RemotePath: "y"})
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	result, err := Download(ctx, Config{LocalPath: "x", RemotePath: "y/", Mode: PrefixListing})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	require.Equal(t, PrefixListing, result.Mode)
}
