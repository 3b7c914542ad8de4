package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// rewriteArchive copies src to dst, replacing the named entry's bytes.
func rewriteArchive(t *testing.T, src, dst, entry string, mutate func([]byte) []byte) {
	t.Helper()
	zr, err := zip.OpenReader(src)
	require.NoError(t, err)
	defer zr.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		data, err := readEntry(f)
		require.NoError(t, err)
		if f.Name == entry {
			data = mutate(data)
		}
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(dst, buf.Bytes(), 0o644))
}

func buildArchive(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func manifestJSON(t *testing.T, m Manifest) []byte {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return data
}

func TestValidateDetectsTamperedEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	archive := filepath.Join(t.TempDir(), "backup.zip")
	require.NoError(t, env.engine.ExportToFile(ctx, env.store, env.snapID, archive))

	tampered := filepath.Join(t.TempDir(), "tampered.zip")
	rewriteArchive(t, archive, tampered, "json/purchases.json", func(data []byte) []byte {
		return bytes.Replace(data, []byte("5400"), []byte("9999"), 1)
	})

	rep, err := env.engine.ValidateFile(tampered)
	require.NoError(t, err)
	require.False(t, rep.Valid)
	var found bool
	for _, e := range rep.Errors {
		if strings.Contains(e, "json/purchases.json") {
			found = true
		}
	}
	require.True(t, found, "the mismatch must name the tampered entry: %v", rep.Errors)
}

func TestValidateRejectsPathTraversal(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	archive := filepath.Join(t.TempDir(), "evil.zip")
	buildArchive(t, archive, map[string][]byte{
		ManifestName:             manifestJSON(t, Manifest{SchemaVersion: 1}),
		"media/../../etc/passwd": []byte("pwned"),
		"json/purchases.json":    []byte("[]"),
	})

	rep, err := env.engine.ValidateFile(archive)
	require.NoError(t, err)
	require.False(t, rep.Valid)
	var found bool
	for _, e := range rep.Errors {
		if strings.Contains(e, "unsafe entry path") {
			found = true
		}
	}
	require.True(t, found, "errors: %v", rep.Errors)
}

func TestValidateMissingChecksumsIsWarning(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	archive := filepath.Join(t.TempDir(), "nochecksums.zip")
	buildArchive(t, archive, map[string][]byte{
		ManifestName:          manifestJSON(t, Manifest{SchemaVersion: 1}),
		"json/purchases.json": []byte("[]"),
	})

	rep, err := env.engine.ValidateFile(archive)
	require.NoError(t, err)
	require.True(t, rep.Valid)
	require.NotEmpty(t, rep.Warnings)
}

func TestValidateMissingManifest(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	archive := filepath.Join(t.TempDir(), "nomanifest.zip")
	buildArchive(t, archive, map[string][]byte{
		"json/purchases.json": []byte("[]"),
	})

	rep, err := env.engine.ValidateFile(archive)
	require.NoError(t, err)
	require.False(t, rep.Valid)
	require.Contains(t, rep.Errors[0], "manifest.json missing")
}

func TestValidateUnsupportedSchemaVersion(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	archive := filepath.Join(t.TempDir(), "future.zip")
	buildArchive(t, archive, map[string][]byte{
		ManifestName: manifestJSON(t, Manifest{SchemaVersion: 99}),
	})

	rep, err := env.engine.ValidateFile(archive)
	require.NoError(t, err)
	require.False(t, rep.Valid)
	var found bool
	for _, e := range rep.Errors {
		if strings.Contains(e, "unsupported schema version") {
			found = true
		}
	}
	require.True(t, found, "errors: %v", rep.Errors)
}

func TestValidateUnreadableFileIsInvalidNotError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	garbage := filepath.Join(t.TempDir(), "garbage.zip")
	require.NoError(t, os.WriteFile(garbage, []byte("PK but not really"), 0o644))

	rep, err := env.engine.ValidateFile(garbage)
	require.NoError(t, err)
	require.False(t, rep.Valid)
	require.NotEmpty(t, rep.Errors)
}

func TestSafeEntryPath(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"manifest.json", "json/purchases.json", "media/2026/07/r.jpg"} {
		require.True(t, safeEntryPath(ok), ok)
	}
	for _, bad := range []string{"", "../x", "media/../../etc/passwd", "/abs/path", "a/./b"} {
		require.False(t, safeEntryPath(bad), bad)
	}
}
