package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBinary_InstallsExecutable downloads plain and gzip'd payloads and checks mode and content.
func TestBinary_InstallsExecutable(t *testing.T) {
	t.Parallel()

	plain := []byte("#!/bin/sh\necho plain\n")

	var compressed bytes.Buffer

	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write([]byte("#!/bin/sh\necho gz\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	mux := http.NewServeMux()
	mux.HandleFunc("/plain", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(plain)
	})
	mux.HandleFunc("/cs.gz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(compressed.Bytes())
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "bin", "mill")

	require.NoError(t, Binary(context.Background(), ts.URL+"/plain", target, Options{Client: ts.Client()}))

	contents, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, plain, contents)

	info, err := os.Stat(target)
	require.NoError(t, err)
	require.Equal(t, ExecutableMode, info.Mode().Perm())

	// Reinstalling over an existing file replaces it and leaves no backup.
	require.NoError(t, Binary(context.Background(), ts.URL+"/cs.gz", target, Options{Client: ts.Client(), Gunzip: true}))

	contents, err = os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "#!/bin/sh\necho gz\n", string(contents))

	_, err = os.Stat(target + ".old")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestBinary_BadStatus reports non-200 responses.
func TestBinary_BadStatus(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	err := Binary(context.Background(), ts.URL+"/missing", filepath.Join(t.TempDir(), "cs"), Options{Client: ts.Client()})
	require.ErrorIs(t, err, errBadHTTPStatus)
}

// TestIsExecutable only accepts non-empty regular files with an execute bit.
func TestIsExecutable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tool := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))

	placeholder := filepath.Join(dir, "placeholder")
	require.NoError(t, os.WriteFile(placeholder, nil, 0o755))

	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(plain, []byte("data"), 0o644))

	require.True(t, IsExecutable(tool))
	require.False(t, IsExecutable(placeholder))
	require.False(t, IsExecutable(plain))
	require.False(t, IsExecutable(dir))
	require.False(t, IsExecutable(filepath.Join(dir, "missing")))
}
