package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/scala-steward-action/internal/logger"
)

// ExecutableMode is applied to installed binaries.
const ExecutableMode os.FileMode = 0o755

var errBadHTTPStatus = errors.New("unexpected http status")

// Options tune a single Binary call.
type Options struct {
	// Client performs the download; http.DefaultClient when nil.
	Client *http.Client
	// Gunzip decompresses the payload before installing it.
	Gunzip bool
}

// Binary downloads url and installs it at target with ExecutableMode.
// The previous file, if any, is swapped out atomically.
func Binary(ctx context.Context, url, target string, opts Options) error {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	logger.InfoKV(ctx, "Downloading", "url", url, "target", target)

	data, err := download(ctx, client, url)
	if err != nil {
		return err
	}

	if opts.Gunzip {
		if data, err = gunzip(data); err != nil {
			return fmt.Errorf("decompress %s: %w", url, err)
		}
	}

	return apply(target, data)
}

// IsExecutable reports whether path is a non-empty regular file with an
// execute bit. The empty placeholder left by a failed install does not count.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Size() > 0 && info.Mode().Perm()&0o111 != 0
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	return data, nil
}

func gunzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = reader.Close()
	}()

	return io.ReadAll(reader)
}

// apply installs data at target through go-update, which needs an existing
// target to swap with.
func apply(target string, data []byte) error {
	target = filepath.Clean(target)

	if err := os.MkdirAll(filepath.Dir(target), ExecutableMode); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}

	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		f, createErr := os.Create(target)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", target, createErr)
		}

		_ = f.Close()
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: ExecutableMode,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("install %s: %w", target, err)
	}

	oldFileName := target + ".old"
	if _, err := os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}
