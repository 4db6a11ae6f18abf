// Package mill installs the Mill build tool launcher, which Scala Steward
// needs to update Mill projects.
package mill

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"

	"github.com/oshokin/scala-steward-action/internal/logger"
	"github.com/oshokin/scala-steward-action/internal/service/fetch"
)

const (
	// Executable is the launcher name.
	Executable = "mill"

	// DefaultVersion is the launcher release installed.
	DefaultVersion = "0.11.12"
)

// Installer places the Mill launcher in a bin directory.
type Installer struct {
	binDir   string
	url      string
	client   *http.Client
	lookPath func(string) (string, error)
}

// NewInstaller returns an Installer for binDir. An empty url selects the
// release launcher of DefaultVersion.
func NewInstaller(binDir, url string, client *http.Client) *Installer {
	if url == "" {
		url = fmt.Sprintf("https://github.com/com-lihaoyi/mill/releases/download/%[1]s/%[1]s", DefaultVersion)
	}

	return &Installer{
		binDir:   binDir,
		url:      url,
		client:   client,
		lookPath: exec.LookPath,
	}
}

// Install downloads the launcher unless mill is already available.
func (i *Installer) Install(ctx context.Context) error {
	ctx = logger.WithName(ctx, "mill")

	if path, err := i.lookPath(Executable); err == nil {
		logger.InfoKV(ctx, "Mill already installed", "path", path)
		return nil
	}

	target := filepath.Join(i.binDir, Executable)
	if fetch.IsExecutable(target) {
		logger.InfoKV(ctx, "Mill already installed", "path", target)
		return nil
	}

	if err := fetch.Binary(ctx, i.url, target, fetch.Options{Client: i.client}); err != nil {
		return fmt.Errorf("install mill: %w", err)
	}

	logger.InfoKV(ctx, "Mill installed", "path", target)

	return nil
}
