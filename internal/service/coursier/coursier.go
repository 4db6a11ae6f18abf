package coursier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oshokin/scala-steward-action/internal/actions"
	"github.com/oshokin/scala-steward-action/internal/domain/steward"
	"github.com/oshokin/scala-steward-action/internal/logger"
	"github.com/oshokin/scala-steward-action/internal/service/fetch"
)

// Executable is the Coursier command name.
const Executable = "cs"

// launchersURL hosts the native Coursier launchers.
const launchersURL = "https://github.com/coursier/launchers/raw/master/"

var errUnsupportedPlatform = errors.New("platform not supported by coursier launchers")

// Options configure an Installer.
type Options struct {
	// BinDir receives Coursier and every tool it installs.
	BinDir string
	// Env is the action environment; GITHUB_PATH is read from it.
	Env map[string]string
	// Client downloads the launcher.
	Client *http.Client
	// LauncherURL overrides the platform launcher location.
	LauncherURL string
	// Stdout and Stderr receive the output of launched processes.
	Stdout io.Writer
	Stderr io.Writer
}

// Installer manages Coursier and the applications it provides.
type Installer struct {
	binDir      string
	env         map[string]string
	client      *http.Client
	launcherURL string
	stdout      io.Writer
	stderr      io.Writer
	lookPath    func(string) (string, error)
}

// NewInstaller returns an Installer from opts.
func NewInstaller(opts *Options) *Installer {
	i := &Installer{
		binDir:      opts.BinDir,
		env:         opts.Env,
		client:      opts.Client,
		launcherURL: opts.LauncherURL,
		stdout:      opts.Stdout,
		stderr:      opts.Stderr,
		lookPath:    exec.LookPath,
	}

	if i.stdout == nil {
		i.stdout = os.Stdout
	}

	if i.stderr == nil {
		i.stderr = os.Stderr
	}

	return i
}

// SelfInstall makes Coursier available, downloading its launcher only when
// it cannot already be found.
func (i *Installer) SelfInstall(ctx context.Context) error {
	ctx = logger.WithName(ctx, "coursier")

	if path, ok := i.find(Executable); ok {
		logger.InfoKV(ctx, "Coursier already installed", "path", path)
		return nil
	}

	url := i.launcherURL
	if url == "" {
		var err error
		if url, err = LauncherURL(runtime.GOOS, runtime.GOARCH); err != nil {
			return err
		}
	}

	target := filepath.Join(i.binDir, Executable)
	if err := fetch.Binary(ctx, url, target, fetch.Options{Client: i.client, Gunzip: strings.HasSuffix(url, ".gz")}); err != nil {
		return fmt.Errorf("install coursier: %w", err)
	}

	if err := actions.AddPath(i.env, i.binDir); err != nil {
		return fmt.Errorf("install coursier: %w", err)
	}

	logger.InfoKV(ctx, "Coursier installed", "path", target)

	return nil
}

// Install installs the named application unless it is already present.
func (i *Installer) Install(ctx context.Context, tool string) error {
	ctx = logger.WithName(ctx, "coursier")

	if path, ok := i.find(tool); ok {
		logger.InfoKV(ctx, "Tool already installed", "tool", tool, "path", path)
		return nil
	}

	logger.InfoKV(ctx, "Installing tool", "tool", tool)

	args := []string{"install", "--install-dir", i.binDir, tool}
	if err := i.run(ctx, "cs install "+tool, args, nil); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Tool installed", "tool", tool)

	return nil
}

// Launch runs app at version (latest when empty) with args and waits for it.
// env is added to the child environment only.
func (i *Installer) Launch(ctx context.Context, app, version string, args []string, env map[string]string) error {
	ctx = logger.WithName(ctx, "coursier")

	coordinates := app
	if version != "" {
		coordinates = app + ":" + version
	}

	csArgs := make([]string, 0, len(args)+5)
	csArgs = append(csArgs, "launch", "--contrib", "-r", "sonatype:snapshots", coordinates, "--")
	csArgs = append(csArgs, args...)

	logger.InfoKV(ctx, "Launching", "app", coordinates)
	logger.DebugKV(ctx, "Launch arguments", "args", args)

	return i.run(ctx, app, csArgs, env)
}

// run executes Coursier and maps failures to LaunchFailure.
func (i *Installer) run(ctx context.Context, tool string, args []string, env map[string]string) error {
	cs, ok := i.find(Executable)
	if !ok {
		return &steward.LaunchFailure{Tool: tool, ExitCode: -1, Err: exec.ErrNotFound}
	}

	cmd := exec.CommandContext(ctx, cs, args...)
	cmd.Stdout = i.stdout
	cmd.Stderr = i.stderr
	cmd.Env = i.childEnv(env)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &steward.LaunchFailure{Tool: tool, ExitCode: exitErr.ExitCode(), Err: err}
	}

	return &steward.LaunchFailure{Tool: tool, ExitCode: -1, Err: err}
}

// childEnv is the parent environment with BinDir on PATH and extra applied.
func (i *Installer) childEnv(extra map[string]string) []string {
	environ := os.Environ()
	env := make([]string, 0, len(environ)+len(extra)+1)

	for _, pair := range environ {
		key, _, _ := strings.Cut(pair, "=")
		if key == "PATH" {
			continue
		}

		if _, overridden := extra[key]; overridden {
			continue
		}

		env = append(env, pair)
	}

	env = append(env, "PATH="+i.binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	for key, value := range extra {
		env = append(env, key+"="+value)
	}

	return env
}

// find locates an executable in BinDir first, then on PATH.
func (i *Installer) find(name string) (string, bool) {
	local := filepath.Join(i.binDir, name)
	if fetch.IsExecutable(local) {
		return local, true
	}

	if path, err := i.lookPath(name); err == nil {
		return path, true
	}

	return "", false
}

// LauncherURL returns the native launcher for the platform.
func LauncherURL(goos, goarch string) (string, error) {
	var arch string

	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	default:
		return "", fmt.Errorf("%s/%s: %w", goos, goarch, errUnsupportedPlatform)
	}

	switch goos {
	case "linux":
		return launchersURL + "cs-" + arch + "-pc-linux.gz", nil
	case "darwin":
		return launchersURL + "cs-" + arch + "-apple-darwin.gz", nil
	default:
		return "", fmt.Errorf("%s/%s: %w", goos, goarch, errUnsupportedPlatform)
	}
}
