package steward

import (
	"cmp"
	"context"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/scala-steward-action/internal/actions"
	"github.com/oshokin/scala-steward-action/internal/config"
	domain "github.com/oshokin/scala-steward-action/internal/domain/steward"
	"github.com/oshokin/scala-steward-action/internal/logger"
	"github.com/oshokin/scala-steward-action/internal/repository/cache"
	"github.com/oshokin/scala-steward-action/internal/service/check"
	"github.com/oshokin/scala-steward-action/internal/service/coursier"
	"github.com/oshokin/scala-steward-action/internal/service/github"
	"github.com/oshokin/scala-steward-action/internal/service/mill"
	"github.com/oshokin/scala-steward-action/internal/service/process"
	"github.com/oshokin/scala-steward-action/internal/service/workspace"
	"github.com/oshokin/scala-steward-action/internal/version"
)

// App is the Coursier application name of Scala Steward.
const App = "scala-steward"

// Options are inputs accepted by the action entry point.
type Options struct {
	// ConfigPath is an optional YAML defaults file.
	ConfigPath string
	// Env is the process environment.
	Env map[string]string
	// WorkDir is the checked-out repository, used for repository inference
	// and the default repository config.
	WorkDir string
	// Annotator receives workflow commands.
	Annotator *actions.Annotator
}

type toolInstaller interface {
	SelfInstall(ctx context.Context) error
	Install(ctx context.Context, tool string) error
	Launch(ctx context.Context, app, version string, args []string, env map[string]string) error
}

type buildToolInstaller interface {
	Install(ctx context.Context) error
}

type identityResolver interface {
	AuthUser(ctx context.Context, token string) (domain.AuthUser, error)
}

type workspaceManager interface {
	Prepare(ctx context.Context, repos domain.RepoListSource, token string) (string, error)
	RestoreCache(ctx context.Context, path string) bool
	SaveCache(ctx context.Context, path string) error
}

type warner interface {
	Warning(err error)
}

// runner holds the collaborators of a single run.
// It is unexported; call Run(ctx, Options) from callers.
type runner struct {
	cfg       *config.Config
	workDir   string
	probe     func(ctx context.Context) error
	coursier  toolInstaller
	mill      buildToolInstaller
	identity  identityResolver
	workspace workspaceManager
	warner    warner
}

// Run loads the configuration and executes the action.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "scala-steward-action")
	logger.InfoKV(ctx, "Starting", "version", version.Short())

	cfg, err := config.Load(opts.ConfigPath, opts.Env)
	if err != nil {
		return err
	}

	annotator := opts.Annotator
	if annotator == nil {
		annotator = actions.NewAnnotator(os.Stdout)
	}

	configureLogging(cfg, annotator)

	r := newRunner(cfg, opts.Env, opts.WorkDir, annotator, os.Stdout, os.Stderr)

	return r.Run(ctx)
}

// configureLogging applies the log-level input; debug runs always log at
// debug level.
func configureLogging(cfg *config.Config, annotator *actions.Annotator) {
	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if cfg.Debug {
		logger.SetLevel(zapcore.DebugLevel)
		annotator.Debug("Debug mode activated for Scala Steward")
	}
}

// newRunner wires the production collaborators.
func newRunner(
	cfg *config.Config,
	env map[string]string,
	workDir string,
	annotator *actions.Annotator,
	stdout, stderr io.Writer,
) *runner {
	strays := cfg.StrayProcesses
	if strays == nil {
		strays = process.DefaultStrayExecutables
	}

	return &runner{
		cfg:     cfg,
		workDir: workDir,
		probe: func(ctx context.Context) error {
			return check.MavenCentral(ctx, http.DefaultClient, check.MavenCentralURL)
		},
		coursier: coursier.NewInstaller(&coursier.Options{
			BinDir: cfg.BinDir,
			Env:    env,
			Stdout: stdout,
			Stderr: stderr,
		}),
		mill:     mill.NewInstaller(cfg.BinDir, "", nil),
		identity: github.NewResolver(cfg.GitHubAPIURL),
		workspace: workspace.NewManager(&workspace.Options{
			Dir:      cfg.WorkspaceDir,
			Cache:    cache.NewFileRepository(cfg.CacheDir),
			CacheKey: workspace.CacheKey(cfg.Repository, cfg.Workflow),
			TTL:      cfg.CacheTTLDuration,
			Reaper:   process.NewReaper(strays),
		}),
		warner: annotator,
	}
}

// Run executes the steps in order; the first failure stops the run.
func (r *runner) Run(ctx context.Context) error {
	logger.Info(ctx, "Checking connection with Maven Central")

	if err := r.probe(ctx); err != nil {
		return err
	}

	if err := r.coursier.SelfInstall(ctx); err != nil {
		return err
	}

	token, err := check.GitHubToken(r.cfg)
	if err != nil {
		return err
	}

	user, err := r.identity.AuthUser(ctx, token)
	if err != nil {
		return err
	}

	app, err := check.GitHubAppInfo(r.cfg)
	if err != nil {
		return err
	}

	repoConf, err := check.DefaultRepoConf(ctx, r.cfg, r.workDir)
	if err != nil {
		return err
	}

	repos, err := r.resolveRepoList(ctx, app)
	if err != nil {
		return err
	}

	dir, err := r.workspace.Prepare(ctx, repos, token)
	if err != nil {
		return err
	}

	r.workspace.RestoreCache(ctx, dir)

	args := BuildArgs(&LaunchInputs{
		WorkspaceDir:       dir,
		AuthorEmail:        cmp.Or(r.cfg.AuthorEmail, user.Email),
		AuthorName:         cmp.Or(r.cfg.AuthorName, user.Name),
		Login:              user.Login,
		Timeout:            r.cfg.Timeout,
		GitHubAPIURL:       r.cfg.GitHubAPIURL,
		CacheTTL:           r.cfg.CacheTTL,
		IgnoreOptsFiles:    config.IsTrue(r.cfg.IgnoreOptsFiles),
		SignCommits:        config.IsTrue(r.cfg.SignCommits),
		SigningKey:         r.cfg.SigningKey,
		ScalafixMigrations: r.cfg.ScalafixMigrations,
		ArtifactMigrations: r.cfg.ArtifactMigrations,
		RepoConfig:         repoConf,
		App:                app,
		OtherArgs:          r.cfg.OtherArgs,
	})

	if err = r.installTools(ctx); err != nil {
		return err
	}

	return r.launch(ctx, dir, args, LaunchEnv(r.cfg.Debug))
}

// resolveRepoList reads the inputs the repository list depends on. The
// current repository is only looked up when it can actually be used.
func (r *runner) resolveRepoList(ctx context.Context, app *domain.GitHubAppInfo) (domain.RepoListSource, error) {
	reposFile, err := check.ReposFile(r.cfg)
	if err != nil {
		return nil, err
	}

	var repository string

	if reposFile == nil && app == nil {
		if repository, err = check.GitHubRepository(ctx, r.cfg, r.workDir); err != nil {
			return nil, err
		}
	}

	return domain.ResolveRepoList(reposFile, app, repository), nil
}

func (r *runner) installTools(ctx context.Context) error {
	for _, tool := range []string{"scalafmt", "scalafix"} {
		if err := r.coursier.Install(ctx, tool); err != nil {
			return err
		}
	}

	return r.mill.Install(ctx)
}

// launch runs Scala Steward and then saves the workspace cache exactly once.
// The launch error is the run's error; a save error is only reported.
func (r *runner) launch(ctx context.Context, dir string, args []string, env map[string]string) error {
	defer func() {
		saveErr := r.workspace.SaveCache(context.WithoutCancel(ctx), dir)
		if saveErr == nil {
			return
		}

		logger.ErrorKV(ctx, "Workspace cache save failed", "error", saveErr)
		r.warner.Warning(saveErr)
	}()

	return r.coursier.Launch(ctx, App, r.cfg.StewardVersion, args, env)
}
