package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sethvargo/go-githubactions"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/scala-steward-action/internal/domain/steward"
	"github.com/oshokin/scala-steward-action/internal/logger"
)

// Config holds every input the action understands.
type Config struct {
	// GitHubToken authenticates against the GitHub API and git remotes.
	GitHubToken string `mapstructure:"github-token" yaml:"github_token"`
	// AuthorEmail overrides the commit author email.
	AuthorEmail string `mapstructure:"author-email" yaml:"author_email"`
	// AuthorName overrides the commit author name.
	AuthorName string `mapstructure:"author-name" yaml:"author_name"`
	// CacheTTL is forwarded to Scala Steward and bounds workspace cache reuse.
	CacheTTL string `mapstructure:"cache-ttl" yaml:"cache_ttl"`
	// Timeout is forwarded as --process-timeout.
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
	// StewardVersion pins the Scala Steward release; empty means latest.
	StewardVersion string `mapstructure:"scala-steward-version" yaml:"scala_steward_version"`
	// SignCommits is a bool-like string.
	SignCommits string `mapstructure:"sign-commits" yaml:"sign_commits"`
	// SigningKey is the key id used to sign commits.
	SigningKey string `mapstructure:"signing-key" yaml:"signing_key"`
	// IgnoreOptsFiles is a bool-like string.
	IgnoreOptsFiles string `mapstructure:"ignore-opts-files" yaml:"ignore_opts_files"`
	// GitHubAPIURL is the API endpoint, github.com or an Enterprise host.
	GitHubAPIURL string `mapstructure:"github-api-url" yaml:"github_api_url"`
	// ScalafixMigrations is a path to extra scalafix migrations.
	ScalafixMigrations string `mapstructure:"scalafix-migrations" yaml:"scalafix_migrations"`
	// ArtifactMigrations is a path to extra artifact migrations.
	ArtifactMigrations string `mapstructure:"artifact-migrations" yaml:"artifact_migrations"`
	// OtherArgs is passed through to Scala Steward after whitespace splitting.
	OtherArgs string `mapstructure:"other-args" yaml:"other_args"`
	// ReposFile points to a repos.md supplied by the user.
	ReposFile string `mapstructure:"repos-file" yaml:"repos_file"`
	// GitHubRepository overrides the repository inferred from the run.
	GitHubRepository string `mapstructure:"github-repository" yaml:"github_repository"`
	// GitHubAppID enables app mode together with GitHubAppKeyFile.
	GitHubAppID string `mapstructure:"github-app-id" yaml:"github_app_id"`
	// GitHubAppKeyFile is the app private key path.
	GitHubAppKeyFile string `mapstructure:"github-app-key-file" yaml:"github_app_key_file"`
	// RepoConfig is the default repository configuration path.
	RepoConfig string `mapstructure:"repo-config" yaml:"repo_config"`
	// WorkspaceDir is where repos.md, askpass.sh and workspace/ live.
	WorkspaceDir string `mapstructure:"workspace-dir" yaml:"workspace_dir"`
	// CacheDir is where workspace cache entries are stored.
	CacheDir string `mapstructure:"cache-dir" yaml:"cache_dir"`
	// BinDir receives Coursier, the tools it installs and mill.
	BinDir string `mapstructure:"bin-dir" yaml:"bin_dir"`
	// StrayProcesses lists executables terminated before the cache is saved.
	StrayProcesses []string `mapstructure:"stray-processes" yaml:"stray_processes"`
	// LogLevel sets the action's own log level: debug, info, warn or error.
	LogLevel string `mapstructure:"log-level" yaml:"log_level"`

	// Debug is set from RUNNER_DEBUG.
	Debug bool `mapstructure:"-" yaml:"-"`
	// Repository is GITHUB_REPOSITORY.
	Repository string `mapstructure:"-" yaml:"-"`
	// Workflow is GITHUB_WORKFLOW.
	Workflow string `mapstructure:"-" yaml:"-"`
	// CacheTTLDuration is CacheTTL parsed by Validate.
	CacheTTLDuration time.Duration `mapstructure:"-" yaml:"-"`
}

const (
	// DefaultCacheTTL matches Scala Steward's own default.
	DefaultCacheTTL = "2hours"

	// defaultCacheTTL is DefaultCacheTTL parsed.
	defaultCacheTTL = 2 * time.Hour

	// DefaultTimeout is the default --process-timeout.
	DefaultTimeout = "30min"

	// DefaultGitHubAPIURL is the public GitHub API.
	DefaultGitHubAPIURL = "https://api.github.com"

	// DefaultWorkspaceFolder is created under the home directory.
	DefaultWorkspaceFolder = "scala-steward"
)

// Load reads optional YAML defaults from path and overlays the INPUT_*
// variables found in env. The result is validated.
func Load(path string, env map[string]string) (*Config, error) {
	cfg := new(Config)

	if path != "" {
		contents, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}

		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if err := decodeInputs(env, cfg); err != nil {
		return nil, err
	}

	cfg.Debug = env["RUNNER_DEBUG"] != ""
	cfg.Repository = env["GITHUB_REPOSITORY"]
	cfg.Workflow = env["GITHUB_WORKFLOW"]

	if err := Validate(cfg, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decodeInputs copies non-empty action inputs onto cfg. Inputs are looked
// up by their hyphenated name first, then with underscores.
func decodeInputs(env map[string]string, cfg *Config) error {
	action := githubactions.New(githubactions.WithGetenv(func(key string) string {
		return env[key]
	}))

	names := inputNames()
	inputs := make(map[string]any, len(names))

	for _, name := range names {
		value := action.GetInput(name)
		if value == "" {
			value = action.GetInput(strings.ReplaceAll(name, "-", "_"))
		}

		switch {
		case value == "":
			continue
		case name == "stray-processes":
			inputs[name] = strings.Fields(value)
		default:
			inputs[name] = value
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("create input decoder: %w", err)
	}

	if err = decoder.Decode(inputs); err != nil {
		return fmt.Errorf("decode inputs: %w", err)
	}

	return nil
}

// inputNames lists the action inputs declared on Config.
func inputNames() []string {
	configType := reflect.TypeFor[Config]()
	names := make([]string, 0, configType.NumField())

	for i := range configType.NumField() {
		if name := configType.Field(i).Tag.Get("mapstructure"); name != "" && name != "-" {
			names = append(names, name)
		}
	}

	return names
}

// Validate fills defaults and checks value formats.
func Validate(cfg *Config, env map[string]string) error {
	if cfg.CacheTTL == "" {
		cfg.CacheTTL = DefaultCacheTTL
	}

	// cache-ttl is forwarded verbatim; an unknown spelling only costs the
	// local cache its configured lifetime.
	ttl, err := ParseTTL(cfg.CacheTTL)
	if err != nil {
		logger.WarnKV(context.Background(), "Unable to parse cache-ttl, using the default for the workspace cache",
			"cache-ttl", cfg.CacheTTL, "default", DefaultCacheTTL, "error", err)

		ttl = defaultCacheTTL
	}

	cfg.CacheTTLDuration = ttl

	if cfg.Timeout == "" {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
			return &steward.ConfigError{Input: "log-level", Message: fmt.Sprintf("unknown level %q", cfg.LogLevel)}
		}
	}

	if cfg.GitHubAPIURL == "" {
		cfg.GitHubAPIURL = DefaultGitHubAPIURL
	}

	if _, err = url.ParseRequestURI(cfg.GitHubAPIURL); err != nil {
		return &steward.ConfigError{Input: "github-api-url", Message: err.Error()}
	}

	home := env["HOME"]
	if home == "" {
		home, _ = os.UserHomeDir()
	}

	if cfg.WorkspaceDir == "" {
		cfg.WorkspaceDir = filepath.Join(home, DefaultWorkspaceFolder)
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir(env, home)
	}

	if cfg.BinDir == "" {
		cfg.BinDir = filepath.Join(home, ".local", "share", "coursier", "bin")
	}

	return nil
}

func defaultCacheDir(env map[string]string, home string) string {
	if toolCache := env["RUNNER_TOOL_CACHE"]; toolCache != "" {
		return filepath.Join(toolCache, "scala-steward-cache")
	}

	return filepath.Join(home, ".cache", "scala-steward-action")
}

// IsTrue reports whether a bool-like input is "true", ignoring case.
func IsTrue(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// Environ turns os.Environ output into a map.
func Environ(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}

		env[key] = value
	}

	return env
}
