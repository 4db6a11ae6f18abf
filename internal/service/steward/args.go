package steward

import (
	"path/filepath"
	"strings"

	domain "github.com/oshokin/scala-steward-action/internal/domain/steward"
	"github.com/oshokin/scala-steward-action/internal/service/workspace"
)

// SBTOpts is forwarded to every sbt build Scala Steward starts.
const SBTOpts = "SBT_OPTS=-Xmx2048m -Xss8m -XX:MaxMetaspaceSize=512m"

// LaunchInputs is the resolved configuration projected into flags.
type LaunchInputs struct {
	// WorkspaceDir is the directory returned by the workspace manager.
	WorkspaceDir string
	AuthorEmail  string
	AuthorName   string
	// Login is the token owner's GitHub handle.
	Login        string
	Timeout      string
	GitHubAPIURL string
	CacheTTL     string

	IgnoreOptsFiles bool
	SignCommits     bool
	SigningKey      string

	ScalafixMigrations string
	ArtifactMigrations string
	RepoConfig         string

	// App enables GitHub App mode when set.
	App *domain.GitHubAppInfo
	// OtherArgs is split on whitespace and appended last.
	OtherArgs string
}

// BuildArgs returns the Scala Steward command line in its fixed order.
// Absent options contribute nothing, never an empty token.
func BuildArgs(in *LaunchInputs) []string {
	fragments := [][]string{
		valueFlag("--workspace", filepath.Join(in.WorkspaceDir, workspace.WorkspaceFolder)),
		valueFlag("--repos-file", filepath.Join(in.WorkspaceDir, workspace.ReposFilename)),
		valueFlag("--git-ask-pass", filepath.Join(in.WorkspaceDir, workspace.AskPassFilename)),
		valueFlag("--git-author-email", in.AuthorEmail),
		valueFlag("--git-author-name", in.AuthorName),
		valueFlag("--vcs-login", in.Login),
		valueFlag("--env-var", SBTOpts),
		valueFlag("--process-timeout", in.Timeout),
		valueFlag("--vcs-api-host", in.GitHubAPIURL),
		boolFlag("--ignore-opts-files", in.IgnoreOptsFiles),
		boolFlag("--sign-commits", in.SignCommits),
		valueFlag("--git-author-signing-key", in.SigningKey),
		valueFlag("--cache-ttl", in.CacheTTL),
		valueFlag("--scalafix-migrations", in.ScalafixMigrations),
		valueFlag("--artifact-migrations", in.ArtifactMigrations),
		valueFlag("--repo-config", in.RepoConfig),
		boolFlag("--do-not-fork", true),
		boolFlag("--disable-sandbox", true),
		appFlags(in.App),
		strings.Fields(in.OtherArgs),
	}

	size := 0
	for _, fragment := range fragments {
		size += len(fragment)
	}

	args := make([]string, 0, size)
	for _, fragment := range fragments {
		args = append(args, fragment...)
	}

	return args
}

func boolFlag(name string, enabled bool) []string {
	if !enabled {
		return nil
	}

	return []string{name}
}

func valueFlag(name, value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	return []string{name, value}
}

func appFlags(app *domain.GitHubAppInfo) []string {
	if app == nil {
		return nil
	}

	return []string{"--github-app-id", app.ID, "--github-app-key-file", app.KeyFile}
}

// LaunchEnv is the environment added to the Scala Steward process.
// Debug runs raise both of its log levels to TRACE.
func LaunchEnv(debug bool) map[string]string {
	if !debug {
		return map[string]string{}
	}

	return map[string]string{
		"LOG_LEVEL":      "TRACE",
		"ROOT_LOG_LEVEL": "TRACE",
	}
}
