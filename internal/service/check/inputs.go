package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/oshokin/scala-steward-action/internal/config"
	"github.com/oshokin/scala-steward-action/internal/domain/steward"
	"github.com/oshokin/scala-steward-action/internal/logger"
)

// DefaultRepoConfPath is picked up when no repo-config input is given.
const DefaultRepoConfPath = ".github/.scala-steward.conf"

var errNoOriginRemote = errors.New("no origin remote")

// GitHubToken returns the token or an AuthError when it is missing.
func GitHubToken(cfg *config.Config) (string, error) {
	token := strings.TrimSpace(cfg.GitHubToken)
	if token == "" {
		return "", &steward.AuthError{Message: "github-token is required"}
	}

	return token, nil
}

// GitHubAppInfo returns the app identity when app mode is configured,
// nil when neither id nor key file are given.
func GitHubAppInfo(cfg *config.Config) (*steward.GitHubAppInfo, error) {
	id := strings.TrimSpace(cfg.GitHubAppID)
	keyFile := strings.TrimSpace(cfg.GitHubAppKeyFile)

	switch {
	case id == "" && keyFile == "":
		return nil, nil //nolint:nilnil // App mode is off.
	case keyFile == "":
		return nil, &steward.ConfigError{
			Input:   "github-app-key-file",
			Message: "required when github-app-id is set",
		}
	case id == "":
		return nil, &steward.ConfigError{
			Input:   "github-app-id",
			Message: "required when github-app-key-file is set",
		}
	}

	if _, err := os.Stat(keyFile); err != nil {
		return nil, &steward.ConfigError{
			Input:   "github-app-key-file",
			Message: fmt.Sprintf("unable to read %s: %v", keyFile, err),
		}
	}

	return &steward.GitHubAppInfo{ID: id, KeyFile: keyFile}, nil
}

// ReposFile returns the content of the repos-file input, or nil if unset.
func ReposFile(cfg *config.Config) ([]byte, error) {
	if cfg.ReposFile == "" {
		return nil, nil
	}

	contents, err := os.ReadFile(filepath.Clean(cfg.ReposFile))
	if err != nil {
		return nil, &steward.ConfigError{
			Input:   "repos-file",
			Message: fmt.Sprintf("unable to read %s: %v", cfg.ReposFile, err),
		}
	}

	return contents, nil
}

// DefaultRepoConf returns the repository config path to forward, or ""
// when neither the input nor the conventional file exist.
func DefaultRepoConf(ctx context.Context, cfg *config.Config, workDir string) (string, error) {
	if cfg.RepoConfig != "" {
		if _, err := os.Stat(cfg.RepoConfig); err != nil {
			return "", &steward.ConfigError{
				Input:   "repo-config",
				Message: fmt.Sprintf("file %s does not exist", cfg.RepoConfig),
			}
		}

		return cfg.RepoConfig, nil
	}

	fallback := filepath.Join(workDir, DefaultRepoConfPath)
	if _, err := os.Stat(fallback); err == nil {
		logger.InfoKV(ctx, "Using default repository config", "path", fallback)
		return fallback, nil
	}

	return "", nil
}

// GitHubRepository returns the repository to update as owner/repo: the
// github-repository input, then GITHUB_REPOSITORY, then the origin remote
// of the repository checked out in workDir.
func GitHubRepository(ctx context.Context, cfg *config.Config, workDir string) (string, error) {
	if repo := strings.TrimSpace(cfg.GitHubRepository); repo != "" {
		return repo, nil
	}

	if repo := strings.TrimSpace(cfg.Repository); repo != "" {
		return repo, nil
	}

	repo, err := originRepository(workDir)
	if err != nil {
		return "", &steward.ConfigError{
			Input:   "github-repository",
			Message: fmt.Sprintf("unable to infer the current repository: %v", err),
		}
	}

	logger.InfoKV(ctx, "Inferred repository from origin remote", "repository", repo)

	return repo, nil
}

func originRepository(workDir string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(workDir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("%w: %w", errNoOriginRemote, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errNoOriginRemote
	}

	return ParseRemoteURL(urls[0])
}

var errUnrecognizedRemote = errors.New("unrecognized remote url")

// ParseRemoteURL extracts owner/repo from https or ssh remote URLs.
func ParseRemoteURL(remoteURL string) (string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")

	var path string

	switch {
	case strings.Contains(trimmed, "://"):
		_, rest, _ := strings.Cut(trimmed, "://")
		_, path, _ = strings.Cut(rest, "/")
	case strings.Contains(trimmed, "@") && strings.Contains(trimmed, ":"):
		_, path, _ = strings.Cut(trimmed, ":")
	default:
		return "", fmt.Errorf("%w: %s", errUnrecognizedRemote, remoteURL)
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", fmt.Errorf("%w: %s", errUnrecognizedRemote, remoteURL)
	}

	return parts[len(parts)-2] + "/" + parts[len(parts)-1], nil
}
