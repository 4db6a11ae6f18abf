package check

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/scala-steward-action/internal/config"
	"github.com/oshokin/scala-steward-action/internal/domain/steward"
)

// TestMavenCentral_Reachable accepts a successful response.
func TestMavenCentral_Reachable(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	require.NoError(t, MavenCentral(context.Background(), ts.Client(), ts.URL))
}

// TestMavenCentral_Unreachable maps error statuses and dial failures to ConnectivityError.
func TestMavenCentral_Unreachable(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	err := MavenCentral(context.Background(), ts.Client(), ts.URL)
	require.ErrorIs(t, err, steward.ErrConnectivity)

	ts.Close()

	err = MavenCentral(context.Background(), ts.Client(), ts.URL)

	var connErr *steward.ConnectivityError
	require.ErrorAs(t, err, &connErr)
	require.NotEmpty(t, connErr.Host)
}

// TestGitHubToken requires a non-blank token.
func TestGitHubToken(t *testing.T) {
	t.Parallel()

	_, err := GitHubToken(&config.Config{GitHubToken: "  "})
	require.ErrorIs(t, err, steward.ErrAuth)

	token, err := GitHubToken(&config.Config{GitHubToken: "ghp_x"})
	require.NoError(t, err)
	require.Equal(t, "ghp_x", token)
}

// TestGitHubAppInfo covers app mode off, complete and incomplete configurations.
func TestGitHubAppInfo(t *testing.T) {
	t.Parallel()

	info, err := GitHubAppInfo(new(config.Config))
	require.NoError(t, err)
	require.Nil(t, info)

	_, err = GitHubAppInfo(&config.Config{GitHubAppID: "42"})
	require.ErrorIs(t, err, steward.ErrConfig)

	_, err = GitHubAppInfo(&config.Config{GitHubAppKeyFile: "/tmp/key.pem"})
	require.ErrorIs(t, err, steward.ErrConfig)

	_, err = GitHubAppInfo(&config.Config{GitHubAppID: "42", GitHubAppKeyFile: "/definitely/missing.pem"})
	require.ErrorIs(t, err, steward.ErrConfig)

	keyFile := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(keyFile, []byte("key"), 0o600))

	info, err = GitHubAppInfo(&config.Config{GitHubAppID: "42", GitHubAppKeyFile: keyFile})
	require.NoError(t, err)
	require.Equal(t, &steward.GitHubAppInfo{ID: "42", KeyFile: keyFile}, info)
}

// TestReposFile returns bytes verbatim, nil when unset and ConfigError when unreadable.
func TestReposFile(t *testing.T) {
	t.Parallel()

	contents, err := ReposFile(new(config.Config))
	require.NoError(t, err)
	require.Nil(t, contents)

	path := filepath.Join(t.TempDir(), "repos.md")
	require.NoError(t, os.WriteFile(path, []byte("- a/b\n"), 0o600))

	contents, err = ReposFile(&config.Config{ReposFile: path})
	require.NoError(t, err)
	require.Equal(t, []byte("- a/b\n"), contents)

	_, err = ReposFile(&config.Config{ReposFile: path + ".missing"})
	require.ErrorIs(t, err, steward.ErrConfig)
}

// TestDefaultRepoConf prefers the input and falls back to the conventional path.
func TestDefaultRepoConf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	path, err := DefaultRepoConf(ctx, new(config.Config), dir)
	require.NoError(t, err)
	require.Empty(t, path)

	fallback := filepath.Join(dir, DefaultRepoConfPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fallback), 0o755))
	require.NoError(t, os.WriteFile(fallback, []byte("updates.limit = 1"), 0o600))

	path, err = DefaultRepoConf(ctx, new(config.Config), dir)
	require.NoError(t, err)
	require.Equal(t, fallback, path)

	path, err = DefaultRepoConf(ctx, &config.Config{RepoConfig: fallback}, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, fallback, path)

	_, err = DefaultRepoConf(ctx, &config.Config{RepoConfig: filepath.Join(dir, "nope.conf")}, dir)
	require.ErrorIs(t, err, steward.ErrConfig)
}

// TestGitHubRepository walks input, environment and origin remote in order.
func TestGitHubRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	repo, err := GitHubRepository(ctx, &config.Config{GitHubRepository: "in/put", Repository: "env/repo"}, "")
	require.NoError(t, err)
	require.Equal(t, "in/put", repo)

	repo, err = GitHubRepository(ctx, &config.Config{Repository: "env/repo"}, "")
	require.NoError(t, err)
	require.Equal(t, "env/repo", repo)

	dir := t.TempDir()
	gitRepo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	_, err = GitHubRepository(ctx, new(config.Config), dir)
	require.ErrorIs(t, err, steward.ErrConfig)

	_, err = gitRepo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:remote/origin.git"},
	})
	require.NoError(t, err)

	repo, err = GitHubRepository(ctx, new(config.Config), dir)
	require.NoError(t, err)
	require.Equal(t, "remote/origin", repo)
}

// TestParseRemoteURL handles https, ssh and scp-like remotes.
func TestParseRemoteURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://github.com/owner/repo.git":           "owner/repo",
		"https://github.company.com/owner/repo":       "owner/repo",
		"git@github.com:owner/repo.git":               "owner/repo",
		"ssh://git@github.com/owner/repo.git":         "owner/repo",
		"https://x-access-token:t@github.com/o/r.git": "o/r",
	}
	for in, want := range cases {
		got, err := ParseRemoteURL(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "owner/repo", "https://github.com/owner"} {
		_, err := ParseRemoteURL(in)
		require.Error(t, err, in)
	}
}
