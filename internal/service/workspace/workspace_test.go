package workspace

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/scala-steward-action/internal/domain/steward"
	"github.com/oshokin/scala-steward-action/internal/repository/cache"
)

type fakeCache struct {
	entry      *cache.Entry
	lookupErr  error
	restoreErr error
	saveErr    error
	restored   []string
	saved      []string
}

func (f *fakeCache) Lookup(context.Context, string) (*cache.Entry, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}

	if f.entry == nil {
		return nil, cache.ErrNotFound
	}

	return f.entry, nil
}

func (f *fakeCache) Restore(_ context.Context, _, dir string) error {
	f.restored = append(f.restored, dir)
	return f.restoreErr
}

func (f *fakeCache) Save(_ context.Context, _, dir string) error {
	f.saved = append(f.saved, dir)
	return f.saveErr
}

type fakeReaper struct {
	calls int
	err   error
}

func (r *fakeReaper) Reap(context.Context) (int, error) {
	r.calls++
	return 0, r.err
}

// TestPrepare_WritesArtifacts checks the layout and the repos.md round-trip.
func TestPrepare_WritesArtifacts(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "scala-steward")
	m := NewManager(&Options{Dir: dir})

	repos := steward.ExplicitFile("- owner/a\n- owner/b\n\x00binary-safe")

	path, err := m.Prepare(context.Background(), repos, "ghp_secret")
	require.NoError(t, err)
	require.Equal(t, dir, path)

	require.DirExists(t, filepath.Join(dir, WorkspaceFolder))

	contents, err := os.ReadFile(filepath.Join(dir, ReposFilename))
	require.NoError(t, err)
	require.Equal(t, repos.Bytes(), contents)

	info, err := os.Stat(filepath.Join(dir, AskPassFilename))
	require.NoError(t, err)
	require.NotZero(t, info.Mode().Perm()&0o100)
}

// TestPrepare_StartsFresh drops the folder contents left by an earlier run.
func TestPrepare_StartsFresh(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stale := filepath.Join(dir, WorkspaceFolder, "repos", "owner", "repo", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	_, err := NewManager(&Options{Dir: dir}).Prepare(context.Background(), steward.SingleRepo("o/r"), "t")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, WorkspaceFolder))
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestPrepare_EmptyRepoList writes an empty repos.md in app mode.
func TestPrepare_EmptyRepoList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := NewManager(&Options{Dir: dir}).Prepare(context.Background(), steward.EmptyRepoList{}, "t")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, ReposFilename))
	require.NoError(t, err)
	require.Empty(t, contents)
}

// TestPrepare_IOError maps filesystem failures to IOError.
func TestPrepare_IOError(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := NewManager(&Options{Dir: filepath.Join(blocker, "ws")}).
		Prepare(context.Background(), steward.SingleRepo("o/r"), "t")
	require.ErrorIs(t, err, steward.ErrIO)
}

// TestAskPassScript_EchoesToken runs the generated script through sh.
func TestAskPassScript_EchoesToken(t *testing.T) {
	dir := t.TempDir()

	path, err := NewManager(&Options{Dir: dir}).Prepare(context.Background(), steward.SingleRepo("o/r"), "tok'en")
	require.NoError(t, err)

	out, err := exec.Command("sh", filepath.Join(path, AskPassFilename), "Password for 'https://github.com':").Output()
	require.NoError(t, err)
	require.Equal(t, "tok'en", strings.TrimSpace(string(out)))
}

// TestRestoreCache covers miss, expiry, lookup and restore failures and success.
func TestRestoreCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	path := t.TempDir()

	newManager := func(c *fakeCache) *Manager {
		m := NewManager(&Options{Dir: path, Cache: c, CacheKey: "k", TTL: 2 * time.Hour})
		m.now = func() time.Time { return now }

		return m
	}

	miss := new(fakeCache)
	require.False(t, newManager(miss).RestoreCache(ctx, path))
	require.Empty(t, miss.restored)

	expired := &fakeCache{entry: &cache.Entry{Key: "k", SavedAt: now.Add(-3 * time.Hour)}}
	require.False(t, newManager(expired).RestoreCache(ctx, path))
	require.Empty(t, expired.restored)

	broken := &fakeCache{lookupErr: errors.New("corrupt")}
	require.False(t, newManager(broken).RestoreCache(ctx, path))

	failing := &fakeCache{entry: &cache.Entry{Key: "k", SavedAt: now}, restoreErr: errors.New("disk full")}
	require.False(t, newManager(failing).RestoreCache(ctx, path))

	fresh := &fakeCache{entry: &cache.Entry{Key: "k", SavedAt: now.Add(-time.Hour)}}
	require.True(t, newManager(fresh).RestoreCache(ctx, path))
	require.Equal(t, []string{filepath.Join(path, WorkspaceFolder)}, fresh.restored)
}

// TestSaveCache reaps strays, saves the workspace folder and wraps failures in CacheError.
func TestSaveCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := t.TempDir()

	reaper := &fakeReaper{err: errors.New("ignored")}
	c := new(fakeCache)

	require.NoError(t, NewManager(&Options{Cache: c, CacheKey: "k", Reaper: reaper}).SaveCache(ctx, path))
	require.Equal(t, 1, reaper.calls)
	require.Equal(t, []string{filepath.Join(path, WorkspaceFolder)}, c.saved)

	err := NewManager(&Options{Cache: &fakeCache{saveErr: errors.New("quota")}, CacheKey: "k"}).SaveCache(ctx, path)
	require.ErrorIs(t, err, steward.ErrCache)

	var cacheErr *steward.CacheError
	require.ErrorAs(t, err, &cacheErr)
	require.Equal(t, "save", cacheErr.Op)
}

// TestCacheRoundTrip_WithFileRepository wires the manager to the real file store.
func TestCacheRoundTrip_WithFileRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := cache.NewFileRepository(t.TempDir())

	first := NewManager(&Options{Dir: t.TempDir(), Cache: store, CacheKey: "k", TTL: time.Hour})
	path, err := first.Prepare(ctx, steward.SingleRepo("o/r"), "t")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(path, WorkspaceFolder, "run.log"), []byte("42"), 0o600))
	require.NoError(t, first.SaveCache(ctx, path))

	second := NewManager(&Options{Dir: t.TempDir(), Cache: store, CacheKey: "k", TTL: time.Hour})
	path, err = second.Prepare(ctx, steward.SingleRepo("o/r"), "t")
	require.NoError(t, err)
	require.True(t, second.RestoreCache(ctx, path))

	contents, err := os.ReadFile(filepath.Join(path, WorkspaceFolder, "run.log"))
	require.NoError(t, err)
	require.Equal(t, "42", string(contents))
}

// TestCacheKey sanitizes run context into a stable key.
func TestCacheKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "scala-steward-owner-repo-Scala-Steward", CacheKey("owner/repo", "Scala Steward"))
	require.Equal(t, "scala-steward-owner-repo", CacheKey("owner/repo", ""))
	require.Equal(t, "scala-steward", CacheKey("", "  "))
}
