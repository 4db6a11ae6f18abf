package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/oshokin/scala-steward-action/internal/domain/steward"
	"github.com/oshokin/scala-steward-action/internal/logger"
	"github.com/oshokin/scala-steward-action/internal/repository/cache"
)

const (
	// WorkspaceFolder is the cached scratch directory.
	WorkspaceFolder = "workspace"
	// ReposFilename is the repository list file.
	ReposFilename = "repos.md"
	// AskPassFilename is the git credential helper.
	AskPassFilename = "askpass.sh"

	dirMode     os.FileMode = 0o755
	reposMode   os.FileMode = 0o644
	askPassMode os.FileMode = 0o700
)

// Reaper stops processes that would keep writing into the workspace.
type Reaper interface {
	Reap(ctx context.Context) (int, error)
}

// Options configure a Manager.
type Options struct {
	// Dir is the workspace root.
	Dir string
	// Cache stores workspace snapshots.
	Cache cache.Repository
	// CacheKey identifies this run's snapshot.
	CacheKey string
	// TTL bounds how old a restored snapshot may be.
	TTL time.Duration
	// Reaper runs before a snapshot is taken; optional.
	Reaper Reaper
}

// Manager prepares the workspace and moves it through the cache.
type Manager struct {
	dir    string
	cache  cache.Repository
	key    string
	ttl    time.Duration
	reaper Reaper
	now    func() time.Time
}

// NewManager returns a Manager from opts.
func NewManager(opts *Options) *Manager {
	return &Manager{
		dir:    opts.Dir,
		cache:  opts.Cache,
		key:    opts.CacheKey,
		ttl:    opts.TTL,
		reaper: opts.Reaper,
		now:    time.Now,
	}
}

// Prepare creates the workspace with an empty workspace folder, writes the
// repository list and the askpass script, and returns the workspace root.
func (m *Manager) Prepare(ctx context.Context, repos steward.RepoListSource, token string) (string, error) {
	ctx = logger.WithName(ctx, "workspace")

	scratch := filepath.Join(m.dir, WorkspaceFolder)

	// Leftovers from an earlier run on the same runner must not leak into
	// this one; the cache restore repopulates the folder.
	if err := os.RemoveAll(scratch); err != nil {
		return "", &steward.IOError{Op: "remove", Path: scratch, Err: err}
	}

	if err := os.MkdirAll(scratch, dirMode); err != nil {
		return "", &steward.IOError{Op: "create", Path: m.dir, Err: err}
	}

	reposPath := filepath.Join(m.dir, ReposFilename)
	if err := os.WriteFile(reposPath, repos.Bytes(), reposMode); err != nil {
		return "", &steward.IOError{Op: "write", Path: reposPath, Err: err}
	}

	askPassPath := filepath.Join(m.dir, AskPassFilename)
	if err := os.WriteFile(askPassPath, []byte(askPassScript(token)), askPassMode); err != nil {
		return "", &steward.IOError{Op: "write", Path: askPassPath, Err: err}
	}

	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(askPassPath, askPassMode); err != nil {
		return "", &steward.IOError{Op: "chmod", Path: askPassPath, Err: err}
	}

	logger.InfoKV(ctx, "Workspace prepared",
		"dir", m.dir, "repos", steward.DescribeRepoList(repos))

	return m.dir, nil
}

// askPassScript prints the token for any git credential prompt.
func askPassScript(token string) string {
	quoted := "'" + strings.ReplaceAll(token, "'", `'\''`) + "'"

	return "#!/bin/sh\n\necho " + quoted + "\n"
}

// RestoreCache extracts the cached snapshot into path/workspace when one
// exists and is younger than the TTL. It never fails the run; the returned
// bool reports whether a snapshot was restored.
func (m *Manager) RestoreCache(ctx context.Context, path string) bool {
	ctx = logger.WithName(ctx, "workspace")

	if m.cache == nil {
		return false
	}

	entry, err := m.cache.Lookup(ctx, m.key)

	switch {
	case errors.Is(err, cache.ErrNotFound):
		logger.InfoKV(ctx, "No workspace cache found", "key", m.key)
		return false
	case err != nil:
		logger.WarnKV(ctx, "Workspace cache lookup failed",
			"error", &steward.CacheError{Op: "restore", Key: m.key, Err: err})

		return false
	}

	if entry.Expired(m.now(), m.ttl) {
		logger.InfoKV(ctx, "Workspace cache expired",
			"key", m.key, "saved_at", entry.SavedAt, "ttl", m.ttl)

		return false
	}

	target := filepath.Join(path, WorkspaceFolder)
	if err = m.cache.Restore(ctx, m.key, target); err != nil {
		logger.WarnKV(ctx, "Workspace cache restore failed",
			"error", &steward.CacheError{Op: "restore", Key: m.key, Err: err})

		return false
	}

	logger.InfoKV(ctx, "Workspace cache restored", "key", m.key, "saved_at", entry.SavedAt)

	return true
}

// SaveCache snapshots path/workspace under the run's key.
func (m *Manager) SaveCache(ctx context.Context, path string) error {
	ctx = logger.WithName(ctx, "workspace")

	if m.cache == nil {
		return nil
	}

	if m.reaper != nil {
		if _, err := m.reaper.Reap(ctx); err != nil {
			logger.WarnKV(ctx, "Unable to stop stray processes", "error", err)
		}
	}

	if err := m.cache.Save(ctx, m.key, filepath.Join(path, WorkspaceFolder)); err != nil {
		return &steward.CacheError{Op: "save", Key: m.key, Err: err}
	}

	logger.InfoKV(ctx, "Workspace cache saved", "key", m.key)

	return nil
}

var keyUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CacheKey derives the snapshot key from the run context.
func CacheKey(repository, workflow string) string {
	parts := []string{"scala-steward"}

	for _, part := range []string{repository, workflow} {
		if part = strings.Trim(keyUnsafe.ReplaceAllString(part, "-"), "-"); part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, "-")
}
