package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Repository stores and restores directory snapshots by key.
type Repository interface {
	// Lookup returns the entry metadata or ErrNotFound.
	Lookup(ctx context.Context, key string) (*Entry, error)
	// Restore extracts the snapshot stored under key into dir.
	Restore(ctx context.Context, key, dir string) error
	// Save snapshots dir under key, replacing any previous entry.
	Save(ctx context.Context, key, dir string) error
}

// Entry describes a stored snapshot.
type Entry struct {
	// Key identifies the snapshot.
	Key string
	// SavedAt is when the snapshot was written.
	SavedAt time.Time
	// Size is the archive size in bytes.
	Size int64
}

// Expired reports whether the entry is older than ttl at now.
func (e *Entry) Expired(now time.Time, ttl time.Duration) bool {
	return !e.SavedAt.Add(ttl).After(now)
}

// FileRepository keeps snapshots in a local directory.
type FileRepository struct {
	// dir is the root of the cache store.
	dir string
	// now is the clock used for SavedAt.
	now func() time.Time
	// mu serializes access to the store.
	mu sync.Mutex
}

// ErrNotFound is returned when no snapshot exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// unsafeKeyChars are replaced when turning a key into a file name.
var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

const (
	archiveExt  = ".tar.gz"
	metadataExt = ".json"
	dirMode     = 0o755
	fileMode    = 0o600
)

// NewFileRepository returns a repository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{
		dir: filepath.Clean(dir),
		now: time.Now,
	}
}

// Lookup reads the metadata stored for key.
func (r *FileRepository) Lookup(_ context.Context, key string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lookup(key)
}

func (r *FileRepository) lookup(key string) (*Entry, error) {
	contents, err := os.ReadFile(r.metadataPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read cache metadata: %w", err)
	}

	var metadata structpb.Struct
	if err = protojson.Unmarshal(contents, &metadata); err != nil {
		return nil, fmt.Errorf("decode cache metadata: %w", err)
	}

	fields := metadata.GetFields()

	savedAt, err := time.Parse(time.RFC3339Nano, fields["saved_at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("decode cache timestamp: %w", err)
	}

	if _, err = os.Stat(r.archivePath(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("stat cache archive: %w", err)
	}

	return &Entry{
		Key:     fields["key"].GetStringValue(),
		SavedAt: savedAt,
		Size:    int64(fields["size"].GetNumberValue()),
	}, nil
}

// Restore extracts the archive stored for key into dir.
func (r *FileRepository) Restore(_ context.Context, key, dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	archive, err := os.Open(r.archivePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}

		return fmt.Errorf("open cache archive: %w", err)
	}

	defer func() {
		_ = archive.Close()
	}()

	if err = os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create restore target: %w", err)
	}

	return extractArchive(archive, dir)
}

// Save archives dir and records its metadata under key.
// The archive is written to a temporary file and renamed into place.
func (r *FileRepository) Save(_ context.Context, key, dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, dirMode); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, "snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache archive: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err = writeArchive(tmp, dir); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache archive: %w", err)
	}

	info, err := tmp.Stat()
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("stat cache archive: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close cache archive: %w", err)
	}

	if err = os.Rename(tmp.Name(), r.archivePath(key)); err != nil {
		return fmt.Errorf("store cache archive: %w", err)
	}

	metadata, err := structpb.NewStruct(map[string]any{
		"key":      key,
		"saved_at": r.now().UTC().Format(time.RFC3339Nano),
		"size":     float64(info.Size()),
	})
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}

	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}

	if err = os.WriteFile(r.metadataPath(key), data, fileMode); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}

	return nil
}

func (r *FileRepository) archivePath(key string) string {
	return filepath.Join(r.dir, fileName(key)+archiveExt)
}

func (r *FileRepository) metadataPath(key string) string {
	return filepath.Join(r.dir, fileName(key)+metadataExt)
}

// fileName maps a key onto a safe file name.
func fileName(key string) string {
	return unsafeKeyChars.ReplaceAllString(key, "-")
}
