package cache

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var errUnsafePath = errors.New("archive entry escapes target directory")

// writeArchive streams a gzip'd tar of root into w. Paths are relative to root.
func writeArchive(w io.Writer, root string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		return addEntry(tw, path, filepath.ToSlash(rel), d)
	})
	if err != nil {
		return err
	}

	if err = tw.Close(); err != nil {
		return err
	}

	return gz.Close()
}

func addEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string

	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}

	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	if err = tw.WriteHeader(header); err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	_, err = io.Copy(tw, f)

	return err
}

// extractArchive unpacks a gzip'd tar from r into root. Entries may not
// leave root, neither by name nor through a symlink.
func extractArchive(r io.Reader, root string) error {
	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("resolve restore target: %w", err)
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}

	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		target, err := safeJoin(root, header.Name)
		if err != nil {
			return err
		}

		if err = checkParent(root, target); err != nil {
			return fmt.Errorf("extract %s: %w", header.Name, err)
		}

		if err = extractEntry(tr, header, root, target); err != nil {
			return fmt.Errorf("extract %s: %w", header.Name, err)
		}
	}
}

func extractEntry(tr *tar.Reader, header *tar.Header, root, target string) error {
	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, dirMode)
	case tar.TypeSymlink:
		if filepath.IsAbs(header.Linkname) ||
			!within(root, filepath.Join(filepath.Dir(target), header.Linkname)) {
			return fmt.Errorf("%w: link to %s", errUnsafePath, header.Linkname)
		}

		if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
			return err
		}

		_ = os.Remove(target)

		return os.Symlink(header.Linkname, target)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
			return err
		}

		// Replace rather than write through whatever already sits at target.
		_ = os.Remove(target)

		f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, header.FileInfo().Mode().Perm())
		if err != nil {
			return err
		}

		//nolint:gosec // Archives are produced by this action for its own workspace.
		if _, err = io.Copy(f, tr); err != nil {
			_ = f.Close()
			return err
		}

		return f.Close()
	default:
		return nil
	}
}

// safeJoin resolves name inside root and refuses anything that escapes it.
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, target) {
		return "", fmt.Errorf("%w: %s", errUnsafePath, name)
	}

	return target, nil
}

// checkParent resolves the nearest existing ancestor of target and makes
// sure symlinks along the way do not lead out of root.
func checkParent(root, target string) error {
	for dir := filepath.Dir(target); ; dir = filepath.Dir(dir) {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			if !within(root, resolved) {
				return fmt.Errorf("%w: %s resolves to %s", errUnsafePath, dir, resolved)
			}

			return nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		if dir == root || dir == filepath.Dir(dir) {
			return err
		}
	}
}

// within reports whether path is root or lies below it, lexically.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
