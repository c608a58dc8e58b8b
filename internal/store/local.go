package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Local stores uploaded files in a single flat directory on the local
// filesystem. The directory is the sole source of truth: no index or cache
// of stored names is held in memory.
//
// Writes go to a temp file in the same directory and are committed with
// os.Rename, so a file under a given name is always either the previous
// upload or the new one in full. Concurrent uploads to the same name each
// stage their own temp file; the last rename wins.
type Local struct {
	root string
}

// NewLocal creates a Local backend rooted at root, creating the directory
// if needed. MkdirAll keeps the call idempotent across restarts.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", root, err)
	}
	// Absolute root keeps the filepath.Rel containment check stable no
	// matter what the process working directory is.
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	return &Local{root: absRoot}, nil
}

// Root returns the absolute storage directory path.
func (l *Local) Root() string { return l.root }

// abs resolves a filename to a concrete path inside the storage directory.
// ValidFilename at the handler layer already rejects separators and dot-dot;
// this check re-verifies containment at the filesystem level so no caller
// can reach outside the root even if the upper check is bypassed.
func (l *Local) abs(name string) (string, error) {
	joined := filepath.Join(l.root, filepath.Clean(filepath.FromSlash(name)))
	rel, err := filepath.Rel(l.root, joined)
	if err != nil || rel == "." || rel == ".." || rel != filepath.Base(rel) {
		return "", fmt.Errorf("filename %q escapes storage dir", name)
	}
	return joined, nil
}

// Write streams r into the named file using a temp-file + atomic rename.
func (l *Local) Write(name string, r io.Reader) (int64, error) {
	dest, err := l.abs(name)
	if err != nil {
		return 0, err
	}

	// Temp file lives in the storage directory itself so the final rename
	// never crosses a filesystem boundary.
	tmp, err := os.CreateTemp(l.root, tmpPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, werr := io.Copy(tmp, r)
	cerr := tmp.Close()

	if werr != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return 0, fmt.Errorf("stream write: %w", werr)
	}
	if cerr != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return 0, fmt.Errorf("flush: %w", cerr)
	}
	if err := os.Chmod(tmpPath, 0o640); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return 0, fmt.Errorf("chmod: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return 0, fmt.Errorf("commit %q: %w", name, err)
	}
	return n, nil
}

// Read opens the named file for sequential reading.
// Caller must close the returned ReadCloser.
func (l *Local) Read(name string) (io.ReadCloser, int64, error) {
	abs, err := l.abs(name)
	if err != nil {
		return nil, 0, os.ErrNotExist
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Exists reports whether the named file is stored.
func (l *Local) Exists(name string) (bool, error) {
	abs, err := l.abs(name)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(abs)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// List returns the stored files sorted by name. Write temp files and
// subdirectories are skipped.
func (l *Local) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     info.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format(time.RFC3339),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// DiskStats returns available and total bytes on the filesystem containing
// the storage directory. (0, 0) means the platform cannot report stats.
func (l *Local) DiskStats() (avail, total uint64) {
	return diskStats(l.root)
}
