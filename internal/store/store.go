package store

import "io"

// FileInfo describes one stored file, as reported by List.
type FileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"` // RFC 3339
}

// Backend abstracts the storage medium holding uploaded files.
// The only implementation today is Local; the interface keeps handler code
// independent of the medium so an object-store backend can be swapped in.
type Backend interface {
	// Write streams r to the file named name, returning bytes written.
	// Implementations must be atomic: a concurrent reader sees either the
	// previous content or the full new content, never a partial write.
	Write(name string, r io.Reader) (int64, error)

	// Read opens the named file for streaming. The error satisfies
	// errors.Is(err, fs.ErrNotExist) when no such file is stored.
	// Caller must close the returned ReadCloser.
	Read(name string) (rc io.ReadCloser, size int64, err error)

	// Exists reports whether a file with the given name is stored.
	Exists(name string) (bool, error)

	// List returns the stored files in directory order. The backend keeps
	// no index; the listing is derived from the medium at call time.
	List() ([]FileInfo, error)
}
