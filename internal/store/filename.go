package store

import "strings"

// tmpPrefix marks in-progress write temp files. Names carrying it are
// reserved so clients cannot collide with (or read back) partial writes,
// and so the janitor can sweep orphans without touching stored files.
const tmpPrefix = ".tmp-"

// ValidFilename reports whether a client-supplied filename is acceptable as
// a storage key. The filename is used verbatim as a single path segment
// under the storage root, so anything that could change the directory —
// separators, the exact ".." segment, empty or dot names — is rejected
// outright rather than normalised. Dots inside a name ("a..b.txt") are
// harmless once separators are excluded and stay allowed. Local.abs applies
// a second, filesystem-level containment check in case a caller bypasses
// this one.
func ValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	if strings.HasPrefix(name, tmpPrefix) {
		return false
	}
	// NUL terminates paths in most filesystem APIs; never let it through.
	return !strings.ContainsRune(name, 0)
}
