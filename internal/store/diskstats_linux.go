//go:build linux

package store

import "syscall"

// diskStats returns available and total bytes on the filesystem containing
// path. Bavail (blocks available to unprivileged processes) is used instead
// of Bfree so the figure reflects what the service, running as non-root,
// can actually write.
func diskStats(path string) (avail, total uint64) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, 0
	}
	bsize := uint64(st.Bsize)
	return st.Bavail * bsize, st.Blocks * bsize
}
