//go:build !linux

package store

// diskStats has no portable implementation off Linux. (0, 0) means
// "stats unavailable" — callers must skip the check, not treat it as full.
func diskStats(_ string) (avail, total uint64) { return 0, 0 }
