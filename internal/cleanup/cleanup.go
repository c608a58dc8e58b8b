// Package cleanup reclaims disk space from orphaned write temp files.
//
// Uploads are staged as ".tmp-*" files in the storage directory and
// committed by rename. When a client disconnects mid-upload or the process
// crashes between write and rename, the temp file stays behind and is never
// referenced again. TmpFiles removes any temp file whose mtime is older
// than the configured TTL; in-flight uploads are recent by definition and
// are left untouched.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// tmpPrefix must match the prefix used by the store when staging writes.
const tmpPrefix = ".tmp-"

// TmpFiles scans dir and removes temp files older than ttl.
func TmpFiles(dir string, ttl time.Duration, logger *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cleanup: readdir failed", "dir", dir, "err", err)
		}
		return
	}

	cutoff := time.Now().Add(-ttl)
	var removed int
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, e.Name())
			age := time.Since(info.ModTime()).Round(time.Minute)
			if err := os.Remove(path); err != nil {
				logger.Warn("cleanup: remove failed", "file", e.Name(), "err", err)
			} else {
				removed++
				logger.Info("cleanup: removed orphaned temp file", "file", e.Name(), "age", age)
			}
		}
	}
	if removed > 0 {
		logger.Info("cleanup: cycle complete", "removed", removed)
	}
}

// RunPeriodic starts a background goroutine calling TmpFiles on every
// interval until ctx is cancelled. A first pass runs immediately so temp
// files left by a previous crash are flushed at startup.
//
// Non-positive values are clamped: time.NewTicker panics on them, and a
// zero TTL would delete temp files belonging to in-flight uploads.
func RunPeriodic(ctx context.Context, dir string, ttl, interval time.Duration, logger *slog.Logger) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	go func() {
		TmpFiles(dir, ttl, logger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				TmpFiles(dir, ttl, logger)
			case <-ctx.Done():
				return
			}
		}
	}()
}
