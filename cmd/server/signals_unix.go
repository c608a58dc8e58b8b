//go:build !windows

package main

import "syscall"

func init() {
	// SIGTERM is the standard graceful-shutdown signal on Linux/macOS and
	// what container runtimes send first. Not meaningful on Windows, so it
	// is only registered here.
	shutdownSignals = append(shutdownSignals, syscall.SIGTERM)
}
