// Package testutil provides shared test helpers for the mount status
// monitor packages.
package testutil

import (
	"io"
	"log/slog"
	"testing"
)

// Logger returns a silent slog.Logger for tests.
// The probe runner and the monitor both take an injected logger; tests
// that only assert on state or events pass this one so per-mount log
// lines do not clutter the output.
func Logger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
