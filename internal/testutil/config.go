package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cscheib/mount-status-monitor/internal/config"
)

// TempConfig creates a temporary config file with the given file
// configuration and returns the path to the file. The file is automatically
// cleaned up when the test completes.
//
// Example:
//
//	fc := &config.FileConfig{
//	    PollInterval: config.Duration(10 * time.Second),
//	    ProbeCommand: "/usr/bin/stat",
//	}
//	configPath := testutil.TempConfig(t, fc)
func TempConfig(t *testing.T, fc *config.FileConfig) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	return path
}
