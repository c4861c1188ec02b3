// Package testutil provides utilities for testing pour in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the directories of an isolated test environment.
type Env struct {
	Home     string
	Prefix   string
	StateDir string
	CacheDir string
}

// SetupTestEnv creates isolated test directories for each test and points
// the POUR_* variables and HOME at them, so tests never touch the user's
// installed binaries, receipts or download cache.
//
// The cleanup function is automatically handled by t.TempDir(),
// so callers don't need to manually clean up.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Home:     filepath.Join(tmpDir, "home"),
		Prefix:   filepath.Join(tmpDir, "bin"),
		StateDir: filepath.Join(tmpDir, "state"),
		CacheDir: filepath.Join(tmpDir, "cache"),
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("POUR_PREFIX", env.Prefix)
	t.Setenv("POUR_STATE_DIR", env.StateDir)
	t.Setenv("POUR_CACHE_DIR", env.CacheDir)
	t.Setenv("POUR_LOG_LEVEL", "")

	for _, dir := range []string{env.Home, env.Prefix, env.StateDir, env.CacheDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}
