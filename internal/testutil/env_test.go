package testutil_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kyrylokulyhin/pour/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	vars := map[string]string{
		"HOME":           env.Home,
		"POUR_PREFIX":    env.Prefix,
		"POUR_STATE_DIR": env.StateDir,
		"POUR_CACHE_DIR": env.CacheDir,
	}
	for name, want := range vars {
		if got := os.Getenv(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	root := filepath.Dir(env.Home)
	for _, dir := range []string{env.Home, env.Prefix, env.StateDir, env.CacheDir} {
		if !filepath.IsAbs(dir) {
			t.Errorf("path %s is not absolute", dir)
		}
		if !strings.HasPrefix(dir, root) {
			t.Errorf("path %s is outside the test root %s", dir, root)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s does not exist", dir)
		}
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	var first string
	t.Run("first", func(t *testing.T) {
		first = testutil.SetupTestEnv(t).StateDir
	})
	t.Run("second", func(t *testing.T) {
		second := testutil.SetupTestEnv(t).StateDir
		if second == first {
			t.Errorf("expected different directories, both got %s", first)
		}
	})
}
