package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kyrylokulyhin/pour/internal/formula"
)

// Cache stores verified archives under {dir}/{name}/{version}/{filename}.
// Entries are re-verified whenever they are read.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir. An empty dir disables caching.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Enabled reports whether the cache has a directory.
func (c *Cache) Enabled() bool {
	return c != nil && c.dir != ""
}

func (c *Cache) path(r formula.Resolved) string {
	return filepath.Join(c.dir, r.Name(), r.Version(), r.Target, r.Filename())
}

// Get returns the cached bytes for r, if present.
func (c *Cache) Get(r formula.Resolved) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	path := c.path(r)
	if !fileExists(path) {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores data for r with a temp file and rename.
func (c *Cache) Put(r formula.Resolved, data []byte) error {
	if !c.Enabled() {
		return nil
	}

	destPath := c.path(r)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return nil
}

// Remove drops the entry for r.
func (c *Cache) Remove(r formula.Resolved) error {
	if !c.Enabled() {
		return nil
	}
	if err := os.Remove(c.path(r)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not empty
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
