package installer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kyrylokulyhin/pour/internal/formula"
)

// ErrNotInstalled is returned when no receipt exists for a package.
var ErrNotInstalled = errors.New("not installed")

// Receipt records a confirmed install.
type Receipt struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Target      string    `json:"target"`
	URL         string    `json:"url"`
	Digest      string    `json:"sha256"`
	Path        string    `json:"path"`
	Verified    []string  `json:"verified"`
	InstalledAt time.Time `json:"installed_at"`
}

func newReceipt(r formula.Resolved, path string, methods []VerificationMethod) *Receipt {
	verified := make([]string, 0, len(methods))
	for _, m := range methods {
		verified = append(verified, m.String())
	}
	return &Receipt{
		ID:          uuid.New().String(),
		Name:        r.Name(),
		Version:     r.Version(),
		Target:      r.Target,
		URL:         r.URL,
		Digest:      r.Digest(),
		Path:        path,
		Verified:    verified,
		InstalledAt: time.Now().UTC(),
	}
}

// ReceiptStore keeps receipts as <dir>/<name>.json.
type ReceiptStore struct {
	dir string
}

// NewReceiptStore returns a store rooted at dir.
func NewReceiptStore(dir string) *ReceiptStore {
	return &ReceiptStore{dir: dir}
}

func (s *ReceiptStore) path(name string) (string, error) {
	if err := formula.ValidatePathSegment(name); err != nil {
		return "", fmt.Errorf("invalid package name: %w", err)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// Save writes r atomically, replacing any receipt for the same name.
func (s *ReceiptStore) Save(r *Receipt) error {
	finalPath, err := s.path(r.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create receipt dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename receipt: %w", err)
	}
	return nil
}

// Load returns the receipt for name, or ErrNotInstalled.
func (s *ReceiptStore) Load(name string) (*Receipt, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotInstalled)
		}
		return nil, fmt.Errorf("read receipt: %w", err)
	}

	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal receipt %s: %w", name, err)
	}
	return &r, nil
}

// List returns every receipt, sorted by name.
func (s *ReceiptStore) List() ([]*Receipt, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read receipt dir: %w", err)
	}

	var receipts []*Receipt
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		r, err := s.Load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}

	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].Name < receipts[j].Name
	})
	return receipts, nil
}

// Remove deletes the receipt for name.
func (s *ReceiptStore) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", name, ErrNotInstalled)
		}
		return fmt.Errorf("remove receipt: %w", err)
	}
	return nil
}
