// Package transaction serializes pour operations with a lock file and keeps
// an install journal so an interrupted install can be rolled back.
package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State represents the current state of an install transaction.
type State string

const (
	StatePending    State = "pending"     // staged, the rename may or may not have happened
	StateInProgress State = "in_progress" // binary placed, not yet confirmed
)

// Operation represents the type of operation being journaled.
type Operation string

const (
	OperationInstall Operation = "install"
)

const journalPrefix = "txn-"

// Txn is the on-disk journal of a single install.
type Txn struct {
	Version    int       `json:"version"` // Schema version for future evolution
	ID         string    `json:"id"`
	Operation  Operation `json:"operation"`
	Timestamp  time.Time `json:"timestamp"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`                  // final binary path
	TmpPath    string    `json:"tmp_path,omitempty"`    // staged binary before the rename
	BackupPath string    `json:"backup_path,omitempty"` // previous binary; empty when there was none
	State      State     `json:"state"`
}

// New creates a pending transaction for installing name at path.
func New(op Operation, name, path string) *Txn {
	return &Txn{
		Version:   1,
		ID:        uuid.New().String(),
		Operation: op,
		Timestamp: time.Now().UTC(),
		Name:      name,
		Path:      path,
		State:     StatePending,
	}
}

func (t *Txn) filename() string {
	return fmt.Sprintf("%s%s-%s.json", journalPrefix, t.Operation, t.ID)
}

// Save writes the transaction to dir atomically.
// Uses write-then-rename pattern for atomicity.
func (t *Txn) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create transaction directory: %w", err)
	}

	finalPath := filepath.Join(dir, t.filename())
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temporary transaction file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename transaction file: %w", err)
	}

	// Sync directory for durability
	df, err := os.Open(dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return fmt.Errorf("sync directory: %w", syncErr)
		}
		df.Close()
	}

	return nil
}

// MarkPlaced records that the binary is at its final path.
func (t *Txn) MarkPlaced() {
	t.State = StateInProgress
}

// Done removes the journal from dir.
func (t *Txn) Done(dir string) error {
	err := os.Remove(filepath.Join(dir, t.filename()))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove transaction file: %w", err)
	}
	return nil
}

// Load reads a transaction from disk.
func Load(path string) (*Txn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transaction file: %w", err)
	}

	var txn Txn
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}

	return &txn, nil
}

// List returns the journals left in dir by interrupted operations.
func List(dir string) ([]*Txn, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read transaction directory: %w", err)
	}

	var txns []*Txn
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, journalPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		txn, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// Recover rolls back every journaled install in dir, whatever its state:
// the staged file is removed, then the backup is restored, or the binary at
// Path is removed when there was no previous one. A journal whose rollback
// fails is kept for the next call. It must be called with the lock held.
func Recover(dir string) ([]*Txn, error) {
	txns, err := List(dir)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, txn := range txns {
		if err := txn.rollback(); err != nil {
			errs = append(errs, fmt.Errorf("recover %s: %w", txn.Name, err))
			continue
		}
		if err := txn.Done(dir); err != nil {
			errs = append(errs, err)
		}
	}

	return txns, errors.Join(errs...)
}

func (t *Txn) rollback() error {
	if t.State == StatePending && t.TmpPath == "" {
		// Nothing was staged.
		return nil
	}

	if t.TmpPath != "" {
		if err := os.Remove(t.TmpPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	if t.BackupPath == "" {
		if err := os.Remove(t.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	backup, err := os.Stat(t.BackupPath)
	if os.IsNotExist(err) {
		// Never taken, or already restored: Path holds the previous binary.
		return nil
	}
	if err != nil {
		return err
	}

	// Interrupted before the rename: the backup is a link to Path itself.
	if current, err := os.Stat(t.Path); err == nil && os.SameFile(backup, current) {
		return os.Remove(t.BackupPath)
	}
	return os.Rename(t.BackupPath, t.Path)
}
