package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Placement is a binary on its way to its final path. Stage writes it next
// to the destination, Swap moves it in, and Commit or Rollback settle it.
type Placement struct {
	Path       string
	tmpPath    string
	backupPath string // previous binary, hard-linked or copied aside by Swap
}

// stagePlacement writes content to a hidden, executable temp file in destDir and
// picks where the current destDir/name, if any, will be kept. Nothing at
// the destination changes until Swap.
func stagePlacement(content []byte, destDir, name string) (*Placement, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, classifyFSError(fmt.Errorf("create dest dir: %w", err))
	}

	destPath := filepath.Join(destDir, name)
	if info, err := os.Lstat(destPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%s exists and is a directory", destPath)
	}

	tmpFile, err := os.CreateTemp(destDir, "."+name+".tmp-*")
	if err != nil {
		return nil, classifyFSError(fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmpFile.Name()

	fail := func(err error) (*Placement, error) {
		tmpFile.Close()
		os.Remove(tmpPath)
		return nil, err
	}

	if _, err := tmpFile.Write(content); err != nil {
		return fail(classifyFSError(fmt.Errorf("write temp file: %w", err)))
	}
	if err := tmpFile.Chmod(0755); err != nil {
		return fail(classifyFSError(fmt.Errorf("set executable: %w", err)))
	}
	if err := tmpFile.Sync(); err != nil {
		return fail(fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	p := &Placement{Path: destPath, tmpPath: tmpPath}
	if _, err := os.Lstat(destPath); err == nil {
		p.backupPath = filepath.Join(destDir, fmt.Sprintf(".%s.backup-%s", name, uuid.NewString()))
	}
	return p, nil
}

// Swap keeps the previous binary aside and renames the staged file over
// the destination, so readers see either the old binary or the complete
// new one. If ctx is cancelled, or Swap fails, the destination is left as
// it was and the staged file is removed.
func (p *Placement) Swap(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		p.Discard()
		return err
	}

	if p.backupPath != "" {
		if err := preserve(p.Path, p.backupPath); err != nil {
			p.Discard()
			return classifyFSError(fmt.Errorf("back up existing binary: %w", err))
		}
	}

	if err := os.Rename(p.tmpPath, p.Path); err != nil {
		p.Discard()
		if p.backupPath != "" {
			os.Remove(p.backupPath)
		}
		return classifyFSError(fmt.Errorf("rename temp file: %w", err))
	}
	return nil
}

// Discard removes the staged file.
func (p *Placement) Discard() {
	os.Remove(p.tmpPath)
}

// TmpPath is the staged file.
func (p *Placement) TmpPath() string {
	return p.tmpPath
}

// BackupPath is where the previous binary is kept, or "" if there was none.
func (p *Placement) BackupPath() string {
	return p.backupPath
}

// Commit drops the backup of the previous binary.
func (p *Placement) Commit() error {
	if p.backupPath == "" {
		return nil
	}
	if err := os.Remove(p.backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove backup: %w", err)
	}
	p.backupPath = ""
	return nil
}

// Rollback restores the previous binary, or removes the new one if there
// was none.
func (p *Placement) Rollback() error {
	if p.backupPath != "" {
		if err := os.Rename(p.backupPath, p.Path); err != nil {
			return fmt.Errorf("restore previous binary: %w", err)
		}
		p.backupPath = ""
		return nil
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unconfirmed binary: %w", err)
	}
	return nil
}

// preserve hard-links src to dst, copying when the filesystem refuses
// links.
func preserve(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
