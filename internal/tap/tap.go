// Package tap manages tap repositories: git repositories holding package
// descriptors under Formula/.
package tap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/kyrylokulyhin/pour/internal/formula"
)

// FormulaDir is the directory inside a tap that holds descriptors.
const FormulaDir = "Formula"

var (
	ErrNotAGitRepo     = errors.New("not a git repository")
	ErrFormulaNotFound = errors.New("formula not found")
)

// Tap is a local checkout of a tap repository. A plain directory laid out
// like a tap is accepted too; it just cannot be updated.
type Tap struct {
	dir  string
	repo *gogit.Repository
}

// Open opens the tap at dir.
func Open(dir string) (*Tap, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open tap: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open tap: %s is not a directory", dir)
	}

	repo, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return &Tap{dir: dir}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &Tap{dir: dir, repo: repo}, nil
}

// Clone makes a shallow clone of url into dir.
func Clone(ctx context.Context, url, dir string) (*Tap, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return nil, fmt.Errorf("create tap dir: %w", err)
	}

	repo, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}
	return &Tap{dir: dir, repo: repo}, nil
}

// OpenOrClone opens the tap checked out under root for url, cloning it on
// first use. A local directory url is opened in place.
func OpenOrClone(ctx context.Context, url, root string) (*Tap, error) {
	if info, err := os.Stat(url); err == nil && info.IsDir() {
		return Open(url)
	}

	dir := filepath.Join(root, DirName(url))
	if _, err := os.Stat(dir); err == nil {
		return Open(dir)
	}
	return Clone(ctx, url, dir)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DirName derives a checkout directory name from a tap url, for example
// "github.com-kyrylokulyhin-homebrew-tap" for
// "https://github.com/kyrylokulyhin/homebrew-tap.git".
func DirName(url string) string {
	name := url
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	if i := strings.LastIndex(name, "@"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(strings.TrimSuffix(name, "/"), ".git")
	name = unsafeChars.ReplaceAllString(name, "-")
	return strings.Trim(name, "-.")
}

// Dir returns the tap's root directory.
func (t *Tap) Dir() string {
	return t.dir
}

// Update pulls the latest descriptors. Being up to date is not an error.
func (t *Tap) Update(ctx context.Context) error {
	if t.repo == nil {
		return fmt.Errorf("update %s: %w", t.dir, ErrNotAGitRepo)
	}

	worktree, err := t.repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName: "origin",
		Depth:      1,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// Head returns the commit hash the tap is at.
func (t *Tap) Head() (string, error) {
	if t.repo == nil {
		return "", ErrNotAGitRepo
	}
	ref, err := t.repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// Find returns the path of the descriptor for name.
func (t *Tap) Find(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid formula name %q", name)
	}
	for _, ext := range formula.Extensions {
		path := filepath.Join(t.dir, FormulaDir, name+ext)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s in %s: %w", name, t.dir, ErrFormulaNotFound)
}

// Names lists the descriptors in the tap.
func (t *Tap) Names() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(t.dir, FormulaDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read formula dir: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isExtension(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func isExtension(ext string) bool {
	for _, e := range formula.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
