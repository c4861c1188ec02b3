package tap

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const ecsExecLua = `formula = {
  name = "ecs-exec",
  version = "v0.1.0",
  url = "https://github.com/kyrylokulyhin/ecs-exec/releases/download/{version}/ecs-exec-{target}.zip",
  sha256 = "e7227a05c1b7d2f0a9e8c6b4d3f2a1908e7d6c5b4a3928170f6e5d4c3b2977f3",
}
`

// newTapDir lays out a tap with the given descriptor files.
func newTapDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, FormulaDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// commitAll turns dir into a git repository with one commit.
func commitAll(t *testing.T, dir string) string {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := wt.AddGlob(FormulaDir + "/*"); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit("Add formulae", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash.String()
}

func TestOpenPlainDirectory(t *testing.T) {
	dir := newTapDir(t, map[string]string{
		"ecs-exec.lua": ecsExecLua,
		"jq.yaml":      "name: jq\n",
		"notes.txt":    "ignored",
	})

	tp, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if tp.Dir() != dir {
		t.Errorf("Dir() = %s, want %s", tp.Dir(), dir)
	}

	path, err := tp.Find("ecs-exec")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if want := filepath.Join(dir, FormulaDir, "ecs-exec.lua"); path != want {
		t.Errorf("Find() = %s, want %s", path, want)
	}

	if _, err := tp.Find("absent"); !errors.Is(err, ErrFormulaNotFound) {
		t.Errorf("expected ErrFormulaNotFound, got %v", err)
	}
	for _, name := range []string{"", "../ecs-exec", "Formula/ecs-exec", ".hidden"} {
		if _, err := tp.Find(name); err == nil || errors.Is(err, ErrFormulaNotFound) {
			t.Errorf("Find(%q): expected invalid name error, got %v", name, err)
		}
	}

	names, err := tp.Names()
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	if len(names) != 2 || names[0] != "ecs-exec" || names[1] != "jq" {
		t.Errorf("Names() = %v", names)
	}

	if err := tp.Update(context.Background()); !errors.Is(err, ErrNotAGitRepo) {
		t.Errorf("expected ErrNotAGitRepo, got %v", err)
	}
	if _, err := tp.Head(); !errors.Is(err, ErrNotAGitRepo) {
		t.Errorf("expected ErrNotAGitRepo, got %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing directory")
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(file); err == nil {
		t.Error("expected error for regular file")
	}
}

func TestOpenGitRepository(t *testing.T) {
	dir := newTapDir(t, map[string]string{"ecs-exec.lua": ecsExecLua})
	hash := commitAll(t, dir)

	tp, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	head, err := tp.Head()
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if head != hash {
		t.Errorf("Head() = %s, want %s", head, hash)
	}
}

func TestFindExtensionOrder(t *testing.T) {
	dir := newTapDir(t, map[string]string{
		"ecs-exec.json": "{}",
		"ecs-exec.lua":  ecsExecLua,
	})

	tp, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	path, err := tp.Find("ecs-exec")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if filepath.Ext(path) != ".lua" {
		t.Errorf("expected .lua to win, got %s", path)
	}
}

func TestCloneAndUpdate(t *testing.T) {
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("git-upload-pack not available for local clones")
	}

	src := newTapDir(t, map[string]string{"ecs-exec.lua": ecsExecLua})
	hash := commitAll(t, src)

	root := t.TempDir()
	tp, err := OpenOrClone(context.Background(), "file://"+src, root)
	if err != nil {
		t.Fatalf("OpenOrClone failed: %v", err)
	}

	head, err := tp.Head()
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if head != hash {
		t.Errorf("Head() = %s, want %s", head, hash)
	}
	if _, err := tp.Find("ecs-exec"); err != nil {
		t.Errorf("Find after clone failed: %v", err)
	}

	if err := tp.Update(context.Background()); err != nil {
		t.Errorf("Update on an up-to-date tap should succeed: %v", err)
	}

	// A second call reuses the checkout.
	again, err := OpenOrClone(context.Background(), "file://"+src, root)
	if err != nil {
		t.Fatalf("second OpenOrClone failed: %v", err)
	}
	if again.Dir() != tp.Dir() {
		t.Errorf("expected checkout reuse, got %s and %s", tp.Dir(), again.Dir())
	}
}

func TestOpenOrCloneLocalDir(t *testing.T) {
	dir := newTapDir(t, map[string]string{"ecs-exec.lua": ecsExecLua})

	tp, err := OpenOrClone(context.Background(), dir, t.TempDir())
	if err != nil {
		t.Fatalf("OpenOrClone failed: %v", err)
	}
	if tp.Dir() != dir {
		t.Errorf("expected local dir to be used in place, got %s", tp.Dir())
	}
}

func TestCloneFailureCleansUp(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "tap")

	_, err := Clone(context.Background(), filepath.Join(t.TempDir(), "missing-repo"), dir)
	if err == nil {
		t.Fatal("expected clone of a missing repository to fail")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("failed clone should not leave a directory behind")
	}
}

func TestDirName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/kyrylokulyhin/homebrew-tap.git", "github.com-kyrylokulyhin-homebrew-tap"},
		{"https://github.com/kyrylokulyhin/homebrew-tap/", "github.com-kyrylokulyhin-homebrew-tap"},
		{"git@github.com:kyrylokulyhin/homebrew-tap.git", "github.com-kyrylokulyhin-homebrew-tap"},
		{"file:///srv/taps/main", "srv-taps-main"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := DirName(tt.url); got != tt.want {
				t.Errorf("DirName(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
