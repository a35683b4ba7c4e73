package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tbrandt/othala/internal/apperr"
)

func newTestFS(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

func TestWriteRead_RoundTrip(t *testing.T) {
	_, fs := newTestFS(t)
	if err := fs.Write("notes/hello.md", []byte("# Hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := fs.Read("notes/hello.md")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "# Hello\n" {
		t.Errorf("data = %q", data)
	}
}

func TestRead_NotFound(t *testing.T) {
	_, fs := newTestFS(t)
	_, err := fs.Read("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSafePath_RejectsTraversal(t *testing.T) {
	dir, fs := newTestFS(t)

	escapes := []string{
		"../outside.md",
		"notes/../../outside.md",
		"/etc/passwd",
		"..",
	}
	for _, p := range escapes {
		if err := fs.Write(p, []byte("x")); !errors.Is(err, apperr.ErrPathEscapesVault) {
			t.Errorf("Write(%q) err = %v, want ErrPathEscapesVault", p, err)
		}
		if _, err := fs.Read(p); !errors.Is(err, apperr.ErrPathEscapesVault) {
			t.Errorf("Read(%q) err = %v, want ErrPathEscapesVault", p, err)
		}
	}

	// Nothing may have landed next to the vault.
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "outside.md")); !os.IsNotExist(err) {
		t.Error("traversal write created a file outside the vault")
	}
}

func TestSafePath_AllowsDotDotWithinVault(t *testing.T) {
	_, fs := newTestFS(t)
	// Cleans to notes/b.md, still inside the root.
	if err := fs.Write("notes/sub/../b.md", []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ok, _ := fs.Exists("notes/b.md"); !ok {
		t.Error("expected notes/b.md to exist")
	}
}

func TestWrite_NoPartialFileOnOverwrite(t *testing.T) {
	_, fs := newTestFS(t)
	if err := fs.Write("a.md", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Write("a.md", []byte("second")); err != nil {
		t.Fatal(err)
	}
	data, err := fs.Read("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("data = %q, want %q", data, "second")
	}
}

func TestList_SkipsNonMarkdownAndDotDirs(t *testing.T) {
	dir, fs := newTestFS(t)
	for _, p := range []string{"a.md", "sub/b.md"} {
		if err := fs.Write(p, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, ".obsidian"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".obsidian", "c.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "raw.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	infos, err := fs.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2: %v", len(infos), infos)
	}
	paths := map[string]bool{}
	for _, in := range infos {
		paths[in.Path] = true
	}
	if !paths["a.md"] || !paths["sub/b.md"] {
		t.Errorf("paths = %v", paths)
	}
}

func TestList_MissingFolderIsEmpty(t *testing.T) {
	_, fs := newTestFS(t)
	infos, err := fs.List("Projects")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("infos = %v, want empty", infos)
	}
}

func TestNewFS_MissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing root")
	}
}
