package notestore_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/tbrandt/othala/internal/apperr"
	"github.com/tbrandt/othala/internal/frontmatter"
	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/storage"
	"github.com/tbrandt/othala/internal/testutil"
)

func newTestStore(t *testing.T) (string, *notestore.Store) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, notestore.New(fs)
}

func TestCreate_NewNote(t *testing.T) {
	_, store := newTestStore(t)
	fm := frontmatter.NewMap()
	fm.Set("title", frontmatter.String("Acme Corp"))
	fm.Set("tags", frontmatter.List(frontmatter.String("client")))

	note, err := store.Create("Clients/Acme.md", fm, "Notes about Acme.\n", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if note.Title != "Acme Corp" {
		t.Errorf("title = %q, want %q", note.Title, "Acme Corp")
	}
	if note.Checksum == "" {
		t.Error("expected checksum")
	}

	got, err := store.Get("Clients/Acme.md")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Body != "Notes about Acme.\n" {
		t.Errorf("body = %q", got.Body)
	}
	if !got.Frontmatter.Equal(fm) {
		t.Errorf("frontmatter changed across write/read")
	}
}

func TestCreate_ConflictWithoutOverwrite(t *testing.T) {
	_, store := newTestStore(t)
	if _, err := store.Create("a.md", frontmatter.NewMap(), "one", false); err != nil {
		t.Fatal(err)
	}
	_, err := store.Create("a.md", frontmatter.NewMap(), "two", false)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}

	note, err := store.Create("a.md", frontmatter.NewMap(), "two", true)
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if note.Body != "two" {
		t.Errorf("body = %q, want %q", note.Body, "two")
	}
}

func TestCreate_PathEscape(t *testing.T) {
	_, store := newTestStore(t)
	_, err := store.Create("../outside.md", frontmatter.NewMap(), "x", false)
	if !errors.Is(err, apperr.ErrPathEscapesVault) {
		t.Errorf("err = %v, want ErrPathEscapesVault", err)
	}
}

func TestUpdate_AppendKeepsFrontmatter(t *testing.T) {
	_, store := newTestStore(t)
	fm := frontmatter.NewMap()
	fm.Set("id", frontmatter.String("c1"))
	if _, err := store.Create("a.md", fm, "First line.", false); err != nil {
		t.Fatal(err)
	}

	note, err := store.Update("a.md", "Second line.", notestore.ModeAppend)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if note.Body != "First line.\nSecond line." {
		t.Errorf("body = %q", note.Body)
	}
	if v, ok := note.Frontmatter.Get("id"); !ok || v.AsString() != "c1" {
		t.Errorf("frontmatter id lost: %v", note.Frontmatter.Keys())
	}
}

func TestUpdate_Replace(t *testing.T) {
	_, store := newTestStore(t)
	if _, err := store.Create("a.md", frontmatter.NewMap(), "old body", false); err != nil {
		t.Fatal(err)
	}
	note, err := store.Update("a.md", "new body", notestore.ModeReplace)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if note.Body != "new body" {
		t.Errorf("body = %q", note.Body)
	}
}

func TestUpdate_NotFoundAndBadMode(t *testing.T) {
	_, store := newTestStore(t)
	if _, err := store.Update("missing.md", "x", notestore.ModeAppend); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := store.Create("a.md", frontmatter.NewMap(), "x", false); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Update("a.md", "x", notestore.UpdateMode("prepend")); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestGet_MalformedFrontmatterIsError(t *testing.T) {
	dir, store := newTestStore(t)
	testutil.WriteNote(t, dir, "bad.md", "---\ntitle: Open\nno closing delimiter\n")
	_, err := store.Get("bad.md")
	if !errors.Is(err, apperr.ErrInvalidFrontmatter) {
		t.Errorf("err = %v, want ErrInvalidFrontmatter", err)
	}
}

func TestList_IncludesMalformedWithParseError(t *testing.T) {
	dir, store := newTestStore(t)
	testutil.WriteNote(t, dir, "good.md", "---\ntitle: Good\n---\nbody\n")
	testutil.WriteNote(t, dir, "broken.md", "---\nnested:\n  a: 1\n---\nbody\n")

	sums, err := store.List("", notestore.SortByPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("len = %d, want 2", len(sums))
	}
	// path order: broken.md first
	if sums[0].Path != "broken.md" || sums[0].ParseError == "" {
		t.Errorf("broken: %+v", sums[0])
	}
	if sums[0].Title != "broken" {
		t.Errorf("broken title = %q, want filename stem", sums[0].Title)
	}
	if sums[1].Title != "Good" || sums[1].ParseError != "" {
		t.Errorf("good: %+v", sums[1])
	}
}

func TestList_SortByTitle(t *testing.T) {
	dir, store := newTestStore(t)
	testutil.WriteNote(t, dir, "z.md", "---\ntitle: Alpha\n---\n")
	testutil.WriteNote(t, dir, "a.md", "---\ntitle: Zulu\n---\n")

	sums, err := store.List("", notestore.SortByTitle)
	if err != nil {
		t.Fatal(err)
	}
	if sums[0].Title != "Alpha" || sums[1].Title != "Zulu" {
		t.Errorf("order = [%s %s]", sums[0].Title, sums[1].Title)
	}
}

func TestList_InvalidSortField(t *testing.T) {
	_, store := newTestStore(t)
	if _, err := store.List("", "size"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestDeriveTitle_Fallbacks(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"frontmatter wins", "---\ntitle: FM Title\n---\n# H1 Title\n", "FM Title"},
		{"h1 fallback", "# My Heading\ntext\n", "My Heading"},
		{"stem fallback", "plain text, no heading\n", "note"},
	}
	dir, store := newTestStore(t)
	for _, c := range cases {
		testutil.WriteNote(t, dir, "note.md", c.raw)
		note, err := store.Get("note.md")
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if note.Title != c.want {
			t.Errorf("%s: title = %q, want %q", c.name, note.Title, c.want)
		}
	}
}

func TestDeriveTags_FrontmatterAndInline(t *testing.T) {
	dir, store := newTestStore(t)
	testutil.WriteNote(t, dir, "n.md", "---\ntags:\n  - alpha\n---\ntext #beta and #alpha again\n")
	note, err := store.Get("n.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(note.Tags) != 2 || note.Tags[0] != "alpha" || note.Tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", note.Tags)
	}
}

func TestStem(t *testing.T) {
	if got := notestore.Stem("Projects/Acme/Kickoff.md"); got != "Kickoff" {
		t.Errorf("stem = %q", got)
	}
	if got := notestore.Stem("note.md"); got != "note" {
		t.Errorf("stem = %q", got)
	}
}

func TestChecksum_ChangesWithContent(t *testing.T) {
	_, store := newTestStore(t)
	n1, err := store.Create("a.md", frontmatter.NewMap(), "one", false)
	if err != nil {
		t.Fatal(err)
	}
	n2, err := store.Update("a.md", "two", notestore.ModeReplace)
	if err != nil {
		t.Fatal(err)
	}
	if n1.Checksum == n2.Checksum {
		t.Error("checksum did not change")
	}
	if len(n1.Checksum) != 64 || strings.ToLower(n1.Checksum) != n1.Checksum {
		t.Errorf("checksum = %q, want lowercase hex sha-256", n1.Checksum)
	}
}
