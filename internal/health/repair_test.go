package health_test

import (
	"strings"
	"testing"

	"github.com/tbrandt/othala/internal/health"
	"github.com/tbrandt/othala/internal/testutil"
)

func changesByAction(r *health.RepairReport, action string) []health.RepairChange {
	var out []health.RepairChange
	for _, c := range r.Changes {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

func TestRepair_FixesBrokenLinkToCloseMatch(t *testing.T) {
	dir, store, ix := testutil.TestIndex(t)
	testutil.WriteNote(t, dir, "Target Note.md", "---\ntitle: Target Note\n---\nbody\n")
	testutil.WriteNote(t, dir, "a.md", "---\ntitle: Alpha\n---\nsee [[Target Note2]] and [[Target Note2|the note]]\n")

	r, err := health.NewRepairer(store, ix).Repair(false)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}

	fixes := changesByAction(r, health.ActionFixedLink)
	if len(fixes) != 1 || fixes[0].Path != "a.md" {
		t.Fatalf("fixes = %+v", fixes)
	}

	note, err := store.Get("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(note.Body, "Target Note2") {
		t.Errorf("body still has broken target: %q", note.Body)
	}
	if !strings.Contains(note.Body, "[[Target Note]]") || !strings.Contains(note.Body, "[[Target Note|the note]]") {
		t.Errorf("body = %q, want rewritten links", note.Body)
	}

	// After re-indexing the health check sees no broken links.
	ix.Invalidate()
	report, err := health.NewChecker(store, ix).Check()
	if err != nil {
		t.Fatal(err)
	}
	if len(report.BrokenLinks) != 0 {
		t.Errorf("BrokenLinks = %v, want none", report.BrokenLinks)
	}
}

func TestRepair_LeavesDistantTargetsAlone(t *testing.T) {
	dir, store, ix := testutil.TestIndex(t)
	testutil.WriteNote(t, dir, "Alpha.md", "---\ntitle: Alpha\n---\nbody\n")
	testutil.WriteNote(t, dir, "a.md", "---\ntitle: A\n---\nsee [[Zzz Qqq Xxx]]\n")

	r, err := health.NewRepairer(store, ix).Repair(false)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if fixes := changesByAction(r, health.ActionFixedLink); len(fixes) != 0 {
		t.Errorf("fixes = %+v, want none", fixes)
	}

	note, err := store.Get("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(note.Body, "[[Zzz Qqq Xxx]]") {
		t.Errorf("body = %q, want link untouched", note.Body)
	}
}

func TestRepair_NormalizesTagsAndAddsTitle(t *testing.T) {
	dir, store, ix := testutil.TestIndex(t)
	testutil.WriteNote(t, dir, "n.md", "---\ntags:\n  - My Tag\n  - ok\n---\n# Heading\nbody\n")

	r, err := health.NewRepairer(store, ix).Repair(false)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}

	tags := changesByAction(r, health.ActionNormalizedTag)
	if len(tags) != 1 || tags[0].Detail != "My Tag -> my-tag" {
		t.Errorf("tag changes = %+v", tags)
	}
	titles := changesByAction(r, health.ActionAddedTitle)
	if len(titles) != 1 || titles[0].Detail != "Heading" {
		t.Errorf("title changes = %+v", titles)
	}

	note, err := store.Get("n.md")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := note.Frontmatter.Get("title"); !ok || v.AsString() != "Heading" {
		t.Errorf("title = %v, %v", v, ok)
	}
	v, _ := note.Frontmatter.Get("tags")
	if got := v.Text(); got != "my-tag, ok" {
		t.Errorf("tags = %q", got)
	}
}

func TestRepair_SkipsTemplates(t *testing.T) {
	dir, store, ix := testutil.TestIndex(t)
	testutil.WriteNote(t, dir, "Templates/Client.md", "---\ntags:\n  - Client Tag\n---\n# {{name}}\n")

	r, err := health.NewRepairer(store, ix).Repair(false)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if len(r.Changes) != 0 {
		t.Errorf("changes = %+v, want none", r.Changes)
	}
}

func TestRepair_DryRunWritesNothing(t *testing.T) {
	dir, store, ix := testutil.TestIndex(t)
	raw := "---\ntags:\n  - My Tag\n---\nbody\n"
	testutil.WriteNote(t, dir, "n.md", raw)

	r, err := health.NewRepairer(store, ix).Repair(true)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if !r.DryRun || len(r.Changes) == 0 {
		t.Fatalf("report = %+v, want dry-run changes", r)
	}

	note, err := store.Get("n.md")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := note.Frontmatter.Get("title"); ok {
		t.Error("dry run added a title")
	}
	v, _ := note.Frontmatter.Get("tags")
	if got := v.Text(); got != "My Tag" {
		t.Errorf("tags = %q, want untouched", got)
	}
}
