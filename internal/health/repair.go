package health

import (
	"fmt"
	"strings"

	"github.com/tbrandt/othala/internal/frontmatter"
	"github.com/tbrandt/othala/internal/graph"
	"github.com/tbrandt/othala/internal/models"
	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/template"
)

// Repair actions reported in RepairChange.
const (
	ActionFixedLink     = "fixed_link"
	ActionNormalizedTag = "normalized_tag"
	ActionAddedTitle    = "added_title"
)

// similarityCutoff is the minimum bigram similarity for a broken link
// target to be rewritten to an existing note.
const similarityCutoff = 0.7

// RepairChange is one applied (or, in dry-run mode, proposed) fix.
type RepairChange struct {
	Action string `json:"action"`
	Path   string `json:"path"`
	Detail string `json:"detail"`
}

// RepairReport lists what a repair pass changed.
type RepairReport struct {
	DryRun  bool           `json:"dry_run"`
	Changes []RepairChange `json:"changes"`
}

// Repairer fixes the vault issues a health check surfaces: broken
// wikilinks whose target closely matches an existing note, frontmatter
// tags in non-canonical form, and notes missing a title key. Repairs
// rewrite note content, so everything supports a dry run first.
type Repairer struct {
	notes   *notestore.Store
	builder *graph.Builder
}

// NewRepairer creates a Repairer sharing the checker's graph source.
func NewRepairer(notes *notestore.Store, src graph.Source) *Repairer {
	return &Repairer{notes: notes, builder: graph.NewBuilder(src)}
}

// Repair runs all repair passes. With dryRun set nothing is written;
// the report lists what a real run would change.
func (r *Repairer) Repair(dryRun bool) (*RepairReport, error) {
	report := &RepairReport{DryRun: dryRun}

	if err := r.fixBrokenLinks(report, dryRun); err != nil {
		return nil, err
	}
	if err := r.fixMetadata(report, dryRun); err != nil {
		return nil, err
	}
	return report, nil
}

// fixBrokenLinks rewrites unresolved wikilinks whose target closely
// matches an existing note's stem. Targets with no confident match are
// left alone; they stay visible in the health report instead.
func (r *Repairer) fixBrokenLinks(report *RepairReport, dryRun bool) error {
	g, err := r.builder.Build("", 0)
	if err != nil {
		return err
	}

	sums, err := r.notes.List("", notestore.SortByPath)
	if err != nil {
		return err
	}
	var stems []string
	for _, s := range sums {
		if s.ParseError == "" && !isTemplate(s.Path) {
			stems = append(stems, notestore.Stem(s.Path))
		}
	}

	// target → replacement stem, one decision per distinct target.
	fixes := make(map[string]string)
	bySource := make(map[string][]models.LinkEdge)
	for _, e := range g.Edges {
		if e.TargetPath != "" {
			continue
		}
		if _, seen := fixes[e.Target]; !seen {
			fixes[e.Target] = bestMatch(e.Target, stems)
		}
		if fixes[e.Target] != "" {
			bySource[e.Source] = append(bySource[e.Source], e)
		}
	}

	for _, sum := range sums {
		edges := bySource[sum.Path]
		if len(edges) == 0 || isTemplate(sum.Path) {
			continue
		}
		note, err := r.notes.Get(sum.Path)
		if err != nil {
			continue
		}
		body := note.Body
		for _, e := range edges {
			repl := fixes[e.Target]
			body = strings.ReplaceAll(body, "[["+e.Target+"]]", "[["+repl+"]]")
			body = strings.ReplaceAll(body, "[["+e.Target+"|", "[["+repl+"|")
			report.Changes = append(report.Changes, RepairChange{
				Action: ActionFixedLink,
				Path:   sum.Path,
				Detail: fmt.Sprintf("%s -> %s", e.Target, repl),
			})
		}
		if body == note.Body || dryRun {
			continue
		}
		if _, err := r.notes.Update(sum.Path, body, notestore.ModeReplace); err != nil {
			return err
		}
	}
	return nil
}

// fixMetadata normalizes frontmatter tags to lower-kebab form and adds
// a title key to notes that have none.
func (r *Repairer) fixMetadata(report *RepairReport, dryRun bool) error {
	sums, err := r.notes.List("", notestore.SortByPath)
	if err != nil {
		return err
	}
	for _, sum := range sums {
		if sum.ParseError != "" || isTemplate(sum.Path) {
			continue
		}
		note, err := r.notes.Get(sum.Path)
		if err != nil {
			continue
		}

		fm := note.Frontmatter
		changed := false

		if v, ok := fm.Get("tags"); ok && v.Kind() == frontmatter.KindList {
			items := v.Items()
			out := make([]frontmatter.Value, len(items))
			for i, item := range items {
				tag := item.Text()
				norm := normalizeTag(tag)
				out[i] = frontmatter.String(norm)
				if norm != tag {
					changed = true
					report.Changes = append(report.Changes, RepairChange{
						Action: ActionNormalizedTag,
						Path:   sum.Path,
						Detail: fmt.Sprintf("%s -> %s", tag, norm),
					})
				}
			}
			if changed {
				fm.Set("tags", frontmatter.List(out...))
			}
		}

		if _, ok := fm.Get("title"); !ok {
			fm.Set("title", frontmatter.String(note.Title))
			changed = true
			report.Changes = append(report.Changes, RepairChange{
				Action: ActionAddedTitle,
				Path:   sum.Path,
				Detail: note.Title,
			})
		}

		if !changed || dryRun {
			continue
		}
		if _, err := r.notes.Create(sum.Path, fm, note.Body, true); err != nil {
			return err
		}
	}
	return nil
}

// isTemplate reports whether path lives under the Templates folder.
// Templates carry placeholders on purpose and are never repaired.
func isTemplate(path string) bool {
	return strings.HasPrefix(path, template.Folder+"/")
}

// normalizeTag lowercases a tag and replaces whitespace with hyphens.
func normalizeTag(tag string) string {
	return strings.Join(strings.Fields(strings.ToLower(tag)), "-")
}

// bestMatch picks the stem most similar to target: substring containment
// first, then bigram similarity above the cutoff. Empty when nothing is
// close enough.
func bestMatch(target string, stems []string) string {
	lower := strings.ToLower(target)
	for _, s := range stems {
		sl := strings.ToLower(s)
		if strings.Contains(sl, lower) || strings.Contains(lower, sl) {
			return s
		}
	}

	best, bestScore := "", 0.0
	for _, s := range stems {
		if score := bigramSimilarity(lower, strings.ToLower(s)); score > bestScore && score > similarityCutoff {
			best, bestScore = s, score
		}
	}
	return best
}

// bigramSimilarity is the Jaccard index over character bigrams.
func bigramSimilarity(a, b string) float64 {
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 && len(bb) == 0 {
		return 1
	}
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	inter := 0
	for g := range ba {
		if _, ok := bb[g]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(ba)+len(bb)-inter)
}

func bigrams(s string) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for i := 0; i+2 <= len(s); i++ {
		out[s[i:i+2]] = struct{}{}
	}
	return out
}
