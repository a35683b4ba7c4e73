// Package health assesses vault quality: broken wikilinks, orphaned notes,
// tag usage, and notes missing required metadata.
package health

import (
	"sort"
	"time"

	"github.com/tbrandt/othala/internal/graph"
	"github.com/tbrandt/othala/internal/notestore"
)

// BrokenLink is a wikilink whose target resolves to no note.
type BrokenLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// TagCount is one tag with its usage count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Report summarizes the state of the vault at a point in time.
type Report struct {
	GeneratedAt   time.Time    `json:"generated_at"`
	TotalNotes    int          `json:"total_notes"`
	TotalLinks    int          `json:"total_links"`
	BrokenLinks   []BrokenLink `json:"broken_links"`
	OrphanedNotes []string     `json:"orphaned_notes"`
	ParseErrors   []string     `json:"parse_errors"`
	TopTags       []TagCount   `json:"top_tags"`
}

// Checker builds health reports. Summaries come straight from the note
// store so files with malformed frontmatter are counted; edges come from
// the shared graph source.
type Checker struct {
	notes   *notestore.Store
	builder *graph.Builder
}

// NewChecker creates a Checker.
func NewChecker(notes *notestore.Store, src graph.Source) *Checker {
	return &Checker{notes: notes, builder: graph.NewBuilder(src)}
}

// Check runs a full assessment over the current vault contents.
func (c *Checker) Check() (*Report, error) {
	notes, err := c.notes.List("", notestore.SortByPath)
	if err != nil {
		return nil, err
	}
	g, err := c.builder.Build("", 0)
	if err != nil {
		return nil, err
	}

	r := &Report{
		GeneratedAt: time.Now().UTC(),
		TotalNotes:  len(notes),
		TotalLinks:  len(g.Edges),
	}

	linked := make(map[string]struct{})
	for _, e := range g.Edges {
		if e.TargetPath == "" {
			r.BrokenLinks = append(r.BrokenLinks, BrokenLink{Source: e.Source, Target: e.Target})
			continue
		}
		linked[e.Source] = struct{}{}
		linked[e.TargetPath] = struct{}{}
	}

	tagCounts := make(map[string]int)
	for _, n := range notes {
		if _, ok := linked[n.Path]; !ok {
			r.OrphanedNotes = append(r.OrphanedNotes, n.Path)
		}
		if n.ParseError != "" {
			r.ParseErrors = append(r.ParseErrors, n.Path)
		}
		for _, t := range n.Tags {
			tagCounts[t]++
		}
	}

	for tag, count := range tagCounts {
		r.TopTags = append(r.TopTags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(r.TopTags, func(i, j int) bool {
		if r.TopTags[i].Count != r.TopTags[j].Count {
			return r.TopTags[i].Count > r.TopTags[j].Count
		}
		return r.TopTags[i].Tag < r.TopTags[j].Tag
	})
	const maxTags = 20
	if len(r.TopTags) > maxTags {
		r.TopTags = r.TopTags[:maxTags]
	}
	return r, nil
}
