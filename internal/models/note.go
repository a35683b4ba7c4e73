// Package models defines the domain types for Othala.
package models

import (
	"time"

	"github.com/tbrandt/othala/internal/frontmatter"
)

// Note is a fully parsed markdown file in the vault. Identity is the
// vault-relative path, case-sensitive.
type Note struct {
	Path        string           `json:"path"`
	Title       string           `json:"title"`
	Frontmatter *frontmatter.Map `json:"frontmatter"`
	Body        string           `json:"body"`
	Tags        []string         `json:"tags"`
	Checksum    string           `json:"checksum"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NoteSummary is the lightweight shape returned by list operations and tool
// results.
type NoteSummary struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags,omitempty"`
	Checksum   string    `json:"checksum"`
	UpdatedAt  time.Time `json:"updated_at"`
	ParseError string    `json:"parse_error,omitempty"`
}

// Summary projects a Note into its list shape.
func (n *Note) Summary() NoteSummary {
	return NoteSummary{
		Path:      n.Path,
		Title:     n.Title,
		Tags:      n.Tags,
		Checksum:  n.Checksum,
		UpdatedAt: n.UpdatedAt,
	}
}

// SearchHit is one ranked search result.
type SearchHit struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Score     int       `json:"score"`
	Snippet   string    `json:"snippet,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LinkEdge is a directed wikilink edge. Target holds the raw link text as
// written; TargetPath is the resolved note path, empty while unresolved.
type LinkEdge struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	TargetPath string `json:"target_path,omitempty"`
	Display    string `json:"display,omitempty"`
}

// GraphNode is a node in the link graph. Unresolved link targets are
// first-class nodes with Resolved false and the raw link text as ID.
type GraphNode struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Resolved bool   `json:"resolved"`
}

// Graph is the directed wikilink graph over the vault, rebuilt on demand.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []LinkEdge  `json:"edges"`
}
