package graph

import (
	"fmt"
	"strings"

	"github.com/tbrandt/othala/internal/apperr"
	"github.com/tbrandt/othala/internal/models"
	"github.com/tbrandt/othala/internal/notestore"
)

// Source supplies the current vault contents to the builder. The search
// index implements it, so the graph shares the index's rebuild cycle.
type Source interface {
	NoteSummaries() ([]models.NoteSummary, error)
	Edges() ([]models.LinkEdge, error)
}

// Builder assembles link graphs from a Source.
type Builder struct {
	src Source
}

// NewBuilder creates a Builder over src.
func NewBuilder(src Source) *Builder {
	return &Builder{src: src}
}

// resolver maps link text to note paths: case-insensitive match on note
// title or filename stem.
type resolver struct {
	byKey map[string]string
}

func newResolver(notes []models.NoteSummary) *resolver {
	r := &resolver{byKey: make(map[string]string, 2*len(notes))}
	for _, n := range notes {
		r.add(notestore.Stem(n.Path), n.Path)
		r.add(n.Title, n.Path)
		// Allow [[folder/note]] style targets too.
		r.add(strings.TrimSuffix(n.Path, ".md"), n.Path)
	}
	return r
}

func (r *resolver) add(key, path string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	if _, ok := r.byKey[key]; !ok {
		r.byKey[key] = path
	}
}

func (r *resolver) resolve(target string) (string, bool) {
	p, ok := r.byKey[strings.ToLower(strings.TrimSpace(target))]
	return p, ok
}

// Build returns the link graph. With root empty the full graph is returned;
// otherwise only the subgraph reachable from root within depth hops,
// following outgoing links and incoming backlinks alike. Unresolved targets
// are nodes with Resolved false.
func (b *Builder) Build(root string, depth int) (*models.Graph, error) {
	notes, err := b.src.NoteSummaries()
	if err != nil {
		return nil, err
	}
	edges, err := b.src.Edges()
	if err != nil {
		return nil, err
	}

	res := newResolver(notes)
	titles := make(map[string]string, len(notes))
	for _, n := range notes {
		titles[n.Path] = n.Title
	}

	// Resolve every edge once.
	resolved := make([]models.LinkEdge, len(edges))
	for i, e := range edges {
		if p, ok := res.resolve(e.Target); ok {
			e.TargetPath = p
		}
		resolved[i] = e
	}

	if root == "" {
		return assemble(notes, titles, resolved), nil
	}

	rootPath := root
	if _, ok := titles[rootPath]; !ok {
		// Accept a title or stem as the root selector.
		p, ok := res.resolve(root)
		if !ok {
			return nil, fmt.Errorf("graph: root %q: %w", root, apperr.ErrNotFound)
		}
		rootPath = p
	}
	if depth <= 0 {
		depth = 1
	}

	// Undirected BFS over node ids (paths for resolved, raw target text for
	// unresolved).
	adj := make(map[string][]string)
	for _, e := range resolved {
		to := e.TargetPath
		if to == "" {
			to = e.Target
		}
		adj[e.Source] = append(adj[e.Source], to)
		adj[to] = append(adj[to], e.Source)
	}

	reach := map[string]struct{}{rootPath: {}}
	frontier := []string{rootPath}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, nb := range adj[id] {
				if _, ok := reach[nb]; !ok {
					reach[nb] = struct{}{}
					next = append(next, nb)
				}
			}
		}
		frontier = next
	}

	var subNotes []models.NoteSummary
	for _, n := range notes {
		if _, ok := reach[n.Path]; ok {
			subNotes = append(subNotes, n)
		}
	}
	var subEdges []models.LinkEdge
	for _, e := range resolved {
		to := e.TargetPath
		if to == "" {
			to = e.Target
		}
		_, fromIn := reach[e.Source]
		_, toIn := reach[to]
		if fromIn && toIn {
			subEdges = append(subEdges, e)
		}
	}
	return assemble(subNotes, titles, subEdges), nil
}

// Backlinks returns the notes whose links resolve to path, in path order.
func (b *Builder) Backlinks(path string) ([]models.NoteSummary, error) {
	g, err := b.Build("", 0)
	if err != nil {
		return nil, err
	}
	notes, err := b.src.NoteSummaries()
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]models.NoteSummary, len(notes))
	for _, n := range notes {
		byPath[n.Path] = n
	}

	seen := make(map[string]struct{})
	var out []models.NoteSummary
	for _, e := range g.Edges {
		if e.TargetPath != path {
			continue
		}
		if _, dup := seen[e.Source]; dup {
			continue
		}
		seen[e.Source] = struct{}{}
		if n, ok := byPath[e.Source]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// assemble builds the node list: every note in scope plus a pseudo-node for
// each unresolved target.
func assemble(notes []models.NoteSummary, titles map[string]string, edges []models.LinkEdge) *models.Graph {
	g := &models.Graph{Edges: edges}
	added := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		g.Nodes = append(g.Nodes, models.GraphNode{ID: n.Path, Title: n.Title, Resolved: true})
		added[n.Path] = struct{}{}
	}
	for _, e := range edges {
		if e.TargetPath != "" {
			if _, ok := added[e.TargetPath]; !ok {
				g.Nodes = append(g.Nodes, models.GraphNode{ID: e.TargetPath, Title: titles[e.TargetPath], Resolved: true})
				added[e.TargetPath] = struct{}{}
			}
			continue
		}
		if _, ok := added[e.Target]; !ok {
			g.Nodes = append(g.Nodes, models.GraphNode{ID: e.Target, Title: e.Target, Resolved: false})
			added[e.Target] = struct{}{}
		}
	}
	return g
}
