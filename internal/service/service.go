// Package service coordinates the vault components behind both gateways
// (MCP tools and REST API). It owns the process-lifetime caches, the
// template cache and the lazily rebuilt search index, and invalidates
// them on every write, so there is no ambient global state anywhere.
package service

import (
	"context"
	"strings"

	"github.com/tbrandt/othala/internal/frontmatter"
	"github.com/tbrandt/othala/internal/graph"
	"github.com/tbrandt/othala/internal/health"
	"github.com/tbrandt/othala/internal/index"
	"github.com/tbrandt/othala/internal/models"
	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/syncer"
	"github.com/tbrandt/othala/internal/template"
)

// Service is the integration layer over the vault.
type Service struct {
	vaultName string
	notes     *notestore.Store
	idx       *index.Index
	graphs    *graph.Builder
	tmpl      *template.Engine
	sync      *syncer.Engine
	checker   *health.Checker
	repairer  *health.Repairer
}

// New wires a Service from its components.
func New(vaultName string, notes *notestore.Store, idx *index.Index) *Service {
	tmpl := template.NewEngine(notes.Provider())
	return &Service{
		vaultName: vaultName,
		notes:     notes,
		idx:       idx,
		graphs:    graph.NewBuilder(idx),
		tmpl:      tmpl,
		sync:      syncer.NewEngine(notes, tmpl),
		checker:   health.NewChecker(notes, idx),
		repairer:  health.NewRepairer(notes, idx),
	}
}

// VaultName returns the configured display label for the vault.
func (s *Service) VaultName() string { return s.vaultName }

// CreateNote writes a new note.
func (s *Service) CreateNote(_ context.Context, path string, fm *frontmatter.Map, body string, overwrite bool) (*models.Note, error) {
	note, err := s.notes.Create(path, fm, body, overwrite)
	if err != nil {
		return nil, err
	}
	s.wrote(path)
	return note, nil
}

// UpdateNote appends to or replaces an existing note's body.
func (s *Service) UpdateNote(_ context.Context, path, content string, mode notestore.UpdateMode) (*models.Note, error) {
	note, err := s.notes.Update(path, content, mode)
	if err != nil {
		return nil, err
	}
	s.wrote(path)
	return note, nil
}

// GetNote reads a note.
func (s *Service) GetNote(_ context.Context, path string) (*models.Note, error) {
	return s.notes.Get(path)
}

// ListNotes lists note summaries, rescanning the vault.
func (s *Service) ListNotes(_ context.Context, folder, sortBy string) ([]models.NoteSummary, error) {
	return s.notes.List(folder, sortBy)
}

// Search runs a ranked query over the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.SearchHit, error) {
	return s.idx.Search(query, limit)
}

// Graph builds the link graph, optionally restricted to the neighborhood
// of root within depth hops.
func (s *Service) Graph(_ context.Context, root string, depth int) (*models.Graph, error) {
	return s.graphs.Build(root, depth)
}

// Backlinks lists the notes linking to path.
func (s *Service) Backlinks(_ context.Context, path string) ([]models.NoteSummary, error) {
	return s.graphs.Backlinks(path)
}

// CreateLink appends a wikilink to the target note into the source note's
// body, unless the same link text is already present.
func (s *Service) CreateLink(_ context.Context, fromPath, toPath, text string) (*models.Note, error) {
	target, err := s.notes.Get(toPath)
	if err != nil {
		return nil, err
	}
	from, err := s.notes.Get(fromPath)
	if err != nil {
		return nil, err
	}

	link := graph.Format(target.Title, text)
	if strings.Contains(from.Body, link) {
		return from, nil
	}
	note, err := s.notes.Update(fromPath, link+"\n", notestore.ModeAppend)
	if err != nil {
		return nil, err
	}
	s.wrote(fromPath)
	return note, nil
}

// ApplyTemplate renders a named template with variables and writes the
// result to targetPath, overwriting an existing note there.
func (s *Service) ApplyTemplate(_ context.Context, name, targetPath string, vars map[string]string) (*models.Note, error) {
	t, err := s.tmpl.Load(name)
	if err != nil {
		return nil, err
	}
	fm, body := template.Render(t, vars)
	note, err := s.notes.Create(targetPath, fm, body, true)
	if err != nil {
		return nil, err
	}
	s.wrote(targetPath)
	return note, nil
}

// SyncRecord mirrors one external record into the vault.
func (s *Service) SyncRecord(_ context.Context, rec syncer.Record) (*models.Note, *syncer.Result, error) {
	note, res, err := s.sync.Sync(rec)
	if err != nil {
		return nil, nil, err
	}
	s.wrote(note.Path)
	return note, res, nil
}

// SyncBatch mirrors a batch of records, skipping unsyncable ones.
func (s *Service) SyncBatch(_ context.Context, recs []syncer.Record) []syncer.BatchItem {
	items := s.sync.SyncBatch(recs)
	s.wrote("")
	return items
}

// VaultHealth assesses the current vault contents.
func (s *Service) VaultHealth(_ context.Context) (*health.Report, error) {
	return s.checker.Check()
}

// RepairVault fixes repairable vault issues. With dryRun set nothing is
// written and the report lists the proposed changes.
func (s *Service) RepairVault(_ context.Context, dryRun bool) (*health.RepairReport, error) {
	report, err := s.repairer.Repair(dryRun)
	if err != nil {
		return nil, err
	}
	if !dryRun && len(report.Changes) > 0 {
		s.idx.Invalidate()
	}
	return report, nil
}

// wrote records a write: the index goes stale, and a write under
// Templates/ drops the template cache.
func (s *Service) wrote(path string) {
	s.idx.Invalidate()
	if strings.HasPrefix(path, template.Folder+"/") || path == "" {
		s.tmpl.Reload()
	}
}
