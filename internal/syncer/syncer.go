// Package syncer mirrors external domain records (clients, projects,
// meetings, insights) into vault notes idempotently. Each record maps to at
// most one note, found again on re-sync through the external id stored in
// its frontmatter.
package syncer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tbrandt/othala/internal/apperr"
	"github.com/tbrandt/othala/internal/frontmatter"
	"github.com/tbrandt/othala/internal/graph"
	"github.com/tbrandt/othala/internal/models"
	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/template"
)

// Engine applies sync mappings against the note store.
type Engine struct {
	notes    *notestore.Store
	tmpl     *template.Engine
	mappings map[string]Mapping
}

// NewEngine creates an Engine with the default entity mappings.
func NewEngine(notes *notestore.Store, tmpl *template.Engine) *Engine {
	return &Engine{notes: notes, tmpl: tmpl, mappings: DefaultMappings()}
}

// Result describes the outcome of syncing one record.
type Result struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
}

// Sync creates or updates the note for rec. On update, mapped frontmatter
// fields overwrite the stored ones and the body is left untouched. After
// the write, auto-link rules insert wikilinks to related notes, checked by
// substring presence so the insertion is idempotent. A missing template is
// fatal for the call.
func (e *Engine) Sync(rec Record) (*models.Note, *Result, error) {
	m, ok := e.mappings[rec.Type]
	if !ok {
		return nil, nil, fmt.Errorf("syncer: unknown entity type %q: %w", rec.Type, apperr.ErrInvalidArgument)
	}
	if rec.ID == "" {
		return nil, nil, fmt.Errorf("syncer: record has no id: %w", apperr.ErrInvalidArgument)
	}

	existing, err := e.findByID(m, rec.ID)
	if err != nil {
		return nil, nil, err
	}

	var note *models.Note
	created := false
	if existing != nil {
		note, err = e.updateExisting(m, rec, existing)
	} else {
		note, err = e.createNew(m, rec)
		created = true
	}
	if err != nil {
		return nil, nil, err
	}

	note, err = e.applyAutoLinks(m, rec, note)
	if err != nil {
		return nil, nil, err
	}
	return note, &Result{Path: note.Path, Created: created}, nil
}

// BatchItem is the per-record outcome within a batch.
type BatchItem struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Path    string `json:"path,omitempty"`
	Created bool   `json:"created,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SyncBatch syncs records one by one. A record whose name escapes the vault
// is skipped and the batch continues; other failures are reported per item
// without aborting the rest.
func (e *Engine) SyncBatch(recs []Record) []BatchItem {
	out := make([]BatchItem, 0, len(recs))
	for _, rec := range recs {
		item := BatchItem{Type: rec.Type, ID: rec.ID}
		_, res, err := e.Sync(rec)
		switch {
		case err == nil:
			item.Path = res.Path
			item.Created = res.Created
		case errors.Is(err, apperr.ErrPathEscapesVault):
			item.Skipped = true
			item.Error = err.Error()
		default:
			item.Error = err.Error()
		}
		out = append(out, item)
	}
	return out
}

// findByID scans the mapping's folder for a note whose frontmatter id
// matches. Notes that fail to parse are ignored here; they surface through
// List.
func (e *Engine) findByID(m Mapping, id string) (*models.Note, error) {
	sums, err := e.notes.List(m.Folder, notestore.SortByPath)
	if err != nil {
		return nil, err
	}
	for _, sum := range sums {
		if sum.ParseError != "" {
			continue
		}
		note, err := e.notes.Get(sum.Path)
		if err != nil {
			continue
		}
		if v, ok := note.Frontmatter.Get("id"); ok && v.Text() == id {
			return note, nil
		}
	}
	return nil, nil
}

func (e *Engine) updateExisting(m Mapping, rec Record, existing *models.Note) (*models.Note, error) {
	fm := frontmatter.NewMap()
	if existing.Frontmatter != nil {
		for _, k := range existing.Frontmatter.Keys() {
			v, _ := existing.Frontmatter.Get(k)
			fm.Set(k, v)
		}
	}
	mapped := m.MapFields(rec)
	for _, k := range mapped.Keys() {
		v, _ := mapped.Get(k)
		fm.Set(k, v)
	}
	return e.notes.Create(existing.Path, fm, existing.Body, true)
}

func (e *Engine) createNew(m Mapping, rec Record) (*models.Note, error) {
	t, err := e.tmpl.Load(m.Template)
	if err != nil {
		return nil, err
	}

	vars := map[string]string{
		"name": rec.Name,
		"id":   rec.ID,
		"type": rec.Type,
	}
	for k, v := range rec.Fields {
		vars[k] = v
	}
	fm, body := template.Render(t, vars)

	mapped := m.MapFields(rec)
	for _, k := range mapped.Keys() {
		v, _ := mapped.Get(k)
		fm.Set(k, v)
	}

	return e.notes.Create(e.notePath(m, rec), fm, body, false)
}

// notePath derives the target path: Folder[/related-title]/Name.md.
func (e *Engine) notePath(m Mapping, rec Record) string {
	parts := []string{m.Folder}
	if m.SubfolderBy != "" {
		if relID := rec.Fields[m.SubfolderBy]; relID != "" {
			for _, rule := range m.AutoLinks {
				if rule.Field != m.SubfolderBy {
					continue
				}
				if rel, _ := e.findByID(e.mappings[rule.TargetType], relID); rel != nil {
					parts = append(parts, rel.Title)
				}
			}
		}
	}
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		name = rec.ID
	}
	parts = append(parts, name+".md")
	return strings.Join(parts, "/")
}

// applyAutoLinks appends a wikilink per satisfied rule unless the exact
// link text is already present. Matching is by substring, so a link written
// with different display text is not detected; that limitation is part of
// the documented behavior.
func (e *Engine) applyAutoLinks(m Mapping, rec Record, note *models.Note) (*models.Note, error) {
	current := note
	for _, rule := range m.AutoLinks {
		relID := rec.Fields[rule.Field]
		if relID == "" {
			continue
		}
		relMapping, ok := e.mappings[rule.TargetType]
		if !ok {
			continue
		}
		rel, err := e.findByID(relMapping, relID)
		if err != nil || rel == nil {
			continue // relation target not synced yet; next sync picks it up
		}
		link := graph.Format(rel.Title, "")
		if strings.Contains(current.Body, link) {
			continue
		}
		updated, err := e.notes.Update(current.Path, link+"\n", notestore.ModeAppend)
		if err != nil {
			return nil, err
		}
		current = updated
	}
	return current, nil
}
