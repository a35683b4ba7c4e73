// Package index maintains an in-memory SQLite corpus over the vault for
// search and graph queries. The index is a pure cache: it is rebuilt lazily
// from the note store whenever a write (or an external edit reported by the
// watcher) has invalidated it, and it is never persisted: the file tree
// stays the single source of truth.
package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tbrandt/othala/internal/graph"
	"github.com/tbrandt/othala/internal/models"
	"github.com/tbrandt/othala/internal/notestore"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	stem       TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	body       TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS links (
	source   TEXT NOT NULL,
	target   TEXT NOT NULL,
	display  TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0,
	UNIQUE(source, target)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);
`

// Index wraps an in-memory SQLite database rebuilt on demand from the note
// store.
type Index struct {
	store *notestore.Store

	mu    sync.Mutex
	conn  *sql.DB
	dirty bool
}

// Verify Index feeds the graph builder.
var _ graph.Source = (*Index)(nil)

// dbSeq keeps in-memory databases distinct when several indexes live in
// one process.
var dbSeq atomic.Uint64

// Open creates the in-memory database and applies the schema. The index
// starts dirty so the first query triggers a full build.
func Open(store *notestore.Store) (*Index, error) {
	// cache=shared keeps the in-memory database alive across pooled
	// connections.
	dsn := fmt.Sprintf("file:othala-index-%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open: %w", err)
	}
	// One connection so the shared in-memory db is never dropped.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &Index{store: store, conn: conn, dirty: true}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.conn.Close()
}

// Invalidate marks the index stale. The next query rebuilds it from disk.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.dirty = true
	ix.mu.Unlock()
}

// ensureFresh rebuilds the corpus when a write has invalidated it. Callers
// must hold ix.mu.
func (ix *Index) ensureFresh() error {
	if !ix.dirty {
		return nil
	}
	if err := ix.rebuild(); err != nil {
		return err
	}
	ix.dirty = false
	return nil
}

// rebuild repopulates the notes and links tables from the current vault
// contents inside one transaction.
func (ix *Index) rebuild() error {
	sums, err := ix.store.List("", notestore.SortByPath)
	if err != nil {
		return err
	}

	tx, err := ix.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM notes`); err != nil {
		return fmt.Errorf("index: clear notes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}

	noteStmt, err := tx.Prepare(`
		INSERT INTO notes (path, title, stem, tags, body, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare note insert: %w", err)
	}
	defer noteStmt.Close()

	linkStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO links (source, target, display, position)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for _, sum := range sums {
		note, err := ix.store.Get(sum.Path)
		if err != nil {
			// Malformed or vanished files stay out of the corpus; List
			// already surfaces their parse errors.
			continue
		}
		tagsJSON, _ := json.Marshal(note.Tags)
		if _, err := noteStmt.Exec(note.Path, note.Title, notestore.Stem(note.Path),
			string(tagsJSON), note.Body, note.Checksum, note.UpdatedAt); err != nil {
			return fmt.Errorf("index: insert note: %w", err)
		}
		for pos, l := range graph.ExtractLinks(note.Body) {
			if _, err := linkStmt.Exec(note.Path, l.Target, l.Display, pos); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// NoteSummaries returns the indexed notes, rebuilding first if stale.
func (ix *Index) NoteSummaries() ([]models.NoteSummary, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.ensureFresh(); err != nil {
		return nil, err
	}

	rows, err := ix.conn.Query(`SELECT path, title, tags, checksum, updated_at FROM notes ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: note summaries: %w", err)
	}
	defer rows.Close()

	var out []models.NoteSummary
	for rows.Next() {
		var n models.NoteSummary
		var tagsJSON string
		var updated time.Time
		if err := rows.Scan(&n.Path, &n.Title, &tagsJSON, &n.Checksum, &updated); err != nil {
			return nil, err
		}
		n.UpdatedAt = updated
		_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
		out = append(out, n)
	}
	return out, rows.Err()
}

// Edges returns every extracted wikilink edge, unresolved, in source order.
func (ix *Index) Edges() ([]models.LinkEdge, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.ensureFresh(); err != nil {
		return nil, err
	}

	rows, err := ix.conn.Query(`SELECT source, target, display FROM links ORDER BY source, position`)
	if err != nil {
		return nil, fmt.Errorf("index: edges: %w", err)
	}
	defer rows.Close()

	var out []models.LinkEdge
	for rows.Next() {
		var e models.LinkEdge
		if err := rows.Scan(&e.Source, &e.Target, &e.Display); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
