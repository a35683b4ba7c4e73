package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/tbrandt/othala/internal/models"
)

// Per-field weights. A title hit always outranks any number of tag hits for
// a single-token query, and a tag hit outranks a body hit.
const (
	weightTitle = 4
	weightTag   = 2
	weightBody  = 1
)

const defaultLimit = 20

// Search runs a case-insensitive token match over title, tags, and body.
// Every query token scores independently per field and scores sum, so
// ranking favors title matches over tag matches over body matches; ties
// break by most recent modification.
func (ix *Index) Search(query string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.ensureFresh(); err != nil {
		return nil, err
	}

	var score strings.Builder
	var args []any
	for i, tok := range tokens {
		like := "%" + escapeLike(tok) + "%"
		if i > 0 {
			score.WriteString(" + ")
		}
		score.WriteString(fmt.Sprintf(
			`(CASE WHEN lower(title) LIKE ? ESCAPE '\' THEN %d ELSE 0 END)
			 + (CASE WHEN lower(tags) LIKE ? ESCAPE '\' THEN %d ELSE 0 END)
			 + (CASE WHEN lower(body) LIKE ? ESCAPE '\' THEN %d ELSE 0 END)`,
			weightTitle, weightTag, weightBody))
		args = append(args, like, like, like)
	}
	args = append(args, limit)

	q := fmt.Sprintf(`
		SELECT path, title, body, score, updated_at FROM (
			SELECT path, title, body, updated_at, %s AS score FROM notes
		)
		WHERE score > 0
		ORDER BY score DESC, updated_at DESC
		LIMIT ?`, score.String())

	rows, err := ix.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchHit
	for rows.Next() {
		var h models.SearchHit
		var body string
		var updated time.Time
		if err := rows.Scan(&h.Path, &h.Title, &body, &h.Score, &updated); err != nil {
			return nil, err
		}
		h.UpdatedAt = updated
		h.Snippet = snippet(body, tokens)
		out = append(out, h)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet returns a short window of body text around the first token hit.
func snippet(body string, tokens []string) string {
	const window = 120
	lower := strings.ToLower(body)
	idx := -1
	for _, tok := range tokens {
		if i := strings.Index(lower, tok); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	if idx < 0 {
		if len(body) > window {
			return body[:window] + "..."
		}
		return body
	}
	start := idx - window/2
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > len(body) {
		end = len(body)
	}
	snip := strings.TrimSpace(body[start:end])
	if start > 0 {
		snip = "..." + snip
	}
	if end < len(body) {
		snip += "..."
	}
	return snip
}
