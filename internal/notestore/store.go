// Package notestore implements CRUD over markdown notes rooted at the vault
// path. The vault file tree is the source of truth; every read goes to
// disk.
package notestore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tbrandt/othala/internal/apperr"
	"github.com/tbrandt/othala/internal/checksum"
	"github.com/tbrandt/othala/internal/frontmatter"
	"github.com/tbrandt/othala/internal/models"
	"github.com/tbrandt/othala/internal/storage"
)

// UpdateMode selects how Update applies new content to a note body.
type UpdateMode string

const (
	ModeAppend  UpdateMode = "append"
	ModeReplace UpdateMode = "replace"
)

// Sort fields accepted by List.
const (
	SortByPath     = "path"
	SortByTitle    = "title"
	SortByModified = "modified"
)

// Store exposes note-level operations over a storage provider.
type Store struct {
	fs storage.Provider
}

// New creates a Store over the given provider.
func New(fs storage.Provider) *Store {
	return &Store{fs: fs}
}

// Provider returns the underlying storage, for components that need raw
// file access within the same sandbox (templates, watcher).
func (s *Store) Provider() storage.Provider { return s.fs }

// Create writes a new note. An existing note at path is a conflict unless
// overwrite is set.
func (s *Store) Create(path string, fm *frontmatter.Map, body string, overwrite bool) (*models.Note, error) {
	exists, err := s.fs.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists && !overwrite {
		return nil, fmt.Errorf("notestore: create %s: %w", path, apperr.ErrConflict)
	}
	data := frontmatter.Serialize(fm, body)
	if err := s.fs.Write(path, data); err != nil {
		return nil, err
	}
	return s.build(path, data)
}

// Update applies content to an existing note's body, keeping its
// frontmatter. ModeAppend adds content after the current body, ModeReplace
// swaps the body out entirely.
func (s *Store) Update(path, content string, mode UpdateMode) (*models.Note, error) {
	raw, err := s.fs.Read(path)
	if err != nil {
		return nil, err
	}
	fm, body, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeAppend:
		if body != "" && !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		body += content
	case ModeReplace:
		body = content
	default:
		return nil, fmt.Errorf("notestore: update mode %q: %w", mode, apperr.ErrInvalidArgument)
	}

	data := frontmatter.Serialize(fm, body)
	if err := s.fs.Write(path, data); err != nil {
		return nil, err
	}
	return s.build(path, data)
}

// Get reads and parses a note.
func (s *Store) Get(path string) (*models.Note, error) {
	raw, err := s.fs.Read(path)
	if err != nil {
		return nil, err
	}
	return s.build(path, raw)
}

// List returns summaries for every note under folder (whole vault when
// empty), re-scanning the directory on each call. A note with malformed
// frontmatter is still listed, carrying its parse error, so broken files
// surface rather than vanish.
func (s *Store) List(folder, sortBy string) ([]models.NoteSummary, error) {
	infos, err := s.fs.List(folder)
	if err != nil {
		return nil, err
	}

	out := make([]models.NoteSummary, 0, len(infos))
	for _, info := range infos {
		raw, err := s.fs.Read(info.Path)
		if err != nil {
			continue // removed between scan and read
		}
		fm, body, perr := frontmatter.Parse(raw)
		sum := models.NoteSummary{
			Path:      info.Path,
			Checksum:  checksum.Sum(raw),
			UpdatedAt: info.UpdatedAt,
		}
		if perr != nil {
			sum.Title = Stem(info.Path)
			sum.ParseError = perr.Error()
		} else {
			sum.Title = deriveTitle(info.Path, fm, body)
			sum.Tags = deriveTags(fm, body)
		}
		out = append(out, sum)
	}

	switch sortBy {
	case SortByTitle:
		sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	case SortByModified:
		sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	case SortByPath, "":
		sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	default:
		return nil, fmt.Errorf("notestore: sort field %q: %w", sortBy, apperr.ErrInvalidArgument)
	}
	return out, nil
}

// build assembles a Note from raw file bytes.
func (s *Store) build(path string, raw []byte) (*models.Note, error) {
	fm, body, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, err
	}
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	return &models.Note{
		Path:        path,
		Title:       deriveTitle(path, fm, body),
		Frontmatter: fm,
		Body:        body,
		Tags:        deriveTags(fm, body),
		Checksum:    checksum.Sum(raw),
		UpdatedAt:   info.UpdatedAt,
	}, nil
}
