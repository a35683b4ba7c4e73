// Package template loads named note templates from the vault's Templates/
// folder and renders them with {{variable}} substitution.
package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tbrandt/othala/internal/apperr"
	"github.com/tbrandt/othala/internal/frontmatter"
	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/storage"
)

// Folder is the vault subdirectory templates are loaded from.
const Folder = "Templates"

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Template is a named frontmatter+body pattern. Immutable once loaded.
type Template struct {
	Name        string
	Frontmatter *frontmatter.Map
	Body        string
}

// Engine lazily loads templates through the vault sandbox and caches them
// for the process lifetime. Reload drops the cache.
type Engine struct {
	fs storage.Provider

	mu    sync.Mutex
	cache map[string]*Template
}

// NewEngine creates an Engine reading from the given provider.
func NewEngine(fs storage.Provider) *Engine {
	return &Engine{fs: fs, cache: make(map[string]*Template)}
}

// Load returns the named template, reading it from Templates/ on cache
// miss. Matching on the filename stem is case-insensitive; a trailing .md
// in name is accepted.
func (e *Engine) Load(name string) (*Template, error) {
	key := strings.ToLower(strings.TrimSuffix(name, ".md"))

	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.cache[key]; ok {
		return t, nil
	}

	infos, err := e.fs.List(Folder)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if strings.ToLower(notestore.Stem(info.Path)) != key {
			continue
		}
		raw, err := e.fs.Read(info.Path)
		if err != nil {
			return nil, err
		}
		fm, body, err := frontmatter.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("template: %s: %w", info.Path, err)
		}
		t := &Template{Name: notestore.Stem(info.Path), Frontmatter: fm, Body: body}
		e.cache[key] = t
		return t, nil
	}
	return nil, fmt.Errorf("template: %q: %w", name, apperr.ErrTemplateNotFound)
}

// Reload drops the cache so subsequent loads re-read from disk.
func (e *Engine) Reload() {
	e.mu.Lock()
	e.cache = make(map[string]*Template)
	e.mu.Unlock()
}

// Render substitutes variables into a copy of the template's frontmatter
// values and body. Placeholders without a matching variable stay verbatim
// so a human can fill them in later; extra variables are ignored.
func Render(t *Template, vars map[string]string) (*frontmatter.Map, string) {
	fm := frontmatter.NewMap()
	if t.Frontmatter != nil {
		for _, k := range t.Frontmatter.Keys() {
			v, _ := t.Frontmatter.Get(k)
			fm.Set(k, substituteValue(v, vars))
		}
	}
	return fm, substitute(t.Body, vars)
}

func substituteValue(v frontmatter.Value, vars map[string]string) frontmatter.Value {
	switch v.Kind() {
	case frontmatter.KindString:
		return frontmatter.String(substitute(v.AsString(), vars))
	case frontmatter.KindList:
		items := make([]frontmatter.Value, 0, len(v.Items()))
		for _, item := range v.Items() {
			items = append(items, substituteValue(item, vars))
		}
		return frontmatter.List(items...)
	default:
		return v
	}
}

func substitute(s string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if val, ok := vars[key]; ok {
			return val
		}
		return m
	})
}
