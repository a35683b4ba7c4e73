package api

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/syncer"
)

var mdPathRe = regexp.MustCompile(`\.md$`)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path        string         `json:"path"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Content     string         `json:"content"`
	Overwrite   bool           `json:"overwrite,omitempty"`
}

// Validate checks the request shape before any store access.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required,
			validation.Match(mdPathRe).Error("must end with .md")),
	)
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content"`
	Mode    string `json:"mode"`
}

// Validate checks the request shape before any store access.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Mode, validation.Required,
			validation.In(string(notestore.ModeAppend), string(notestore.ModeReplace))),
	)
}

// SyncRequest carries a batch of external records to mirror into the vault.
type SyncRequest struct {
	Records []syncer.Record `json:"records"`
}
