// Package apperr defines the recoverable per-call error taxonomy shared by
// every surface (MCP tools, REST API, sync batches).
package apperr

import "errors"

var (
	ErrNotFound           = errors.New("note not found")
	ErrConflict           = errors.New("note already exists")
	ErrPathEscapesVault   = errors.New("path escapes vault root")
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrInvalidArgument    = errors.New("invalid argument")
)

// Wire codes returned to external callers in {code, message} error payloads.
const (
	CodeNotFound           = "NOTE_NOT_FOUND"
	CodeConflict           = "DUPLICATE_NOTE"
	CodePathEscapesVault   = "PATH_ESCAPES_VAULT"
	CodeInvalidFrontmatter = "INVALID_FRONTMATTER"
	CodeTemplateNotFound   = "TEMPLATE_NOT_FOUND"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeInternal           = "INTERNAL"
)

// Code maps an error to its stable wire code. Unknown errors map to INTERNAL.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrPathEscapesVault):
		return CodePathEscapesVault
	case errors.Is(err, ErrInvalidFrontmatter):
		return CodeInvalidFrontmatter
	case errors.Is(err, ErrTemplateNotFound):
		return CodeTemplateNotFound
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	default:
		return CodeInternal
	}
}
