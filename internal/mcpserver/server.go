// Package mcpserver is the tool gateway: it exposes the vault operations
// as named, schema-validated MCP tools over stdio. One call is fully
// processed before the next is read, so callers see strict request order.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/service"
	"github.com/tbrandt/othala/internal/syncer"
)

// Server wraps the MCP server with the Othala tool set.
type Server struct {
	mcp *server.MCPServer
	svc *service.Service
}

// New creates the gateway with every tool registered.
func New(svc *service.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a markdown note with YAML frontmatter at the given vault-relative path. "+
			"Fails if the note exists unless overwrite is set."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path ending in .md")),
		mcp.WithObject("frontmatter", mcp.Description("Flat mapping of frontmatter keys to scalars or lists of scalars")),
		mcp.WithString("content", mcp.Description("Markdown body")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace an existing note at the path")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Append to or replace the body of an existing note. Frontmatter is preserved."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content to apply")),
		mcp.WithString("mode", mcp.Required(), mcp.Description("append or replace"),
			mcp.Enum(string(notestore.ModeAppend), string(notestore.ModeReplace))),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read a note's frontmatter and body."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("search_vault",
		mcp.WithDescription("Fuzzy search over note titles, tags, and bodies. "+
			"Title matches rank above tag matches, tag matches above body matches."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchVault)

	s.mcp.AddTool(mcp.NewTool("create_link",
		mcp.WithDescription("Insert a [[wikilink]] to one note into another note's body. "+
			"Skipped if the same link text is already present."),
		mcp.WithString("fromPath", mcp.Required(), mcp.Description("Note that receives the link")),
		mcp.WithString("toPath", mcp.Required(), mcp.Description("Note the link points at")),
		mcp.WithString("text", mcp.Description("Optional display text for the link")),
	), s.createLink)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Build the wikilink graph. With rootPath, only the neighborhood reachable "+
			"within depth hops (links and backlinks) is returned. Unresolved targets are nodes with resolved=false."),
		mcp.WithString("rootPath", mcp.Description("Optional note path (or title) to center the graph on")),
		mcp.WithNumber("depth", mcp.Description("Hop limit when rootPath is set (default 1)")),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("List the notes whose wikilinks resolve to the given note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("apply_template",
		mcp.WithDescription("Render a template from the vault's Templates/ folder with {{variable}} "+
			"substitution and write the result to targetPath. Unmatched placeholders stay verbatim."),
		mcp.WithString("templateName", mcp.Required(), mcp.Description("Template name (filename stem under Templates/)")),
		mcp.WithString("targetPath", mcp.Required(), mcp.Description("Vault-relative path for the rendered note")),
		mcp.WithObject("variables", mcp.Description("Placeholder values")),
	), s.applyTemplate)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List note summaries, optionally restricted to a folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list")),
		mcp.WithString("sortBy", mcp.Description("Sort field"),
			mcp.Enum(notestore.SortByPath, notestore.SortByTitle, notestore.SortByModified)),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("sync_record",
		mcp.WithDescription("Idempotently mirror an external record (client, project, meeting, insight) "+
			"into its vault note: creates from template on first sync, updates frontmatter and preserves "+
			"the body on re-sync, and auto-links related notes."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity type"),
			mcp.Enum("client", "project", "meeting", "insight")),
		mcp.WithString("id", mcp.Required(), mcp.Description("External id of the record")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name, used for the note filename")),
		mcp.WithObject("fields", mcp.Description("Additional record attributes (e.g. clientId, date, status)")),
	), s.syncRecord)

	s.mcp.AddTool(mcp.NewTool("sync_batch",
		mcp.WithDescription("Sync a list of external records. Records whose names escape the vault are "+
			"skipped; other failures are reported per record without aborting the batch."),
		mcp.WithArray("records", mcp.Required(),
			mcp.Description("Records to sync, each an object with type, id, name, and optional fields")),
	), s.syncBatch)

	s.mcp.AddTool(mcp.NewTool("vault_health",
		mcp.WithDescription("Assess the vault: broken wikilinks, orphaned notes, parse errors, tag usage."),
	), s.vaultHealth)

	s.mcp.AddTool(mcp.NewTool("vault_repair",
		mcp.WithDescription("Fix repairable vault issues: rewrite broken wikilinks to a closely matching "+
			"note, normalize frontmatter tags, and add missing title keys. Set dryRun to preview "+
			"the changes without writing."),
		mcp.WithBoolean("dryRun", mcp.Description("Report the changes without applying them")),
	), s.vaultRepair)

	s.mcp.AddResource(
		mcp.NewResource("othala://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical markdown note format for this vault."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the gateway on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

// syncRecord and syncBatch share record decoding with the REST surface.
func recordFromArgs(args map[string]any) syncer.Record {
	rec := syncer.Record{}
	if v, ok := args["type"].(string); ok {
		rec.Type = v
	}
	if v, ok := args["id"].(string); ok {
		rec.ID = v
	}
	if v, ok := args["name"].(string); ok {
		rec.Name = v
	}
	if raw, ok := args["fields"].(map[string]any); ok {
		rec.Fields = make(map[string]string, len(raw))
		for k, v := range raw {
			if sv, ok := v.(string); ok {
				rec.Fields[k] = sv
			}
		}
	}
	return rec
}
