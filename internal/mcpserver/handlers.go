package mcpserver

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tbrandt/othala/internal/frontmatter"
	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/syncer"
)

var mdPathRe = regexp.MustCompile(`\.md$`)

type createNoteArgs struct {
	Path      string
	Content   string
	Overwrite bool
}

func (a createNoteArgs) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Path, validation.Required,
			validation.Match(mdPathRe).Error("must end with .md")),
	)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	a := createNoteArgs{
		Path:      req.GetString("path", ""),
		Content:   req.GetString("content", ""),
		Overwrite: req.GetBool("overwrite", false),
	}
	if err := a.Validate(); err != nil {
		return argError(err.Error()), nil
	}

	var fm *frontmatter.Map
	if raw, ok := args["frontmatter"].(map[string]any); ok {
		var err error
		fm, err = frontmatter.MapFromAny(raw)
		if err != nil {
			return argError(err.Error()), nil
		}
	} else {
		fm = frontmatter.NewMap()
	}

	note, err := s.svc.CreateNote(ctx, a.Path, fm, a.Content, a.Overwrite)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(note.Summary()), nil
}

type updateNoteArgs struct {
	Path    string
	Content string
	Mode    string
}

func (a updateNoteArgs) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Path, validation.Required),
		validation.Field(&a.Content, validation.Required),
		validation.Field(&a.Mode, validation.Required,
			validation.In(string(notestore.ModeAppend), string(notestore.ModeReplace))),
	)
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := updateNoteArgs{
		Path:    req.GetString("path", ""),
		Content: req.GetString("content", ""),
		Mode:    req.GetString("mode", ""),
	}
	if err := a.Validate(); err != nil {
		return argError(err.Error()), nil
	}

	note, err := s.svc.UpdateNote(ctx, a.Path, a.Content, notestore.UpdateMode(a.Mode))
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(note.Summary()), nil
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return argError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(note), nil
}

type searchArgs struct {
	Query string
	Limit int
}

func (a searchArgs) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Query, validation.Required),
		validation.Field(&a.Limit, validation.Min(0), validation.Max(200)),
	)
}

func (s *Server) searchVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := searchArgs{
		Query: req.GetString("query", ""),
		Limit: req.GetInt("limit", 0),
	}
	if err := a.Validate(); err != nil {
		return argError(err.Error()), nil
	}
	hits, err := s.svc.Search(ctx, a.Query, a.Limit)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"results": hits}), nil
}

type createLinkArgs struct {
	FromPath string
	ToPath   string
	Text     string
}

func (a createLinkArgs) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.FromPath, validation.Required),
		validation.Field(&a.ToPath, validation.Required),
	)
}

func (s *Server) createLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := createLinkArgs{
		FromPath: req.GetString("fromPath", ""),
		ToPath:   req.GetString("toPath", ""),
		Text:     req.GetString("text", ""),
	}
	if err := a.Validate(); err != nil {
		return argError(err.Error()), nil
	}
	note, err := s.svc.CreateLink(ctx, a.FromPath, a.ToPath, a.Text)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"linked": true, "path": note.Path}), nil
}

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root := req.GetString("rootPath", "")
	depth := req.GetInt("depth", 0)
	if depth < 0 {
		return argError("depth must not be negative"), nil
	}
	g, err := s.svc.Graph(ctx, root, depth)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(g), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return argError(err.Error()), nil
	}
	notes, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"backlinks": notes}), nil
}

type applyTemplateArgs struct {
	TemplateName string
	TargetPath   string
}

func (a applyTemplateArgs) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.TemplateName, validation.Required),
		validation.Field(&a.TargetPath, validation.Required,
			validation.Match(mdPathRe).Error("must end with .md")),
	)
}

func (s *Server) applyTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := applyTemplateArgs{
		TemplateName: req.GetString("templateName", ""),
		TargetPath:   req.GetString("targetPath", ""),
	}
	if err := a.Validate(); err != nil {
		return argError(err.Error()), nil
	}

	vars := make(map[string]string)
	if raw, ok := req.GetArguments()["variables"].(map[string]any); ok {
		for k, v := range raw {
			if sv, ok := v.(string); ok {
				vars[k] = sv
			}
		}
	}

	note, err := s.svc.ApplyTemplate(ctx, a.TemplateName, a.TargetPath, vars)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(note.Summary()), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")
	sortBy := req.GetString("sortBy", "")
	notes, err := s.svc.ListNotes(ctx, folder, sortBy)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"notes": notes, "total": len(notes)}), nil
}

type syncRecordArgs struct {
	Type string
	ID   string
	Name string
}

func (a syncRecordArgs) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Type, validation.Required,
			validation.In("client", "project", "meeting", "insight")),
		validation.Field(&a.ID, validation.Required),
		validation.Field(&a.Name, validation.Required),
	)
}

func (s *Server) syncRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	a := syncRecordArgs{
		Type: req.GetString("type", ""),
		ID:   req.GetString("id", ""),
		Name: req.GetString("name", ""),
	}
	if err := a.Validate(); err != nil {
		return argError(err.Error()), nil
	}

	note, res, err := s.svc.SyncRecord(ctx, recordFromArgs(args))
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{
		"path":    res.Path,
		"created": res.Created,
		"note":    note.Summary(),
	}), nil
}

func (s *Server) syncBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["records"].([]any)
	if !ok || len(raw) == 0 {
		return argError("records: cannot be blank"), nil
	}
	recs := make([]syncer.Record, 0, len(raw))
	for _, el := range raw {
		obj, ok := el.(map[string]any)
		if !ok {
			return argError("records: every element must be an object"), nil
		}
		recs = append(recs, recordFromArgs(obj))
	}
	items := s.svc.SyncBatch(ctx, recs)
	return jsonResult(map[string]any{"results": items}), nil
}

func (s *Server) vaultHealth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.VaultHealth(ctx)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(report), nil
}

func (s *Server) vaultRepair(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.RepairVault(ctx, req.GetBool("dryRun", false))
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(report), nil
}
