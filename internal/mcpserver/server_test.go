package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tbrandt/othala/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	vaultDir, svc := testutil.TestService(t)
	return New(svc), vaultDir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct call-tool test helper, so handlers are invoked
	// directly.
	var result *mcp.CallToolResult
	var err error
	switch name {
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "update_note":
		result, err = srv.updateNote(ctx, req)
	case "get_note":
		result, err = srv.getNote(ctx, req)
	case "search_vault":
		result, err = srv.searchVault(ctx, req)
	case "create_link":
		result, err = srv.createLink(ctx, req)
	case "get_graph":
		result, err = srv.getGraph(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "apply_template":
		result, err = srv.applyTemplate(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "sync_record":
		result, err = srv.syncRecord(ctx, req)
	case "sync_batch":
		result, err = srv.syncBatch(ctx, req)
	case "vault_health":
		result, err = srv.vaultHealth(ctx, req)
	case "vault_repair":
		result, err = srv.vaultRepair(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeResult(t *testing.T, r *mcp.CallToolResult, into any) {
	t.Helper()
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
	if err := json.Unmarshal([]byte(resultText(r)), into); err != nil {
		t.Fatalf("decode result: %v\n%s", err, resultText(r))
	}
}

func errorCode(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if !r.IsError {
		t.Fatalf("expected error result, got %s", resultText(r))
	}
	var e struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &e); err != nil {
		t.Fatalf("decode error payload: %v\n%s", err, resultText(r))
	}
	return e.Code
}

func TestCreateAndGetNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{
		"path":    "Clients/Acme.md",
		"content": "# Acme\nA client.",
		"frontmatter": map[string]any{
			"title": "Acme Corp",
			"tags":  []any{"client"},
		},
	})
	var created struct {
		Path  string `json:"path"`
		Title string `json:"title"`
	}
	decodeResult(t, r, &created)
	if created.Path != "Clients/Acme.md" || created.Title != "Acme Corp" {
		t.Errorf("created = %+v", created)
	}

	r = callTool(t, srv, "get_note", map[string]any{"path": "Clients/Acme.md"})
	var note struct {
		Body        string         `json:"body"`
		Frontmatter map[string]any `json:"frontmatter"`
	}
	decodeResult(t, r, &note)
	if note.Body != "# Acme\nA client." {
		t.Errorf("body = %q", note.Body)
	}
	if note.Frontmatter["title"] != "Acme Corp" {
		t.Errorf("frontmatter = %v", note.Frontmatter)
	}
}

func TestCreateNote_Validation(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{"path": "no-extension"})
	if code := errorCode(t, r); code != "INVALID_ARGUMENT" {
		t.Errorf("code = %q", code)
	}

	r = callTool(t, srv, "create_note", map[string]any{"path": "../escape.md"})
	if code := errorCode(t, r); code != "PATH_ESCAPES_VAULT" {
		t.Errorf("code = %q", code)
	}
}

func TestCreateNote_Conflict(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"path": "a.md", "content": "one"})

	r := callTool(t, srv, "create_note", map[string]any{"path": "a.md", "content": "two"})
	if code := errorCode(t, r); code != "DUPLICATE_NOTE" {
		t.Errorf("code = %q", code)
	}

	r = callTool(t, srv, "create_note", map[string]any{"path": "a.md", "content": "two", "overwrite": true})
	if r.IsError {
		t.Errorf("overwrite failed: %s", resultText(r))
	}
}

func TestUpdateNote_ModeValidation(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"path": "a.md", "content": "start"})

	r := callTool(t, srv, "update_note", map[string]any{"path": "a.md", "content": "more", "mode": "prepend"})
	if code := errorCode(t, r); code != "INVALID_ARGUMENT" {
		t.Errorf("code = %q", code)
	}

	r = callTool(t, srv, "update_note", map[string]any{"path": "a.md", "content": "more", "mode": "append"})
	if r.IsError {
		t.Errorf("append failed: %s", resultText(r))
	}
}

func TestGetNote_Missing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_note", map[string]any{"path": "nope.md"})
	if code := errorCode(t, r); code != "NOTE_NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}

func TestSearchVault(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{
		"path":        "a.md",
		"frontmatter": map[string]any{"title": "Quarterly Review"},
		"content":     "numbers",
	})

	r := callTool(t, srv, "search_vault", map[string]any{"query": "quarterly"})
	var res struct {
		Results []struct {
			Path string `json:"path"`
		} `json:"results"`
	}
	decodeResult(t, r, &res)
	if len(res.Results) != 1 || res.Results[0].Path != "a.md" {
		t.Errorf("results = %v", res.Results)
	}
}

func TestCreateLinkAndBacklinks(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"path": "from.md", "content": "start"})
	callTool(t, srv, "create_note", map[string]any{
		"path":        "to.md",
		"frontmatter": map[string]any{"title": "Target"},
	})

	r := callTool(t, srv, "create_link", map[string]any{"fromPath": "from.md", "toPath": "to.md"})
	if r.IsError {
		t.Fatalf("create_link: %s", resultText(r))
	}

	r = callTool(t, srv, "get_backlinks", map[string]any{"path": "to.md"})
	var res struct {
		Backlinks []struct {
			Path string `json:"path"`
		} `json:"backlinks"`
	}
	decodeResult(t, r, &res)
	if len(res.Backlinks) != 1 || res.Backlinks[0].Path != "from.md" {
		t.Errorf("backlinks = %v", res.Backlinks)
	}
}

func TestGetGraph_UnresolvedNode(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"path": "a.md", "content": "see [[Missing Note]]"})

	r := callTool(t, srv, "get_graph", map[string]any{})
	var g struct {
		Nodes []struct {
			ID       string `json:"id"`
			Resolved bool   `json:"resolved"`
		} `json:"nodes"`
	}
	decodeResult(t, r, &g)
	foundUnresolved := false
	for _, n := range g.Nodes {
		if n.ID == "Missing Note" && !n.Resolved {
			foundUnresolved = true
		}
	}
	if !foundUnresolved {
		t.Errorf("nodes = %v, want unresolved Missing Note", g.Nodes)
	}
}

func TestApplyTemplate(t *testing.T) {
	srv, vaultDir := testServer(t)
	testutil.WriteNote(t, vaultDir, "Templates/Daily.md", "---\ntype: daily\n---\n# {{date}}\n")

	r := callTool(t, srv, "apply_template", map[string]any{
		"templateName": "daily",
		"targetPath":   "Journal/2024-01-15.md",
		"variables":    map[string]any{"date": "2024-01-15"},
	})
	if r.IsError {
		t.Fatalf("apply_template: %s", resultText(r))
	}

	r = callTool(t, srv, "get_note", map[string]any{"path": "Journal/2024-01-15.md"})
	var note struct {
		Body string `json:"body"`
	}
	decodeResult(t, r, &note)
	if note.Body != "# 2024-01-15\n" {
		t.Errorf("body = %q", note.Body)
	}
}

func TestApplyTemplate_Missing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "apply_template", map[string]any{
		"templateName": "nope",
		"targetPath":   "out.md",
	})
	if code := errorCode(t, r); code != "TEMPLATE_NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}

func TestSyncRecord_EndToEnd(t *testing.T) {
	srv, vaultDir := testServer(t)
	testutil.WriteNote(t, vaultDir, "Templates/Client.md", "---\ntype: client\n---\n# {{name}}\n")
	testutil.WriteNote(t, vaultDir, "Templates/Project.md", "---\ntype: project\n---\n# {{name}}\n")

	r := callTool(t, srv, "sync_record", map[string]any{
		"type": "client", "id": "c1", "name": "Acme Corp",
	})
	var res struct {
		Path    string `json:"path"`
		Created bool   `json:"created"`
	}
	decodeResult(t, r, &res)
	if !res.Created || res.Path != "Clients/Acme Corp.md" {
		t.Errorf("res = %+v", res)
	}

	r = callTool(t, srv, "sync_record", map[string]any{
		"type": "project", "id": "p1", "name": "Kickoff",
		"fields": map[string]any{"clientId": "c1"},
	})
	decodeResult(t, r, &res)
	if res.Path != "Projects/Acme Corp/Kickoff.md" {
		t.Errorf("path = %q", res.Path)
	}

	r = callTool(t, srv, "get_note", map[string]any{"path": res.Path})
	var note struct {
		Body string `json:"body"`
	}
	decodeResult(t, r, &note)
	if n := strings.Count(note.Body, "[[Acme Corp]]"); n != 1 {
		t.Errorf("auto-link count = %d in %q", n, note.Body)
	}

	// Re-sync reports created=false and leaves one note.
	r = callTool(t, srv, "sync_record", map[string]any{
		"type": "client", "id": "c1", "name": "Acme Corp",
	})
	decodeResult(t, r, &res)
	if res.Created {
		t.Error("re-sync reported created")
	}
}

func TestSyncRecord_Validation(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "sync_record", map[string]any{"type": "invoice", "id": "x", "name": "X"})
	if code := errorCode(t, r); code != "INVALID_ARGUMENT" {
		t.Errorf("code = %q", code)
	}
}

func TestSyncBatch(t *testing.T) {
	srv, vaultDir := testServer(t)
	testutil.WriteNote(t, vaultDir, "Templates/Client.md", "---\ntype: client\n---\n# {{name}}\n")

	r := callTool(t, srv, "sync_batch", map[string]any{
		"records": []any{
			map[string]any{"type": "client", "id": "c1", "name": "One"},
			map[string]any{"type": "client", "id": "c2", "name": "../../escape"},
		},
	})
	var res struct {
		Results []struct {
			ID      string `json:"id"`
			Created bool   `json:"created"`
			Skipped bool   `json:"skipped"`
		} `json:"results"`
	}
	decodeResult(t, r, &res)
	if len(res.Results) != 2 {
		t.Fatalf("results = %v", res.Results)
	}
	if !res.Results[0].Created || !res.Results[1].Skipped {
		t.Errorf("results = %+v", res.Results)
	}
}

func TestSyncBatch_EmptyRecords(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "sync_batch", map[string]any{})
	if code := errorCode(t, r); code != "INVALID_ARGUMENT" {
		t.Errorf("code = %q", code)
	}
}

func TestListNotes(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"path": "b.md"})
	callTool(t, srv, "create_note", map[string]any{"path": "a.md"})

	r := callTool(t, srv, "list_notes", map[string]any{})
	var res struct {
		Notes []struct {
			Path string `json:"path"`
		} `json:"notes"`
		Total int `json:"total"`
	}
	decodeResult(t, r, &res)
	if res.Total != 2 || res.Notes[0].Path != "a.md" {
		t.Errorf("res = %+v", res)
	}
}

func TestVaultHealth(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"path": "a.md", "content": "see [[Nowhere]]"})

	r := callTool(t, srv, "vault_health", nil)
	var report struct {
		TotalNotes  int `json:"total_notes"`
		BrokenLinks []struct {
			Target string `json:"target"`
		} `json:"broken_links"`
	}
	decodeResult(t, r, &report)
	if report.TotalNotes != 1 || len(report.BrokenLinks) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestVaultRepair(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{
		"path":        "Target Note.md",
		"frontmatter": map[string]any{"title": "Target Note"},
	})
	callTool(t, srv, "create_note", map[string]any{
		"path":        "a.md",
		"content":     "see [[Target Note2]]",
		"frontmatter": map[string]any{"title": "A"},
	})

	r := callTool(t, srv, "vault_repair", map[string]any{"dryRun": true})
	var report struct {
		DryRun  bool `json:"dry_run"`
		Changes []struct {
			Action string `json:"action"`
			Path   string `json:"path"`
		} `json:"changes"`
	}
	decodeResult(t, r, &report)
	if !report.DryRun || len(report.Changes) != 1 {
		t.Fatalf("report = %+v", report)
	}

	r = callTool(t, srv, "vault_repair", nil)
	decodeResult(t, r, &report)
	if report.DryRun || len(report.Changes) != 1 || report.Changes[0].Path != "a.md" {
		t.Fatalf("report = %+v", report)
	}

	r = callTool(t, srv, "get_note", map[string]any{"path": "a.md"})
	var note struct {
		Body string `json:"body"`
	}
	decodeResult(t, r, &note)
	if note.Body != "see [[Target Note]]" {
		t.Errorf("body = %q", note.Body)
	}
}
