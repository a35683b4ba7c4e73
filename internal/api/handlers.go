package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tbrandt/othala/internal/apperr"
	"github.com/tbrandt/othala/internal/frontmatter"
	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/service"
	"github.com/tbrandt/othala/internal/syncer"
)

// Handler holds API route handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after the
// route prefix). Encoded slashes from API clients are supported.
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps a component error to the right HTTP status with the
// uniform {code, message} body.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.Code(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrTemplateNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrPathEscapesVault),
		errors.Is(err, apperr.ErrInvalidFrontmatter),
		errors.Is(err, apperr.ErrInvalidArgument):
		status = http.StatusBadRequest
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody(code, "internal error"))
		return
	}
	writeJSON(w, status, errorBody(code, err.Error()))
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notes, err := h.svc.ListNotes(r.Context(), q.Get("folder"), q.Get("sort"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notes": notes,
		"total": len(notes),
	})
}

// GetNote handles GET /api/notes/*.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalidArgument, "path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalidArgument, "invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalidArgument, err.Error()))
		return
	}

	fm := frontmatter.NewMap()
	if req.Frontmatter != nil {
		var err error
		fm, err = frontmatter.MapFromAny(req.Frontmatter)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalidArgument, err.Error()))
			return
		}
	}

	note, err := h.svc.CreateNote(r.Context(), req.Path, fm, req.Content, req.Overwrite)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note.Summary())
}

// UpdateNote handles PUT /api/notes/*.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalidArgument, "invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalidArgument, err.Error()))
		return
	}

	note, err := h.svc.UpdateNote(r.Context(), path, req.Content, notestore.UpdateMode(req.Mode))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note.Summary())
}

// Search handles GET /api/search?q=...&limit=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalidArgument, "q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// Graph handles GET /api/graph?root=...&depth=...
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("root")
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))
	g, err := h.svc.Graph(r.Context(), root, depth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Backlinks handles GET /api/backlinks/*.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	notes, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": notes})
}

// SyncRecords handles POST /api/sync.
func (h *Handler) SyncRecords(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalidArgument, "invalid JSON body"))
		return
	}
	if len(req.Records) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalidArgument, "records: cannot be blank"))
		return
	}
	recs := make([]syncer.Record, len(req.Records))
	copy(recs, req.Records)
	items := h.svc.SyncBatch(r.Context(), recs)
	writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

// VaultHealth handles GET /api/health/vault.
func (h *Handler) VaultHealth(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.VaultHealth(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// RepairVault handles POST /api/repair. dry_run=true previews the
// changes without writing.
func (h *Handler) RepairVault(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dry_run") == "true"
	report, err := h.svc.RepairVault(r.Context(), dryRun)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
