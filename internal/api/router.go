package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tbrandt/othala/internal/service"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *service.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes. Deleting notes is deliberately absent: the integration layer
	// never removes files, that stays a manual operation.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)

	// Search and graph.
	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)
	r.Get("/backlinks/*", h.Backlinks)

	// External record sync.
	r.Post("/sync", h.SyncRecords)

	// Vault assessment and repair.
	r.Get("/health/vault", h.VaultHealth)
	r.Post("/repair", h.RepairVault)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
