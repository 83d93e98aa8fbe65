package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, is mounted at GET /events inside the auth group and
// receives run.finished events after each publish.
// contentRoot is used to resolve served assets (cover images).
func NewRouter(svc *docservice.Service, authEnabled bool, token string, broker *sse.Broker, contentRoot string) chi.Router {
	h := NewHandler(svc, broker)
	ah := NewAssetHandler(contentRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents (read-only).
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)

	// Reconciliation.
	r.Get("/plan", h.Plan)
	r.Post("/publish", h.Publish)

	// History.
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}/actions", h.RunActions)

	// Cover images and other static content files.
	r.Get("/assets/*", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", http.HandlerFunc(broker.ServeHTTP))
	}

	return r
}
