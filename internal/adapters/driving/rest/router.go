// Package rest exposes the rlm driving ports as a JSON HTTP API.
package rest

import (
	"errors"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// ErrMissingChunkService is returned when the router is built without a
// chunk service.
var ErrMissingChunkService = errors.New("rest: chunk service is required")

// ErrMissingSearchService is returned when the router is built without a
// search service.
var ErrMissingSearchService = errors.New("rest: search service is required")

// Ports aggregates the driving ports the API serves. Insights and
// Retention are optional; their routes are only mounted when set.
type Ports struct {
	Search    driving.SearchService
	Chunks    driving.ChunkService
	Insights  driving.InsightService
	Retention driving.RetentionService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Chunks == nil {
		return ErrMissingChunkService
	}
	return nil
}

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(ports *Ports, apiKey string) (*chi.Mux, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /healthz)
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recovery)

	chunkH := &chunkHandler{chunks: ports.Chunks}
	searchH := &searchHandler{search: ports.Search}

	// Unauthenticated routes
	r.Get("/healthz", healthHandler(ports.Chunks))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Get("/search", searchH.Search)

		r.Route("/chunks", func(r chi.Router) {
			r.Get("/", chunkH.List)
			r.Post("/", chunkH.Create)
			r.Get("/{id}", chunkH.Get)
		})

		if ports.Insights != nil {
			insightH := &insightHandler{insights: ports.Insights}
			r.Route("/insights", func(r chi.Router) {
				r.Get("/", insightH.Recall)
				r.Post("/", insightH.Remember)
				r.Delete("/{id}", insightH.Forget)
			})
		}

		if ports.Retention != nil {
			retentionH := &retentionHandler{retention: ports.Retention}
			r.Route("/retention", func(r chi.Router) {
				r.Get("/preview", retentionH.Preview)
				r.Post("/run", retentionH.Run)
				r.Post("/restore/{id}", retentionH.Restore)
			})
		}
	})

	return r, nil
}
