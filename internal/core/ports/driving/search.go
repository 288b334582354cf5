package driving

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search ranks chunks (and optionally insights) against the query.
	// An unavailable semantic side degrades to BM25, never to an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*SearchResponse, error)
}

// SearchResponse holds ranked results and how they were produced.
type SearchResponse struct {
	Query   string                `json:"query"`
	Results []domain.SearchResult `json:"results"`

	// Method is "hybrid", "semantic" or "bm25".
	Method string `json:"method"`
}
