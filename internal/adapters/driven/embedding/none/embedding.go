// Package none provides the embedding service used when no provider is
// configured. Every call fails with domain.ErrEmbeddingUnavailable, which
// callers treat as "search with BM25 only".
package none

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

var _ driven.EmbeddingService = EmbeddingService{}

// EmbeddingService is the null embedding provider.
type EmbeddingService struct{}

// Embed always returns domain.ErrEmbeddingUnavailable.
func (EmbeddingService) Embed(context.Context, string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

// EmbedBatch always returns domain.ErrEmbeddingUnavailable.
func (EmbeddingService) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

// Dimensions returns 0.
func (EmbeddingService) Dimensions() int { return 0 }

// ModelName returns "none".
func (EmbeddingService) ModelName() string { return string(domain.AIProviderNone) }

// Ping always returns domain.ErrEmbeddingUnavailable.
func (EmbeddingService) Ping(context.Context) error { return domain.ErrEmbeddingUnavailable }

// Close does nothing.
func (EmbeddingService) Close() error { return nil }

// IsNone reports whether svc is the null provider.
func IsNone(svc driven.EmbeddingService) bool {
	_, ok := svc.(EmbeddingService)
	return ok
}
