package driving

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// InsightService manages short, permanent facts and decisions.
type InsightService interface {
	// Remember stores a new insight.
	Remember(ctx context.Context, req InsightRequest) (*domain.Insight, error)

	// Recall finds insights, most relevant first.
	Recall(ctx context.Context, query RecallQuery) ([]RecallHit, error)

	// Update applies a patch. changed is false when the patch is empty.
	Update(ctx context.Context, id string, patch domain.InsightPatch) (insight *domain.Insight, changed bool, err error)

	// Forget deletes an insight.
	Forget(ctx context.Context, id string) error

	// Status summarizes stored insights.
	Status(ctx context.Context) (*domain.InsightStats, error)
}

// InsightRequest holds the fields of a new insight.
// Empty category and importance take the defaults.
type InsightRequest struct {
	Content    string
	Category   string
	Importance string
	Tags       domain.TagSet
}

// RecallQuery filters and ranks insights.
type RecallQuery struct {
	Query      string
	Category   string
	Importance string

	// Limit defaults to 10.
	Limit int
}

// RecallHit is a recalled insight with its relevance in [0,1].
// Relevance is 0 when no query text was given.
type RecallHit struct {
	Insight   domain.Insight `json:"insight"`
	Relevance float64        `json:"relevance"`
}
