package driving

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// RetentionService moves chunks between the active, archived and purged
// tiers.
type RetentionService interface {
	// Preview lists current candidates without changing anything.
	Preview(ctx context.Context) (*domain.RetentionPreview, error)

	// Run applies the guarded transitions to every current candidate.
	// Per-chunk failures are collected in the report, never returned.
	Run(ctx context.Context, opts RetentionRunOptions) (*domain.RetentionReport, error)

	// Archive compresses one active chunk into the archive tier.
	Archive(ctx context.Context, id string) (*domain.ArchiveResult, error)

	// Restore brings an archived chunk back to the active tier.
	Restore(ctx context.Context, id string) (*domain.Chunk, error)

	// Stats aggregates archive sizes.
	Stats(ctx context.Context) (*domain.ArchiveStats, error)

	// IsArchived reports whether id is in the archive tier.
	IsArchived(ctx context.Context, id string) (bool, error)
}

// RetentionRunOptions selects which transitions Run applies.
type RetentionRunOptions struct {
	Archive bool
	Purge   bool
}
