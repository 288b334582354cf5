package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
	"github.com/custodia-labs/rlm/internal/logger"
)

// Ensure BackfillService implements the interface.
var _ driving.BackfillService = (*BackfillService)(nil)

// BackfillConfig tunes how fast the provider is called.
type BackfillConfig struct {
	// BatchSize is the number of chunks sent per EmbedBatch call.
	BatchSize int

	// RequestsPerSecond caps EmbedBatch calls.
	RequestsPerSecond float64

	// Burst is the number of calls allowed back to back.
	Burst int
}

// DefaultBackfillConfig stays well below hosted provider quotas.
func DefaultBackfillConfig() BackfillConfig {
	return BackfillConfig{BatchSize: 16, RequestsPerSecond: 2, Burst: 2}
}

// BackfillService embeds active chunks that have no stored vector, for
// example after switching providers or after running without one.
type BackfillService struct {
	chunks   driven.ChunkStore
	content  driven.ContentStore
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
	cfg      BackfillConfig
	limiter  *rate.Limiter
}

// NewBackfillService creates a backfill service.
func NewBackfillService(
	chunks driven.ChunkStore,
	content driven.ContentStore,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	cfg BackfillConfig,
) *BackfillService {
	defaults := DefaultBackfillConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}
	return &BackfillService{
		chunks:   chunks,
		content:  content,
		embedder: embedder,
		vectors:  vectors,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

type pendingEmbedding struct {
	id   string
	text string
}

// Run embeds missing vectors. With force every active chunk is embedded
// again into an emptied index, which is how a provider with a different
// dimension takes over.
func (s *BackfillService) Run(ctx context.Context, force bool) (*driving.BackfillReport, error) {
	start := time.Now()
	report := &driving.BackfillReport{}

	if err := s.embedder.Ping(ctx); err != nil {
		return nil, fmt.Errorf("backfill: %w", err)
	}

	chunks, err := s.chunks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("backfill: list chunks: %w", err)
	}

	if force {
		if err := s.vectors.Reset(ctx); err != nil {
			return nil, fmt.Errorf("backfill: reset vector index: %w", err)
		}
	}

	pending := make([]pendingEmbedding, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if !force && s.vectors.Has(c.ID) {
			report.Skipped++
			continue
		}
		data, err := s.content.Read(ctx, c.ID)
		if err != nil {
			logger.Warn("backfill: read %s: %v", c.ID, err)
			report.Failed++
			continue
		}
		pending = append(pending, pendingEmbedding{
			id:   c.ID,
			text: embeddingText(c, string(stripFrontMatter(data))),
		})
	}
	logger.Debug("backfill: %d to embed, %d already indexed", len(pending), report.Skipped)

	for batchStart := 0; batchStart < len(pending); batchStart += s.cfg.BatchSize {
		batch := pending[batchStart:min(batchStart+s.cfg.BatchSize, len(pending))]
		if err := s.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("backfill: %w", err)
		}
		if err := s.embedBatch(ctx, batch, report); err != nil {
			s.save(ctx, report)
			return report, err
		}
	}

	s.save(ctx, report)
	logger.Elapsed("backfill", start)
	logger.Info("backfill: %d embedded, %d skipped, %d failed", report.Embedded, report.Skipped, report.Failed)
	return report, nil
}

// embedBatch embeds one batch. Only an unreachable provider aborts the run;
// a rejected vector counts as a failure.
func (s *BackfillService) embedBatch(
	ctx context.Context, batch []pendingEmbedding, report *driving.BackfillReport,
) error {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.text
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) || ctx.Err() != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		logger.Warn("backfill: embed batch of %d: %v", len(batch), err)
		report.Failed += len(batch)
		return nil
	}
	if len(vecs) != len(batch) {
		logger.Warn("backfill: provider returned %d vectors for %d texts", len(vecs), len(batch))
		report.Failed += len(batch)
		return nil
	}

	for i, p := range batch {
		if err := s.vectors.Add(ctx, p.id, vecs[i]); err != nil {
			if errors.Is(err, domain.ErrDimensionMismatch) {
				logger.Warn("backfill: %s: %v (re-run with force to rebuild the index)", p.id, err)
			} else {
				logger.Warn("backfill: index %s: %v", p.id, err)
			}
			report.Failed++
			continue
		}
		report.Embedded++
	}
	return nil
}

func (s *BackfillService) save(ctx context.Context, report *driving.BackfillReport) {
	if report.Embedded == 0 {
		return
	}
	if err := s.vectors.Save(ctx); err != nil {
		logger.Warn("backfill: save vector index: %v", err)
	}
}
