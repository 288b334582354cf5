package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/rlm/internal/core/bm25"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
	"github.com/custodia-labs/rlm/internal/core/tokenizer"
	"github.com/custodia-labs/rlm/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultSearchLimit is used when the caller does not set a limit.
const DefaultSearchLimit = 5

// Search methods reported in responses.
const (
	MethodHybrid   = "hybrid"
	MethodSemantic = "semantic"
	MethodBM25     = "bm25"
)

// SearchService ranks chunks and insights with BM25, cosine similarity, or
// a fusion of both.
type SearchService struct {
	corpus           *CorpusIndex
	archive          driven.ArchiveIndex
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	settings         domain.SearchSettings
}

// NewSearchService creates a new search service. embeddingService may be
// the null provider, in which case every search is BM25 only.
func NewSearchService(
	corpus *CorpusIndex,
	archive driven.ArchiveIndex,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	settings domain.SearchSettings,
) *SearchService {
	if settings.Alpha < 0 || settings.Alpha > 1 {
		settings.Alpha = domain.DefaultHybridAlpha
	}
	return &SearchService{
		corpus:           corpus,
		archive:          archive,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		settings:         settings,
	}
}

// Search performs hybrid search across the corpus.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) (*driving.SearchResponse, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	resp := &driving.SearchResponse{Query: query, Results: []domain.SearchResult{}, Method: MethodBM25}
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return resp, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	// Each side over-fetches so that filtering still leaves enough hits.
	internalLimit := limit * 3
	logger.Debug("Limit: %d, internal limit: %d, filters: %+v", limit, internalLimit, opts.Filters)

	semanticWanted := !opts.TextOnly && s.settings.Mode.RequiresEmbedding()
	logger.Debug("Semantic wanted: %t (model %s)", semanticWanted, s.embeddingService.ModelName())

	snap, lexical, semantic, err := s.retrieve(ctx, query, opts.IncludeInsights, semanticWanted, internalLimit)
	if err != nil {
		return nil, err
	}

	fused := fuse(lexical, semantic, s.settings.Alpha)
	switch {
	case semantic == nil:
		resp.Method = MethodBM25
	case len(lexical) == 0:
		resp.Method = MethodSemantic
	default:
		resp.Method = MethodHybrid
	}
	logger.Info("Search method: %s (%d lexical, %d semantic, %d fused)",
		resp.Method, len(lexical), len(semantic), len(fused))

	resp.Results = s.hydrate(ctx, snap, fused, opts.Filters, limit)
	logger.Info("Final results: %d", len(resp.Results))
	return resp, nil
}

// retrieve runs the lexical and semantic sides in parallel. A nil semantic
// slice means that side was skipped or failed. The lexical side failing
// alone degrades to semantic results; both failing is an error.
func (s *SearchService) retrieve(
	ctx context.Context, query string, includeInsights, semanticWanted bool, limit int,
) (*corpusSnapshot, []bm25.Result, []driven.VectorHit, error) {
	var (
		snap        *corpusSnapshot
		lexical     []bm25.Result
		semantic    []driven.VectorHit
		lexicalErr  error
		semanticErr error
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		snap, lexical, lexicalErr = s.keywordSearch(ctx, query, includeInsights, limit)
	}()
	if semanticWanted {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semantic, semanticErr = s.vectorSearch(ctx, query, limit)
		}()
	}
	wg.Wait()

	if semanticErr != nil {
		if errors.Is(semanticErr, domain.ErrEmbeddingUnavailable) ||
			errors.Is(semanticErr, domain.ErrVectorIndexUnavailable) {
			logger.Debug("Semantic search skipped: %v", semanticErr)
		} else {
			logger.Warn("Semantic search failed, using keyword results only: %v", semanticErr)
		}
		semantic = nil
	}

	if lexicalErr != nil {
		if semantic == nil {
			return nil, nil, nil, fmt.Errorf("search: %w", lexicalErr)
		}
		logger.Warn("Keyword search failed, using vector results only: %v", lexicalErr)
		lexical = nil
	}
	return snap, lexical, semantic, nil
}

// keywordSearch scores the query against the cached BM25 index.
func (s *SearchService) keywordSearch(
	ctx context.Context, query string, includeInsights bool, limit int,
) (*corpusSnapshot, []bm25.Result, error) {
	snap, err := s.corpus.snapshot(ctx, includeInsights)
	if err != nil {
		return nil, nil, fmt.Errorf("keyword search: %w", err)
	}
	terms := tokenizer.Terms(query)
	logger.Debug("Keyword search: terms=%v, limit=%d", terms, limit)
	hits := snap.index.Score(terms, limit)
	logger.Debug("Keyword search: %d hits", len(hits))
	return snap, hits, nil
}

// vectorSearch embeds the query and asks the vector index for neighbours.
func (s *SearchService) vectorSearch(ctx context.Context, query string, limit int) ([]driven.VectorHit, error) {
	if s.vectorIndex.Len() == 0 {
		return nil, domain.ErrVectorIndexUnavailable
	}

	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(embedding))

	hits, err := s.vectorIndex.Search(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search: %d hits", len(hits))
	return hits, nil
}

// hydrate turns fused IDs into results, applying filters, until limit
// results are collected. With any filter set insights are dropped, since
// they carry no project, domain or date. Hits whose chunk no longer exists
// are skipped.
func (s *SearchService) hydrate(
	ctx context.Context, snap *corpusSnapshot, fused []scoredDoc, filters domain.SearchFilters, limit int,
) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, min(limit, len(fused)))
	filtered := !filters.IsZero()

	for _, d := range fused {
		if len(results) >= limit {
			break
		}

		kind := domain.ResultTypeOf(d.id)
		var summary string

		if kind == domain.ResultTypeInsight {
			if filtered {
				continue
			}
			if snap != nil {
				summary = snap.summaries[d.id]
			}
		} else {
			meta := s.chunkMeta(ctx, snap, d.id)
			if meta == nil {
				logger.Debug("Skipping stale hit %s", d.id)
				continue
			}
			if filtered && !filters.Match(meta) {
				continue
			}
			summary = meta.Summary
		}

		results = append(results, domain.SearchResult{
			ID:      d.id,
			Type:    kind,
			Score:   d.score,
			Summary: summary,
		})
	}
	return results
}

// chunkMeta finds metadata for a hit: active chunks come from the snapshot
// (or the store when the lexical side failed), archived ones, whose vectors
// are kept, from the archive index.
func (s *SearchService) chunkMeta(ctx context.Context, snap *corpusSnapshot, id string) *domain.Chunk {
	if snap != nil {
		if c, ok := snap.chunks[id]; ok {
			return c
		}
	} else if c, err := s.corpus.chunks.Get(ctx, id); err == nil {
		return c
	}
	if s.archive == nil {
		return nil
	}
	entry, err := s.archive.Get(ctx, id)
	if err != nil {
		return nil
	}
	return &entry.Chunk
}
