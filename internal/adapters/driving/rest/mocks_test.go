package rest

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

type mockSearchService struct {
	response *driving.SearchResponse
	err      error

	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) (*driving.SearchResponse, error) {
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &driving.SearchResponse{Query: query, Results: []domain.SearchResult{}, Method: "bm25"}, nil
	}
	return m.response, nil
}

type mockChunkService struct {
	outcome *driving.ChunkOutcome
	peek    *driving.PeekResult
	listing *driving.ChunkListing
	err     error

	lastCreate driving.ChunkRequest
	lastPeekID string
	lastStart  int
	lastEnd    int
	lastList   driving.ListRequest
}

func (m *mockChunkService) Create(_ context.Context, req driving.ChunkRequest) (*driving.ChunkOutcome, error) {
	m.lastCreate = req
	return m.outcome, m.err
}

func (m *mockChunkService) Peek(_ context.Context, id string, start, end int) (*driving.PeekResult, error) {
	m.lastPeekID, m.lastStart, m.lastEnd = id, start, end
	return m.peek, m.err
}

func (m *mockChunkService) Grep(_ context.Context, _ driving.GrepRequest) (*driving.GrepResult, error) {
	return &driving.GrepResult{}, m.err
}

func (m *mockChunkService) List(_ context.Context, req driving.ListRequest) (*driving.ChunkListing, error) {
	m.lastList = req
	if m.err != nil {
		return nil, m.err
	}
	if m.listing == nil {
		return &driving.ChunkListing{}, nil
	}
	return m.listing, nil
}

type mockInsightService struct {
	insight *domain.Insight
	hits    []driving.RecallHit
	err     error

	lastRemember driving.InsightRequest
	lastRecall   driving.RecallQuery
	forgotten    string
}

func (m *mockInsightService) Remember(_ context.Context, req driving.InsightRequest) (*domain.Insight, error) {
	m.lastRemember = req
	return m.insight, m.err
}

func (m *mockInsightService) Recall(_ context.Context, q driving.RecallQuery) ([]driving.RecallHit, error) {
	m.lastRecall = q
	return m.hits, m.err
}

func (m *mockInsightService) Update(
	_ context.Context,
	_ string,
	_ domain.InsightPatch,
) (*domain.Insight, bool, error) {
	return m.insight, true, m.err
}

func (m *mockInsightService) Forget(_ context.Context, id string) error {
	m.forgotten = id
	return m.err
}

func (m *mockInsightService) Status(_ context.Context) (*domain.InsightStats, error) {
	return &domain.InsightStats{}, m.err
}

type mockRetentionService struct {
	preview  *domain.RetentionPreview
	report   *domain.RetentionReport
	restored *domain.Chunk
	err      error

	lastRun driving.RetentionRunOptions
}

func (m *mockRetentionService) Preview(_ context.Context) (*domain.RetentionPreview, error) {
	return m.preview, m.err
}

func (m *mockRetentionService) Run(
	_ context.Context,
	opts driving.RetentionRunOptions,
) (*domain.RetentionReport, error) {
	m.lastRun = opts
	return m.report, m.err
}

func (m *mockRetentionService) Archive(_ context.Context, id string) (*domain.ArchiveResult, error) {
	return &domain.ArchiveResult{ID: id}, m.err
}

func (m *mockRetentionService) Restore(_ context.Context, _ string) (*domain.Chunk, error) {
	return m.restored, m.err
}

func (m *mockRetentionService) Stats(_ context.Context) (*domain.ArchiveStats, error) {
	return &domain.ArchiveStats{}, m.err
}

func (m *mockRetentionService) IsArchived(_ context.Context, _ string) (bool, error) {
	return false, m.err
}

var (
	_ driving.SearchService    = (*mockSearchService)(nil)
	_ driving.ChunkService     = (*mockChunkService)(nil)
	_ driving.InsightService   = (*mockInsightService)(nil)
	_ driving.RetentionService = (*mockRetentionService)(nil)
)
