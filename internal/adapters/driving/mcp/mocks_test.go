package mcp

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
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
		return &driving.SearchResponse{Query: query, Method: "bm25"}, nil
	}
	return m.response, nil
}

// mockChunkService is a mock implementation of driving.ChunkService.
type mockChunkService struct {
	outcome *driving.ChunkOutcome
	peek    *driving.PeekResult
	grep    *driving.GrepResult
	listing *driving.ChunkListing
	err     error

	lastCreate driving.ChunkRequest
	lastGrep   driving.GrepRequest
	lastList   driving.ListRequest
}

func (m *mockChunkService) Create(_ context.Context, req driving.ChunkRequest) (*driving.ChunkOutcome, error) {
	m.lastCreate = req
	return m.outcome, m.err
}

func (m *mockChunkService) Peek(_ context.Context, _ string, _, _ int) (*driving.PeekResult, error) {
	return m.peek, m.err
}

func (m *mockChunkService) Grep(_ context.Context, req driving.GrepRequest) (*driving.GrepResult, error) {
	m.lastGrep = req
	return m.grep, m.err
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

// mockInsightService is a mock implementation of driving.InsightService.
type mockInsightService struct {
	insight *domain.Insight
	hits    []driving.RecallHit
	changed bool
	stats   *domain.InsightStats
	err     error

	lastRemember driving.InsightRequest
	lastPatch    domain.InsightPatch
}

func (m *mockInsightService) Remember(_ context.Context, req driving.InsightRequest) (*domain.Insight, error) {
	m.lastRemember = req
	return m.insight, m.err
}

func (m *mockInsightService) Recall(_ context.Context, _ driving.RecallQuery) ([]driving.RecallHit, error) {
	return m.hits, m.err
}

func (m *mockInsightService) Update(
	_ context.Context,
	_ string,
	patch domain.InsightPatch,
) (*domain.Insight, bool, error) {
	m.lastPatch = patch
	return m.insight, m.changed, m.err
}

func (m *mockInsightService) Forget(_ context.Context, _ string) error {
	return m.err
}

func (m *mockInsightService) Status(_ context.Context) (*domain.InsightStats, error) {
	if m.stats == nil {
		return &domain.InsightStats{}, m.err
	}
	return m.stats, m.err
}

// mockRetentionService is a mock implementation of driving.RetentionService.
type mockRetentionService struct {
	preview  *domain.RetentionPreview
	report   *domain.RetentionReport
	restored *domain.Chunk
	stats    *domain.ArchiveStats
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
	if m.stats == nil {
		return &domain.ArchiveStats{}, m.err
	}
	return m.stats, m.err
}

func (m *mockRetentionService) IsArchived(_ context.Context, _ string) (bool, error) {
	return false, m.err
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	sessions []domain.Session
	current  string
	domains  map[string][]string
	err      error

	lastFilter driving.SessionFilter
}

func (m *mockSessionService) Register(
	_ context.Context,
	s domain.Session,
) (*domain.Session, bool, error) {
	return &s, false, m.err
}

func (m *mockSessionService) AddChunk(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockSessionService) List(_ context.Context, filter driving.SessionFilter) ([]domain.Session, error) {
	m.lastFilter = filter
	return m.sessions, m.err
}

func (m *mockSessionService) Current(_ context.Context) (string, error) {
	return m.current, m.err
}

func (m *mockSessionService) Domains(_ context.Context) (map[string][]string, error) {
	return m.domains, m.err
}

// Verify interface compliance.
var (
	_ driving.SearchService    = (*mockSearchService)(nil)
	_ driving.ChunkService     = (*mockChunkService)(nil)
	_ driving.InsightService   = (*mockInsightService)(nil)
	_ driving.RetentionService = (*mockRetentionService)(nil)
	_ driving.SessionService   = (*mockSessionService)(nil)
)
