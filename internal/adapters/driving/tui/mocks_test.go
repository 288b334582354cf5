package tui

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

type mockSearchService struct {
	results []domain.SearchResult
	err     error

	queries []string
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	_ domain.SearchOptions,
) (*driving.SearchResponse, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return &driving.SearchResponse{Query: query, Results: m.results, Method: "bm25"}, nil
}

type mockChunkService struct {
	content  map[string]string
	restored bool
	err      error
}

func (m *mockChunkService) Create(context.Context, driving.ChunkRequest) (*driving.ChunkOutcome, error) {
	return nil, domain.ErrInvalidInput
}

func (m *mockChunkService) Peek(_ context.Context, id string, _, _ int) (*driving.PeekResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, ok := m.content[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &driving.PeekResult{ID: id, Content: body, Restored: m.restored}, nil
}

func (m *mockChunkService) Grep(context.Context, driving.GrepRequest) (*driving.GrepResult, error) {
	return &driving.GrepResult{}, nil
}

func (m *mockChunkService) List(context.Context, driving.ListRequest) (*driving.ChunkListing, error) {
	return &driving.ChunkListing{}, nil
}

type mockSettingsService struct {
	settings domain.AppSettings
	modes    []domain.SearchMode
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetSearchMode(mode domain.SearchMode) error {
	m.modes = append(m.modes, mode)
	m.settings.Search.Mode = mode
	return nil
}

func (m *mockSettingsService) SetHybridAlpha(alpha float64) error {
	m.settings.Search.Alpha = alpha
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey, baseURL string) error {
	m.settings.Embedding.Provider = p
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	m.settings.Embedding.BaseURL = baseURL
	return nil
}

func (m *mockSettingsService) SetRetentionPolicy(policy domain.RetentionPolicy, autoPurge bool) error {
	m.settings.Retention.Policy = policy
	m.settings.Retention.AutoPurge = autoPurge
	return nil
}

func (m *mockSettingsService) Validate() error { return nil }

func (m *mockSettingsService) RequiresEmbedding() bool {
	return m.settings.Search.Mode.RequiresEmbedding()
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }

var (
	_ driving.SearchService   = (*mockSearchService)(nil)
	_ driving.ChunkService    = (*mockChunkService)(nil)
	_ driving.SettingsService = (*mockSettingsService)(nil)
)
