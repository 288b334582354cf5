package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// MockSearchService is a mock implementation of driving.SearchService.
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*driving.SearchResponse, error) {
	args := m.Called(ctx, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driving.SearchResponse), args.Error(1)
}

// MockChunkService is a mock implementation of driving.ChunkService.
type MockChunkService struct {
	mock.Mock
}

func (m *MockChunkService) Create(ctx context.Context, req driving.ChunkRequest) (*driving.ChunkOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driving.ChunkOutcome), args.Error(1)
}

func (m *MockChunkService) Peek(ctx context.Context, id string, start, end int) (*driving.PeekResult, error) {
	args := m.Called(ctx, id, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driving.PeekResult), args.Error(1)
}

func (m *MockChunkService) Grep(ctx context.Context, req driving.GrepRequest) (*driving.GrepResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driving.GrepResult), args.Error(1)
}

func (m *MockChunkService) List(ctx context.Context, req driving.ListRequest) (*driving.ChunkListing, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driving.ChunkListing), args.Error(1)
}

// MockInsightService is a mock implementation of driving.InsightService.
type MockInsightService struct {
	mock.Mock
}

func (m *MockInsightService) Remember(ctx context.Context, req driving.InsightRequest) (*domain.Insight, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Insight), args.Error(1)
}

func (m *MockInsightService) Recall(ctx context.Context, query driving.RecallQuery) ([]driving.RecallHit, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]driving.RecallHit), args.Error(1)
}

func (m *MockInsightService) Update(ctx context.Context, id string, patch domain.InsightPatch) (*domain.Insight, bool, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Insight), args.Bool(1), args.Error(2)
}

func (m *MockInsightService) Forget(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockInsightService) Status(ctx context.Context) (*domain.InsightStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InsightStats), args.Error(1)
}

// MockRetentionService is a mock implementation of driving.RetentionService.
type MockRetentionService struct {
	mock.Mock
}

func (m *MockRetentionService) Preview(ctx context.Context) (*domain.RetentionPreview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetentionPreview), args.Error(1)
}

func (m *MockRetentionService) Run(ctx context.Context, opts driving.RetentionRunOptions) (*domain.RetentionReport, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetentionReport), args.Error(1)
}

func (m *MockRetentionService) Archive(ctx context.Context, id string) (*domain.ArchiveResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ArchiveResult), args.Error(1)
}

func (m *MockRetentionService) Restore(ctx context.Context, id string) (*domain.Chunk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chunk), args.Error(1)
}

func (m *MockRetentionService) Stats(ctx context.Context) (*domain.ArchiveStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ArchiveStats), args.Error(1)
}

func (m *MockRetentionService) IsArchived(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockSessionService is a mock implementation of driving.SessionService.
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Register(ctx context.Context, session domain.Session) (*domain.Session, bool, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Session), args.Bool(1), args.Error(2)
}

func (m *MockSessionService) AddChunk(ctx context.Context, sessionID, chunkID string) error {
	return m.Called(ctx, sessionID, chunkID).Error(0)
}

func (m *MockSessionService) List(ctx context.Context, filter driving.SessionFilter) ([]domain.Session, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *MockSessionService) Current(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSessionService) Domains(ctx context.Context) (map[string][]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]string), args.Error(1)
}

// testServices bundles the mocks installed by setupTestServices.
type testServices struct {
	search    *MockSearchService
	chunks    *MockChunkService
	insights  *MockInsightService
	retention *MockRetentionService
	sessions  *MockSessionService
}

// setupTestServices installs fresh mocks for every service and returns
// a cleanup function that removes them and resets all flags.
func setupTestServices() func() {
	_, cleanup := installMocks()
	return cleanup
}

func installMocks() (*testServices, func()) {
	ts := &testServices{
		search:    new(MockSearchService),
		chunks:    new(MockChunkService),
		insights:  new(MockInsightService),
		retention: new(MockRetentionService),
		sessions:  new(MockSessionService),
	}
	ts.search.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return(&driving.SearchResponse{Method: "bm25"}, nil).Maybe()

	resetFlags(rootCmd)
	SetServices(&Services{
		Search:    ts.search,
		Chunks:    ts.chunks,
		Insights:  ts.insights,
		Retention: ts.retention,
		Sessions:  ts.sessions,
	})
	return ts, func() {
		SetServices(nil)
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
