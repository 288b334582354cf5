package cli

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

func storedChunk(id string) *domain.Chunk {
	return &domain.Chunk{
		ID:             id,
		Summary:        "Auth redesign notes",
		Type:           domain.ChunkTypeSession,
		Tags:           domain.NewTagSet("auth", "jwt"),
		Project:        "api",
		TokensEstimate: 42,
	}
}

func TestChunkCmd_StoresArgument(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Create", mock.Anything, mock.MatchedBy(func(req driving.ChunkRequest) bool {
		return req.Content == "refresh tokens rotate hourly" &&
			req.Summary == "rotation" &&
			req.Tags.Join(",") == "auth,jwt" &&
			req.Type == domain.ChunkTypeDebug &&
			req.Project == "api"
	})).Return(&driving.ChunkOutcome{Status: domain.StatusCreated, Chunk: storedChunk("2026-10-16-api-001")}, nil)

	out, err := execute(t, "chunk", "-s", "rotation", "-t", "auth, jwt", "--type", "debug", "-p", "api",
		"refresh tokens rotate hourly")

	require.NoError(t, err)
	assert.Contains(t, out, "Stored chunk 2026-10-16-api-001 (42 tokens)")
	ts.chunks.AssertExpectations(t)
}

func TestChunkCmd_ReadsStdin(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Create", mock.Anything, mock.MatchedBy(func(req driving.ChunkRequest) bool {
		return req.Content == "from a pipe\n" && req.Type == domain.ChunkTypeSession
	})).Return(&driving.ChunkOutcome{Status: domain.StatusCreated, Chunk: storedChunk("c1")}, nil)
	rootCmd.SetIn(strings.NewReader("from a pipe\n"))

	_, err := execute(t, "chunk", "-")

	require.NoError(t, err)
	ts.chunks.AssertExpectations(t)
}

func TestChunkCmd_Duplicate(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Create", mock.Anything, mock.Anything).
		Return(&driving.ChunkOutcome{Status: domain.StatusDuplicate, Chunk: storedChunk("old-1"), Archived: true}, nil)

	out, err := execute(t, "chunk", "same again")

	require.NoError(t, err)
	assert.Contains(t, out, "Duplicate of archived chunk old-1")
}

func TestChunkCmd_Redirect(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Create", mock.Anything, mock.Anything).
		Return(&driving.ChunkOutcome{Status: domain.StatusRedirect, Message: "use 'rlm remember' for insights"}, nil)

	out, err := execute(t, "chunk", "--type", "insight", "a fact")

	require.NoError(t, err)
	assert.Contains(t, out, "use 'rlm remember' for insights")
}

func TestChunkCmd_InvalidInput(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: content is empty", domain.ErrInvalidInput))

	_, err := execute(t, "chunk", " ")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid_input: "))
}

func TestChunkCmd_InvalidInputJSON(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: content is empty", domain.ErrInvalidInput))

	out, err := execute(t, "--json", "chunk", " ")

	assert.ErrorIs(t, err, ErrReported)
	assert.Contains(t, out, `"status": "invalid_input"`)
	assert.Contains(t, out, "content is empty")
}

func TestChunkCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	chunkService = nil

	_, err := execute(t, "chunk", "x")

	assert.ErrorIs(t, err, errChunkUnavailable)
}

func TestPeekCmd_Range(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Peek", mock.Anything, "c1", 2, 4).
		Return(&driving.PeekResult{ID: "c1", Content: "line 3\nline 4", Start: 2, End: 4, TotalLines: 10}, nil)

	out, err := execute(t, "peek", "c1", "2", "4")

	require.NoError(t, err)
	assert.Contains(t, out, "line 3\nline 4")
	assert.Contains(t, out, "-- lines 2-4 of 10 --")
	ts.chunks.AssertExpectations(t)
}

func TestPeekCmd_Restored(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Peek", mock.Anything, "old", 0, 0).
		Return(&driving.PeekResult{ID: "old", Content: "body", End: 1, TotalLines: 1, Restored: true}, nil)

	out, err := execute(t, "peek", "old")

	require.NoError(t, err)
	assert.Contains(t, out, "(restored old from archive)")
	assert.NotContains(t, out, "-- lines")
}

func TestPeekCmd_InvalidLineNumber(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "peek", "c1", "abc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid line number "abc"`)
}

func TestPeekCmd_NotFound(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Peek", mock.Anything, "missing", 0, 0).Return(nil, domain.ErrNotFound)

	_, err := execute(t, "peek", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrepCmd_Regex(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Grep", mock.Anything, driving.GrepRequest{
		Pattern:   "token",
		Context:   1,
		Limit:     10,
		Threshold: 80,
		Filters:   domain.SearchFilters{Project: "api"},
	}).Return(&driving.GrepResult{
		Pattern: "token",
		Matches: []driving.GrepMatch{
			{ChunkID: "c1", ChunkSummary: "Auth", LineNumber: 3, Context: "before\nrefresh token\nafter"},
		},
	}, nil)

	out, err := execute(t, "grep", "-C", "1", "-p", "api", "token")

	require.NoError(t, err)
	assert.Contains(t, out, "c1:3  Auth")
	assert.Contains(t, out, "    refresh token")
	ts.chunks.AssertExpectations(t)
}

func TestGrepCmd_Fuzzy(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Grep", mock.Anything, mock.MatchedBy(func(req driving.GrepRequest) bool {
		return req.Fuzzy && req.Threshold == 60 && req.IDGlob == "2026-*"
	})).Return(&driving.GrepResult{
		Fuzzy:   true,
		Matches: []driving.GrepMatch{{ChunkID: "c2", LineNumber: 7, Score: 91, Context: "authentcation flow"}},
	}, nil)

	out, err := execute(t, "grep", "--fuzzy", "--threshold", "60", "--chunks", "2026-*", "authentication")

	require.NoError(t, err)
	assert.Contains(t, out, "c2:7 (91) authentcation flow")
}

func TestGrepCmd_NoMatches(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("Grep", mock.Anything, mock.Anything).Return(&driving.GrepResult{}, nil)

	out, err := execute(t, "grep", "zzz")

	require.NoError(t, err)
	assert.Contains(t, out, "No matches found.")
}

func TestListCmd(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("List", mock.Anything, driving.ListRequest{Limit: 20}).Return(&driving.ChunkListing{
		Chunks:      []domain.Chunk{*storedChunk("c1")},
		TotalChunks: 4,
		TotalTokens: 900,
	}, nil)

	out, err := execute(t, "list")

	require.NoError(t, err)
	assert.Contains(t, out, "c1  Auth redesign notes")
	assert.Contains(t, out, "session | 42 tokens | tags: auth, jwt | project: api")
	assert.Contains(t, out, "Showing 1 of 4 chunks (900 tokens total)")
}

func TestListCmd_Empty(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()
	ts.chunks.On("List", mock.Anything, mock.Anything).Return(&driving.ChunkListing{}, nil)

	out, err := execute(t, "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No chunks stored.")
}
