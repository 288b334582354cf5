package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

const defaultGrepContext = 2

// ChunkInput is the input schema for the rlm_chunk tool.
type ChunkInput struct {
	Content string `json:"content" jsonschema:"the text to store"`
	Summary string `json:"summary,omitempty" jsonschema:"one-line summary; derived from the content when empty"`
	Tags    string `json:"tags,omitempty" jsonschema:"comma-separated tags"`
	Type    string `json:"chunk_type,omitempty" jsonschema:"snapshot, session or debug (default session)"`
	Project string `json:"project,omitempty" jsonschema:"project name; detected from the working directory when empty"`
	Ticket  string `json:"ticket,omitempty" jsonschema:"ticket reference such as JIRA-123"`
	Domain  string `json:"domain,omitempty" jsonschema:"work domain such as debug or feature"`
}

// ChunkOutput is the output schema for the rlm_chunk tool.
type ChunkOutput struct {
	Status   domain.Status `json:"status"`
	Message  string        `json:"message,omitempty"`
	Chunk    *ChunkView    `json:"chunk,omitempty"`
	Archived bool          `json:"archived,omitempty"`
}

// PeekInput is the input schema for the rlm_peek tool.
type PeekInput struct {
	ChunkID string `json:"chunk_id" jsonschema:"the chunk to read"`
	Start   int    `json:"start,omitempty" jsonschema:"first line, 0-based (default 0)"`
	End     int    `json:"end,omitempty" jsonschema:"line after the last one to read; 0 reads to the end"`
}

// PeekOutput is the output schema for the rlm_peek tool.
type PeekOutput struct {
	Status     domain.Status `json:"status"`
	Message    string        `json:"message,omitempty"`
	ChunkID    string        `json:"chunk_id,omitempty"`
	Content    string        `json:"content,omitempty"`
	Start      int           `json:"start"`
	End        int           `json:"end"`
	TotalLines int           `json:"total_lines"`
	Restored   bool          `json:"restored,omitempty"`
}

// GrepInput is the input schema for the rlm_grep tool.
type GrepInput struct {
	Pattern      string `json:"pattern" jsonschema:"regular expression, or approximate text when fuzzy is set"`
	Fuzzy        bool   `json:"fuzzy,omitempty" jsonschema:"match approximately instead of by regex"`
	Threshold    int    `json:"fuzzy_threshold,omitempty" jsonschema:"minimum fuzzy score 0-100 (default 80)"`
	ContextLines *int   `json:"context_lines,omitempty" jsonschema:"lines shown around a regex match (default 2)"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum number of matches (default 10)"`
	Project      string `json:"project,omitempty" jsonschema:"only scan chunks of this project"`
	Domain       string `json:"domain,omitempty" jsonschema:"only scan chunks of this domain"`
	ChunkGlob    string `json:"chunk_glob,omitempty" jsonschema:"only scan chunk IDs matching this glob"`
}

// GrepOutput is the output schema for the rlm_grep tool.
type GrepOutput struct {
	Status  domain.Status   `json:"status"`
	Message string          `json:"message,omitempty"`
	Pattern string          `json:"pattern"`
	Fuzzy   bool            `json:"fuzzy"`
	Matcher string          `json:"matcher,omitempty"`
	Matches []GrepMatchView `json:"matches"`
	Count   int             `json:"count"`
}

// ListInput is the input schema for the rlm_list_chunks tool.
type ListInput struct {
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of chunks (default 20)"`
	ChunkGlob string `json:"chunk_glob,omitempty" jsonschema:"only list chunk IDs matching this glob"`
}

// ListOutput is the output schema for the rlm_list_chunks tool.
type ListOutput struct {
	Status      domain.Status `json:"status"`
	Message     string        `json:"message,omitempty"`
	Chunks      []ChunkView   `json:"chunks"`
	Count       int           `json:"count"`
	TotalChunks int           `json:"total_chunks"`
	TotalTokens int           `json:"total_tokens"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query           string `json:"query" jsonschema:"the search query"`
	Limit           int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	Project         string `json:"project,omitempty" jsonschema:"only return chunks of this project"`
	Domain          string `json:"domain,omitempty" jsonschema:"only return chunks of this domain"`
	DateFrom        string `json:"date_from,omitempty" jsonschema:"earliest chunk date, YYYY-MM-DD"`
	DateTo          string `json:"date_to,omitempty" jsonschema:"latest chunk date, YYYY-MM-DD"`
	Entity          string `json:"entity,omitempty" jsonschema:"only return chunks mentioning this entity"`
	IncludeInsights bool   `json:"include_insights,omitempty" jsonschema:"also search insights (ignored when filtering)"`
	TextOnly        bool   `json:"text_only,omitempty" jsonschema:"use keyword search only"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Status  domain.Status        `json:"status"`
	Query   string               `json:"query"`
	Method  string               `json:"method"`
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_search",
		Description: "Search stored chunks (and optionally insights) by keyword and meaning",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_chunk",
		Description: "Store a piece of conversation context as a chunk for later retrieval",
	}, s.handleChunk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_peek",
		Description: "Read a chunk, or a range of its lines; archived chunks are restored first",
	}, s.handlePeek)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_grep",
		Description: "Scan chunk contents line by line with a regex or fuzzy pattern",
	}, s.handleGrep)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_list_chunks",
		Description: "List stored chunks, newest first",
	}, s.handleList)

	if s.ports.Insights != nil {
		s.registerInsightTools()
	}
	if s.ports.Retention != nil {
		s.registerRetentionTools()
	}
	if s.ports.Sessions != nil {
		s.registerSessionTools()
	}
	s.registerStatusTool()
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		Limit: input.Limit,
		Filters: domain.SearchFilters{
			Project:  input.Project,
			Domain:   input.Domain,
			DateFrom: input.DateFrom,
			DateTo:   input.DateTo,
			Entity:   input.Entity,
		},
		IncludeInsights: input.IncludeInsights,
		TextOnly:        input.TextOnly,
	}
	resp, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Status:  domain.StatusSuccess,
		Query:   resp.Query,
		Method:  resp.Method,
		Results: make([]SearchResultOutput, len(resp.Results)),
		Count:   len(resp.Results),
	}
	for i, r := range resp.Results {
		output.Results[i] = SearchResultOutput{
			ID:      r.ID,
			Type:    string(r.Type),
			Score:   r.Score,
			Summary: r.Summary,
		}
	}
	return nil, output, nil
}

func (s *Server) handleChunk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChunkInput,
) (*mcp.CallToolResult, ChunkOutput, error) {
	out, err := s.ports.Chunks.Create(ctx, driving.ChunkRequest{
		Content: input.Content,
		Summary: input.Summary,
		Tags:    domain.ParseTagList(input.Tags),
		Type:    domain.ChunkType(input.Type),
		Project: input.Project,
		Ticket:  input.Ticket,
		Domain:  input.Domain,
	})
	if err != nil {
		status, msg, toolErr := failure(err)
		return nil, ChunkOutput{Status: status, Message: msg}, toolErr
	}
	return nil, ChunkOutput{
		Status:   out.Status,
		Message:  out.Message,
		Chunk:    chunkView(out.Chunk),
		Archived: out.Archived,
	}, nil
}

func (s *Server) handlePeek(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PeekInput,
) (*mcp.CallToolResult, PeekOutput, error) {
	res, err := s.ports.Chunks.Peek(ctx, input.ChunkID, input.Start, input.End)
	if err != nil {
		status, msg, toolErr := failure(err)
		return nil, PeekOutput{Status: status, Message: msg}, toolErr
	}
	status := domain.StatusSuccess
	if res.Restored {
		status = domain.StatusRestored
	}
	return nil, PeekOutput{
		Status:     status,
		ChunkID:    res.ID,
		Content:    res.Content,
		Start:      res.Start,
		End:        res.End,
		TotalLines: res.TotalLines,
		Restored:   res.Restored,
	}, nil
}

func (s *Server) handleGrep(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GrepInput,
) (*mcp.CallToolResult, GrepOutput, error) {
	contextLines := defaultGrepContext
	if input.ContextLines != nil {
		contextLines = *input.ContextLines
	}
	res, err := s.ports.Chunks.Grep(ctx, driving.GrepRequest{
		Pattern:   input.Pattern,
		Context:   contextLines,
		Limit:     input.Limit,
		Fuzzy:     input.Fuzzy,
		Threshold: input.Threshold,
		Filters:   domain.SearchFilters{Project: input.Project, Domain: input.Domain},
		IDGlob:    input.ChunkGlob,
	})
	if err != nil {
		status, msg, toolErr := failure(err)
		return nil, GrepOutput{Status: status, Message: msg, Pattern: input.Pattern, Matches: []GrepMatchView{}}, toolErr
	}
	return nil, GrepOutput{
		Status:  domain.StatusSuccess,
		Pattern: res.Pattern,
		Fuzzy:   res.Fuzzy,
		Matcher: res.Matcher,
		Matches: grepMatchViews(res.Matches),
		Count:   len(res.Matches),
	}, nil
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	listing, err := s.ports.Chunks.List(ctx, driving.ListRequest{Limit: input.Limit, IDGlob: input.ChunkGlob})
	if err != nil {
		status, msg, toolErr := failure(err)
		return nil, ListOutput{Status: status, Message: msg, Chunks: []ChunkView{}}, toolErr
	}
	chunks := make([]ChunkView, len(listing.Chunks))
	for i := range listing.Chunks {
		chunks[i] = *chunkView(&listing.Chunks[i])
	}
	return nil, ListOutput{
		Status:      domain.StatusSuccess,
		Chunks:      chunks,
		Count:       len(chunks),
		TotalChunks: listing.TotalChunks,
		TotalTokens: listing.TotalTokens,
	}, nil
}
