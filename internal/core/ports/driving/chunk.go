package driving

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// ChunkService stores, reads and scans chunks.
type ChunkService interface {
	// Create validates and stores a new chunk.
	// Duplicate content returns the existing chunk with StatusDuplicate;
	// the insight type returns StatusRedirect and stores nothing.
	Create(ctx context.Context, req ChunkRequest) (*ChunkOutcome, error)

	// Peek reads body lines [start, end) of a chunk, restoring it from the
	// archive first if needed, and records the access.
	// end <= 0 means through the last line.
	Peek(ctx context.Context, id string, start, end int) (*PeekResult, error)

	// Grep scans active chunk bodies line by line.
	Grep(ctx context.Context, req GrepRequest) (*GrepResult, error)

	// List returns active chunks, newest first.
	List(ctx context.Context, req ListRequest) (*ChunkListing, error)
}

// ChunkRequest holds the caller-supplied fields of a new chunk.
type ChunkRequest struct {
	Content string
	Summary string
	Tags    domain.TagSet
	Type    domain.ChunkType
	Project string
	Ticket  string
	Domain  string
}

// ChunkOutcome is the result of Create.
type ChunkOutcome struct {
	// Status is created, duplicate or redirect.
	Status domain.Status `json:"status"`

	// Chunk is the new chunk, or the existing one for a duplicate.
	// Nil on redirect.
	Chunk *domain.Chunk `json:"chunk"`

	// Archived is set when the duplicate lives in the archive tier.
	Archived bool `json:"archived"`

	// Message is a human-readable explanation.
	Message string `json:"message,omitempty"`
}

// PeekResult is a slice of a chunk body.
type PeekResult struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	TotalLines int    `json:"total_lines"`

	// Restored is set when the chunk was brought back from the archive.
	Restored bool `json:"restored"`
}

// GrepRequest configures a scan over chunk bodies.
type GrepRequest struct {
	Pattern string

	// Context is the number of lines shown around a regex match.
	Context int

	// Limit caps the number of matches. Defaults to 10.
	Limit int

	// Fuzzy switches from regex to approximate matching.
	Fuzzy bool

	// Threshold is the minimum fuzzy score, 0..100. Defaults to 80.
	Threshold int

	Filters domain.SearchFilters

	// IDGlob restricts the scan to chunk IDs matching a glob.
	IDGlob string
}

// GrepMatch is a matching line.
type GrepMatch struct {
	ChunkID      string `json:"chunk_id"`
	ChunkSummary string `json:"chunk_summary"`

	// LineNumber is 1-based within the body.
	LineNumber int `json:"line_number"`

	// Context is the matched line with surrounding lines (regex mode) or the
	// truncated line (fuzzy mode).
	Context string `json:"context,omitempty"`

	// Score is the fuzzy score; 0 in regex mode.
	Score int `json:"score"`
}

// GrepResult holds the matches of a scan.
type GrepResult struct {
	Pattern   string `json:"pattern"`
	Fuzzy     bool   `json:"fuzzy"`
	Threshold int    `json:"threshold"`

	// Matcher names the fuzzy implementation used.
	Matcher string `json:"matcher,omitempty"`

	Matches []GrepMatch `json:"matches"`
}

// ListRequest configures List.
type ListRequest struct {
	// Limit caps the number of chunks returned. Defaults to 20.
	Limit int

	// IDGlob restricts the listing to chunk IDs matching a glob.
	IDGlob string
}

// ChunkListing is a page of chunks with corpus totals.
type ChunkListing struct {
	Chunks []domain.Chunk `json:"chunks,omitempty"`

	// TotalChunks counts every active chunk, not just the returned page.
	TotalChunks int `json:"total_chunks"`

	// TotalTokens sums the token estimates of every active chunk.
	TotalTokens int `json:"total_tokens"`
}
