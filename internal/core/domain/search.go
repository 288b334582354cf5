package domain

import "strings"

// ResultType distinguishes chunk hits from insight hits.
type ResultType string

// Result types.
const (
	ResultTypeChunk   ResultType = "chunk"
	ResultTypeInsight ResultType = "insight"
)

// ResultTypeOf returns the result type of a document ID.
func ResultTypeOf(docID string) ResultType {
	if strings.HasPrefix(docID, InsightIDPrefix) {
		return ResultTypeInsight
	}
	return ResultTypeChunk
}

// SearchFilters narrow search and grep results to matching chunks.
type SearchFilters struct {
	// Project and Domain match exactly.
	Project string
	Domain  string

	// DateFrom and DateTo are inclusive YYYY-MM-DD bounds.
	DateFrom string
	DateTo   string

	// Entity matches any extracted entity as a case-insensitive substring.
	Entity string
}

// IsZero reports whether no filter is set.
func (f SearchFilters) IsZero() bool {
	return f == SearchFilters{}
}

// Match reports whether the chunk passes every set filter.
func (f SearchFilters) Match(c *Chunk) bool {
	if f.Project != "" && c.Project != f.Project {
		return false
	}
	if f.Domain != "" && c.Domain != f.Domain {
		return false
	}
	if f.DateFrom != "" || f.DateTo != "" {
		date, ok := c.Date()
		if !ok {
			return false
		}
		// YYYY-MM-DD sorts lexicographically in date order.
		if f.DateFrom != "" && date < f.DateFrom {
			return false
		}
		if f.DateTo != "" && date > f.DateTo {
			return false
		}
	}
	if f.Entity != "" && !c.Entities.Matches(f.Entity) {
		return false
	}
	return true
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Filters restrict results to matching chunks.
	Filters SearchFilters

	// IncludeInsights adds insights to the lexical corpus.
	IncludeInsights bool

	// TextOnly skips semantic search even when it is available.
	TextOnly bool
}

// SearchResult represents a single ranked hit.
type SearchResult struct {
	// ID is the chunk ID, or "insight:<id>" for insights.
	ID string `json:"id"`

	// Type is chunk or insight.
	Type ResultType `json:"type"`

	// Score is the fused relevance score.
	Score float64 `json:"score"`

	// Summary describes the hit.
	Summary string `json:"summary,omitempty"`
}
