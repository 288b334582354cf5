package mcp

import (
	"errors"

	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

var (
	ErrMissingSearchService = errors.New("mcp: search service is required")
	ErrMissingChunkService  = errors.New("mcp: chunk service is required")
)

// Ports carries the services behind the MCP tools. Search and Chunks are
// required; the insight, retention and session tools are registered only
// when their service is set.
type Ports struct {
	Search    driving.SearchService
	Chunks    driving.ChunkService
	Insights  driving.InsightService
	Retention driving.RetentionService
	Sessions  driving.SessionService
}

// Validate reports the first missing required service.
func (p *Ports) Validate() error {
	switch {
	case p.Search == nil:
		return ErrMissingSearchService
	case p.Chunks == nil:
		return ErrMissingChunkService
	}
	return nil
}
