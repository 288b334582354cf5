// Package tui is the interactive terminal front end of rlm.
package tui

import (
	"errors"

	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

var (
	ErrInvalidPorts         = errors.New("tui: no ports")
	ErrMissingSearchService = errors.New("tui: search service is required")
	ErrMissingChunkService  = errors.New("tui: chunk service is required")
)

// Ports are the services the TUI drives. Settings may be nil, in which
// case the settings screen says so instead of loading.
type Ports struct {
	Search   driving.SearchService
	Chunks   driving.ChunkService
	Settings driving.SettingsService
}

// NewPorts returns Ports with the two required services.
func NewPorts(search driving.SearchService, chunks driving.ChunkService) *Ports {
	return &Ports{Search: search, Chunks: chunks}
}

// Validate reports the first missing required service.
func (p *Ports) Validate() error {
	switch {
	case p == nil:
		return ErrInvalidPorts
	case p.Search == nil:
		return ErrMissingSearchService
	case p.Chunks == nil:
		return ErrMissingChunkService
	}
	return nil
}
