package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// SessionsInput is the input schema for the rlm_sessions tool.
type SessionsInput struct {
	Project string `json:"project,omitempty" jsonschema:"only list sessions of this project"`
	Domain  string `json:"domain,omitempty" jsonschema:"only list sessions of this domain"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of sessions (default 10)"`
}

// SessionsOutput is the output schema for the rlm_sessions tool.
type SessionsOutput struct {
	Status   domain.Status `json:"status"`
	Current  string        `json:"current,omitempty"`
	Sessions []SessionView `json:"sessions"`
	Count    int           `json:"count"`
}

// DomainsOutput is the output schema for the rlm_domains tool.
type DomainsOutput struct {
	Status  domain.Status       `json:"status"`
	Domains map[string][]string `json:"domains"`
}

// StatusOutput is the output schema for the rlm_status tool.
type StatusOutput struct {
	Status         domain.Status  `json:"status"`
	ActiveChunks   int            `json:"active_chunks"`
	ActiveTokens   int            `json:"active_tokens"`
	ArchivedChunks int            `json:"archived_chunks"`
	ArchiveBytes   int64          `json:"archive_bytes"`
	BytesSaved     int64          `json:"bytes_saved"`
	Insights       int            `json:"insights"`
	ByCategory     map[string]int `json:"insights_by_category,omitempty"`
	CurrentSession string         `json:"current_session,omitempty"`
}

func (s *Server) registerSessionTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_sessions",
		Description: "List work sessions, most recent first",
	}, s.handleSessions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_domains",
		Description: "List suggested domain labels for chunks",
	}, s.handleDomains)
}

func (s *Server) registerStatusTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_status",
		Description: "Summarise stored chunks, archives and insights",
	}, s.handleStatus)
}

func (s *Server) handleSessions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionsInput,
) (*mcp.CallToolResult, SessionsOutput, error) {
	sessions, err := s.ports.Sessions.List(ctx, driving.SessionFilter{
		Project: input.Project,
		Domain:  input.Domain,
		Limit:   input.Limit,
	})
	if err != nil {
		return nil, SessionsOutput{}, err
	}
	current, err := s.ports.Sessions.Current(ctx)
	if err != nil {
		return nil, SessionsOutput{}, err
	}

	out := SessionsOutput{
		Status:   domain.StatusSuccess,
		Current:  current,
		Sessions: make([]SessionView, len(sessions)),
		Count:    len(sessions),
	}
	for i := range sessions {
		out.Sessions[i] = sessionView(&sessions[i])
	}
	return nil, out, nil
}

func (s *Server) handleDomains(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, DomainsOutput, error) {
	domains, err := s.ports.Sessions.Domains(ctx)
	if err != nil {
		return nil, DomainsOutput{}, err
	}
	return nil, DomainsOutput{Status: domain.StatusSuccess, Domains: domains}, nil
}

// handleStatus gathers totals from every port that is wired.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	out := StatusOutput{Status: domain.StatusSuccess}

	listing, err := s.ports.Chunks.List(ctx, driving.ListRequest{Limit: 1})
	if err != nil {
		return nil, StatusOutput{}, err
	}
	out.ActiveChunks = listing.TotalChunks
	out.ActiveTokens = listing.TotalTokens

	if s.ports.Retention != nil {
		stats, err := s.ports.Retention.Stats(ctx)
		if err != nil {
			return nil, StatusOutput{}, err
		}
		out.ArchivedChunks = stats.Count
		out.ArchiveBytes = stats.TotalCompressedSize
		out.BytesSaved = stats.TotalOriginalSize - stats.TotalCompressedSize
	}

	if s.ports.Insights != nil {
		stats, err := s.ports.Insights.Status(ctx)
		if err != nil {
			return nil, StatusOutput{}, err
		}
		out.Insights = stats.Total
		out.ByCategory = stats.ByCategory
	}

	if s.ports.Sessions != nil {
		current, err := s.ports.Sessions.Current(ctx)
		if err != nil {
			return nil, StatusOutput{}, err
		}
		out.CurrentSession = current
	}
	return nil, out, nil
}
