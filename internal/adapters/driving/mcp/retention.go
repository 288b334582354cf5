package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// EmptyInput is the input of tools that take no arguments.
type EmptyInput struct{}

// PreviewOutput is the output schema for the rlm_retention_preview tool.
type PreviewOutput struct {
	Status            domain.Status          `json:"status"`
	ArchiveCandidates []ArchiveCandidateView `json:"archive_candidates"`
	PurgeCandidates   []PurgeCandidateView   `json:"purge_candidates"`
}

// RetentionRunInput is the input schema for the rlm_retention_run tool.
type RetentionRunInput struct {
	Archive *bool `json:"archive,omitempty" jsonschema:"archive stale chunks (default true)"`
	Purge   bool  `json:"purge,omitempty" jsonschema:"permanently delete old archives (default false)"`
}

// RetentionRunOutput is the output schema for the rlm_retention_run tool.
type RetentionRunOutput struct {
	Status   domain.Status `json:"status"`
	Archived []string      `json:"archived"`
	Purged   []string      `json:"purged"`
	Errors   []string      `json:"errors"`
}

// RestoreInput is the input schema for the rlm_restore tool.
type RestoreInput struct {
	ChunkID string `json:"chunk_id" jsonschema:"the archived chunk to bring back"`
}

// RestoreOutput is the output schema for the rlm_restore tool.
type RestoreOutput struct {
	Status  domain.Status `json:"status"`
	Message string        `json:"message,omitempty"`
	Chunk   *ChunkView    `json:"chunk,omitempty"`
}

func (s *Server) registerRetentionTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_retention_preview",
		Description: "List the chunks a retention run would archive or purge, without changing anything",
	}, s.handleRetentionPreview)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_retention_run",
		Description: "Archive stale chunks and optionally purge old archives",
	}, s.handleRetentionRun)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rlm_restore",
		Description: "Restore an archived chunk to the active tier",
	}, s.handleRestore)
}

func (s *Server) handleRetentionPreview(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, PreviewOutput, error) {
	preview, err := s.ports.Retention.Preview(ctx)
	if err != nil {
		return nil, PreviewOutput{}, err
	}
	out := PreviewOutput{
		Status:            domain.StatusPreview,
		ArchiveCandidates: make([]ArchiveCandidateView, len(preview.ArchiveCandidates)),
		PurgeCandidates:   make([]PurgeCandidateView, len(preview.PurgeCandidates)),
	}
	for i, c := range preview.ArchiveCandidates {
		out.ArchiveCandidates[i] = ArchiveCandidateView{
			ID:          c.ID,
			Summary:     c.Summary,
			CreatedAt:   formatTime(c.CreatedAt),
			AccessCount: c.AccessCount,
			Tags:        c.Tags.Slice(),
		}
	}
	for i, c := range preview.PurgeCandidates {
		out.PurgeCandidates[i] = PurgeCandidateView{
			ID:         c.ID,
			Summary:    c.Summary,
			ArchivedAt: formatTime(c.ArchivedAt),
		}
	}
	return nil, out, nil
}

func (s *Server) handleRetentionRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetentionRunInput,
) (*mcp.CallToolResult, RetentionRunOutput, error) {
	opts := driving.RetentionRunOptions{Archive: true, Purge: input.Purge}
	if input.Archive != nil {
		opts.Archive = *input.Archive
	}
	report, err := s.ports.Retention.Run(ctx, opts)
	if err != nil {
		return nil, RetentionRunOutput{}, err
	}
	return nil, RetentionRunOutput{
		Status:   domain.StatusCompleted,
		Archived: orEmpty(report.Archived),
		Purged:   orEmpty(report.Purged),
		Errors:   orEmpty(report.Errors),
	}, nil
}

func (s *Server) handleRestore(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RestoreInput,
) (*mcp.CallToolResult, RestoreOutput, error) {
	c, err := s.ports.Retention.Restore(ctx, input.ChunkID)
	if err != nil {
		status, msg, toolErr := failure(err)
		return nil, RestoreOutput{Status: status, Message: msg}, toolErr
	}
	return nil, RestoreOutput{Status: domain.StatusRestored, Chunk: chunkView(c)}, nil
}
