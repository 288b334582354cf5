package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

const (
	// uriScheme is the URI scheme for chunk resources.
	uriScheme = "chunk://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "{chunkId}",
		Name:        "chunk-content",
		Description: "Full content of a stored chunk; archived chunks are restored on read",
		MIMEType:    "text/markdown",
	}, s.handleChunkResource)
}

// handleChunkResource returns the content of a specific chunk.
func (s *Server) handleChunkResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract chunkId from URI: chunk://{chunkId}
	chunkID := extractChunkID(req.Params.URI)
	if chunkID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	res, err := s.ports.Chunks.Peek(ctx, chunkID, 0, 0)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidChunkID) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading chunk: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     res.Content,
		}},
	}, nil
}

// extractChunkID extracts the chunk ID from a URI like chunk://{chunkId}.
func extractChunkID(uri string) string {
	if !strings.HasPrefix(uri, uriScheme) {
		return ""
	}
	id := strings.TrimPrefix(uri, uriScheme)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
