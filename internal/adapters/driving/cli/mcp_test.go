package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/adapters/driving/mcp"
)

func TestMCPServe_RejectsBadPort(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "mcp", "serve", "--port", "70000")

	require.Error(t, err)
	assert.EqualError(t, err, "invalid port 70000")
}

func TestMCPServe_NeedsServices(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	SetServices(nil)

	_, err := execute(t, "mcp", "serve")

	assert.ErrorIs(t, err, mcp.ErrMissingSearchService)
}
