package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTUICmd_Exists(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Use == "tui" {
			found = true
			break
		}
	}
	assert.True(t, found, "tui command should be registered")
}

func TestTUICmd_ShortDescription(t *testing.T) {
	assert.Equal(t, "Launch the interactive terminal UI", tuiCmd.Short)
}

func TestTUICmd_LongDescription(t *testing.T) {
	assert.Contains(t, tuiCmd.Long, "restores it")
	assert.Contains(t, tuiCmd.Long, "ctrl+c")
}

func TestNewTUIPorts(t *testing.T) {
	ts, cleanup := installMocks()
	defer cleanup()

	ports := newTUIPorts()

	require.NoError(t, ports.Validate())
	assert.Same(t, ts.search, ports.Search)
	assert.Same(t, ts.chunks, ports.Chunks)
	assert.Nil(t, ports.Settings)
}

func TestTUICmd_NeedsTerminal(t *testing.T) {
	_, cleanup := installMocks()
	defer cleanup()

	_, err := execute(t, "tui")

	assert.ErrorIs(t, err, errNotATerminal)
}

func TestTUICmd_FailsWithoutServices(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	chunkService = nil

	_, err := execute(t, "tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create TUI")
}
