package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

func results(chunks, insights int) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, chunks+insights)
	for range chunks {
		out = append(out, domain.SearchResult{Type: domain.ResultTypeChunk})
	}
	for range insights {
		out = append(out, domain.SearchResult{Type: domain.ResultTypeInsight})
	}
	return out
}

func TestNewBar(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, 80, bar.Width())
	assert.Contains(t, bar.View(), "Ready")
	assert.Contains(t, bar.View(), "quit")
}

func TestTally_String(t *testing.T) {
	tests := []struct {
		tally Tally
		want  string
	}{
		{Tally{}, "no matches"},
		{Tally{Chunks: 1}, "1 chunk"},
		{Tally{Chunks: 3, Insights: 1}, "3 chunks, 1 insight"},
		{Tally{Insights: 2}, "2 insights"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tally.String())
		})
	}
}

func TestCountResults(t *testing.T) {
	tally := CountResults(results(2, 3))

	assert.Equal(t, Tally{Chunks: 2, Insights: 3}, tally)
	assert.Equal(t, 5, tally.Total())
}

func TestBar_Searching(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.Searching()

	assert.Equal(t, StateSearching, bar.State())
	assert.Contains(t, bar.View(), "Searching memory...")
}

func TestBar_SetResults(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(140)

	bar.SetResults(results(3, 1), "hybrid")

	view := bar.View()
	assert.Equal(t, StateResults, bar.State())
	assert.Equal(t, "hybrid", bar.Method())
	assert.Contains(t, view, "3 chunks, 1 insight via hybrid")
	assert.Contains(t, view, "preview")
}

func TestBar_SetResults_Empty(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetResults(nil, "bm25")

	view := bar.View()
	assert.Contains(t, view, "no matches")
	assert.NotContains(t, view, "via bm25")
	assert.Contains(t, view, "quit")
}

func TestBar_SetError(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetError(errors.New("index corrupt"))

	assert.Equal(t, StateError, bar.State())
	assert.Contains(t, bar.View(), "Error: index corrupt")
}

func TestBar_Message(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(140)
	bar.SetResults(results(1, 0), "bm25")

	bar.SetMessage("Restored c1 from archive")

	assert.Equal(t, "Restored c1 from archive", bar.Message())
	assert.Contains(t, bar.View(), "Restored c1 from archive")
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(100)
	bar.SetResults(results(2, 0), "bm25")
	bar.SetMessage("note")

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, Tally{}, bar.Tally())
	assert.Equal(t, "", bar.Method())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 100, bar.Width())
}
