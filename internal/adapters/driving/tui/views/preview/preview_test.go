package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

type stubChunks struct {
	content  string
	restored bool
	err      error

	lastID         string
	lastStart, end int
}

func (s *stubChunks) Create(context.Context, driving.ChunkRequest) (*driving.ChunkOutcome, error) {
	return nil, errors.New("unused")
}

func (s *stubChunks) Peek(_ context.Context, id string, start, end int) (*driving.PeekResult, error) {
	s.lastID, s.lastStart, s.end = id, start, end
	if s.err != nil {
		return nil, s.err
	}
	return &driving.PeekResult{ID: id, Content: s.content, Restored: s.restored}, nil
}

func (s *stubChunks) Grep(context.Context, driving.GrepRequest) (*driving.GrepResult, error) {
	return nil, errors.New("unused")
}

func (s *stubChunks) List(context.Context, driving.ListRequest) (*driving.ChunkListing, error) {
	return nil, errors.New("unused")
}

func chunkHit(id string) domain.SearchResult {
	return domain.SearchResult{ID: id, Type: domain.ResultTypeChunk, Score: 1}
}

func numbered(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func load(t *testing.T, v *View, hit domain.SearchResult) {
	t.Helper()
	cmd := v.SetResult(hit)
	require.NotNil(t, cmd)
	v.Update(cmd())
}

func TestSetResult_ReadsWholeChunk(t *testing.T) {
	chunks := &stubChunks{content: "hello\nworld"}
	v := NewView(nil, chunks)

	cmd := v.SetResult(chunkHit("notes-1"))
	assert.True(t, v.Loading())
	v.Update(cmd())

	assert.False(t, v.Loading())
	assert.Equal(t, "notes-1", chunks.lastID)
	assert.Equal(t, 0, chunks.lastStart)
	assert.Equal(t, 0, chunks.end)
	assert.Equal(t, "hello\nworld", v.Content())
	assert.Contains(t, v.View(), "world")
}

func TestSetResult_Insight(t *testing.T) {
	chunks := &stubChunks{}
	v := NewView(nil, chunks)

	cmd := v.SetResult(domain.SearchResult{ID: "insight:abc", Type: domain.ResultTypeInsight, Summary: "use WAL"})

	assert.Nil(t, cmd)
	assert.Empty(t, chunks.lastID)
	assert.Equal(t, "use WAL", v.Content())
}

func TestSetResult_Restored(t *testing.T) {
	v := NewView(nil, &stubChunks{content: "archived body", restored: true})

	load(t, v, chunkHit("old"))

	assert.True(t, v.Restored())
	assert.Contains(t, v.View(), "restored from archive")
}

func TestSetResult_Error(t *testing.T) {
	v := NewView(nil, &stubChunks{err: domain.ErrNotFound})

	load(t, v, chunkHit("gone"))

	assert.ErrorIs(t, v.Err(), domain.ErrNotFound)
	assert.Contains(t, v.View(), "Error: not found")
}

func TestLoad_NoService(t *testing.T) {
	msg := Load(context.Background(), nil, "x")()

	loaded, ok := msg.(messages.PreviewLoaded)
	require.True(t, ok)
	assert.ErrorIs(t, loaded.Err, ErrNoChunkService)
}

func TestUpdate_IgnoresOtherChunk(t *testing.T) {
	v := NewView(nil, &stubChunks{content: "mine"})
	v.SetResult(chunkHit("a"))

	v.Update(messages.PreviewLoaded{ID: "b", Result: &driving.PeekResult{Content: "theirs"}})

	assert.Equal(t, "", v.Content())
	assert.True(t, v.Loading())
}

func TestScrolling(t *testing.T) {
	v := NewView(nil, &stubChunks{content: numbered(100)})
	v.SetDimensions(80, 20)
	load(t, v, chunkHit("long"))

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, v.ScrollOffset())

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	assert.Equal(t, 100-14, v.ScrollOffset())

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 100-14, v.ScrollOffset())

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	assert.Equal(t, 0, v.ScrollOffset())

	v.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 14, v.ScrollOffset())

	v.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 0, v.ScrollOffset())

	assert.Contains(t, v.View(), "Line 1-14 of 100")
}

func TestEscReturnsToSearch(t *testing.T) {
	v := NewView(nil, nil)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	changed, ok := cmd().(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewSearch, changed.View)
}

func TestWrap(t *testing.T) {
	long := strings.Repeat("x", 45)

	lines := Wrap("short\n"+long, 20)

	assert.Equal(t, []string{"short", strings.Repeat("x", 20), strings.Repeat("x", 20), "xxxxx"}, lines)
}

func TestWrap_MinimumWidth(t *testing.T) {
	lines := Wrap(strings.Repeat("y", 25), 5)

	require.Len(t, lines, 2)
	assert.Len(t, lines[0], 20)
}

func TestWrap_Multibyte(t *testing.T) {
	lines := Wrap(strings.Repeat("é", 30), 20)

	require.Len(t, lines, 2)
	assert.Equal(t, 20, len([]rune(lines[0])))
}

func TestView_Empty(t *testing.T) {
	v := NewView(nil, &stubChunks{content: ""})
	load(t, v, chunkHit("blank"))

	assert.Contains(t, v.View(), "(No content)")
}
