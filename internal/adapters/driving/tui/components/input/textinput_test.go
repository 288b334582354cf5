package input

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(q *QueryInput, s string) {
	for _, r := range s {
		q.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewQueryInput(t *testing.T) {
	q := NewQueryInput(nil)

	require.NotNil(t, q)
	assert.NotNil(t, q.styles)
	assert.True(t, q.Focused())
	assert.Equal(t, "", q.Value())
	assert.Equal(t, "chunks", q.Scope())
	assert.NotNil(t, q.Init())
}

func TestQueryInput_Typing(t *testing.T) {
	q := NewQueryInput(nil)

	typeText(q, "  jwt refresh ")

	assert.Equal(t, "  jwt refresh ", q.Value())
	assert.Equal(t, "jwt refresh", q.Query())

	q.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	q.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "  jwt refres", q.Value())
}

func TestQueryInput_BlankQuery(t *testing.T) {
	q := NewQueryInput(nil)
	q.SetValue("   ")

	assert.Equal(t, "", q.Query())
}

func TestQueryInput_CharLimit(t *testing.T) {
	q := NewQueryInput(nil)

	q.SetValue(strings.Repeat("a", MaxQueryLength+10))

	assert.Len(t, q.Value(), MaxQueryLength)
}

func TestQueryInput_Scope(t *testing.T) {
	q := NewQueryInput(nil)

	q.SetIncludeInsights(true)
	assert.Equal(t, "chunks+insights", q.Scope())
	assert.Contains(t, q.View(), "[chunks+insights]")

	q.SetIncludeInsights(false)
	assert.Contains(t, q.View(), "[chunks]")
}

func TestQueryInput_FocusAndClear(t *testing.T) {
	q := NewQueryInput(nil)
	q.SetValue("deploy")

	q.Blur()
	assert.False(t, q.Focused())

	q.Clear()
	assert.True(t, q.Focused())
	assert.Equal(t, "", q.Value())
}

func TestQueryInput_SetWidth(t *testing.T) {
	q := NewQueryInput(nil)

	q.SetWidth(120)
	assert.Equal(t, 120, q.Width())
	wide := q.field.Width

	q.SetWidth(10)
	assert.Equal(t, minFieldWidth, q.field.Width)
	assert.Greater(t, wide, minFieldWidth)
}
