// Package input provides the query prompt of the search view.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
)

// MaxQueryLength caps the typed query in runes.
const MaxQueryLength = 512

const minFieldWidth = 20

// QueryInput is a single-line prompt for memory queries. A badge next
// to the prompt shows which tiers of memory a query reaches.
type QueryInput struct {
	field  textinput.Model
	styles *styles.Styles
	width  int

	includeInsights bool
}

// NewQueryInput creates a focused query prompt.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	field := textinput.New()
	field.Prompt = "> "
	field.Placeholder = "what do you remember about..."
	field.CharLimit = MaxQueryLength
	field.Focus()

	q := &QueryInput{field: field, styles: s}
	q.SetWidth(80)
	return q
}

// Init starts the cursor blinking.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards keys and cursor ticks to the field.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	var cmd tea.Cmd
	q.field, cmd = q.field.Update(msg)
	return q, cmd
}

// View renders the scope badge followed by the field.
func (q *QueryInput) View() string {
	badge := q.styles.Muted.Render("[" + q.Scope() + "]")
	field := q.styles.InputField.Render(q.field.View())
	//nolint:misspell // lipgloss.Center is the library's spelling
	return lipgloss.JoinHorizontal(lipgloss.Center, q.styles.Title.Render("Recall "), badge, " ", field)
}

// Scope names the tiers the next query searches.
func (q *QueryInput) Scope() string {
	if q.includeInsights {
		return "chunks+insights"
	}
	return "chunks"
}

// SetIncludeInsights switches the badge.
func (q *QueryInput) SetIncludeInsights(include bool) {
	q.includeInsights = include
}

// Value returns the raw text.
func (q *QueryInput) Value() string {
	return q.field.Value()
}

// Query returns the text with surrounding blanks removed; "" means there
// is nothing to search for.
func (q *QueryInput) Query() string {
	return strings.TrimSpace(q.field.Value())
}

// SetValue replaces the text.
func (q *QueryInput) SetValue(value string) {
	q.field.SetValue(value)
}

// Focus gives the field the cursor.
func (q *QueryInput) Focus() tea.Cmd {
	return q.field.Focus()
}

// Blur hides the cursor while the result list has focus.
func (q *QueryInput) Blur() {
	q.field.Blur()
}

// Focused reports whether the field has the cursor.
func (q *QueryInput) Focused() bool {
	return q.field.Focused()
}

// SetWidth fits the field to the terminal, leaving room for the label
// and badge.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	used := lipgloss.Width("Recall [chunks+insights]  " + q.field.Prompt)
	q.field.Width = max(width-used-4, minFieldWidth)
}

// Width returns the width last set.
func (q *QueryInput) Width() int {
	return q.width
}

// Clear empties the field and focuses it for a new query.
func (q *QueryInput) Clear() tea.Cmd {
	q.field.Reset()
	return q.field.Focus()
}
