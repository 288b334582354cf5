// Package status renders the one-line summary under the search view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/rlm/internal/core/domain"
)

// State is what the search view is doing.
type State string

const (
	StateReady     State = "ready"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateError     State = "error"
)

// Tally counts a result set by kind.
type Tally struct {
	Chunks   int
	Insights int
}

// Total is the number of hits.
func (t Tally) Total() int {
	return t.Chunks + t.Insights
}

// String reads like "3 chunks, 1 insight".
func (t Tally) String() string {
	if t.Total() == 0 {
		return "no matches"
	}
	parts := make([]string, 0, 2)
	if t.Chunks > 0 {
		parts = append(parts, plural(t.Chunks, "chunk"))
	}
	if t.Insights > 0 {
		parts = append(parts, plural(t.Insights, "insight"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// CountResults tallies results by type.
func CountResults(results []domain.SearchResult) Tally {
	var t Tally
	for _, r := range results {
		if r.Type == domain.ResultTypeInsight {
			t.Insights++
		} else {
			t.Chunks++
		}
	}
	return t
}

// Bar shows the query state on the left and key hints on the right.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	width  int

	state   State
	tally   Tally
	method  string
	message string
}

// NewBar creates a bar in the ready state.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, width: 80, state: StateReady}
}

// View renders the bar padded to its width.
func (b *Bar) View() string {
	left := b.renderState()
	if b.message != "" && b.state != StateError {
		left += b.styles.Muted.Render(" · " + b.message)
	}
	right := b.renderHints()

	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) renderState() string {
	switch b.state {
	case StateSearching:
		return b.styles.Muted.Render("Searching memory...")
	case StateError:
		if b.message == "" {
			return b.styles.Error.Render("Error")
		}
		return b.styles.Error.Render("Error: " + b.message)
	case StateResults:
		text := b.tally.String()
		if b.method != "" && b.tally.Total() > 0 {
			text += " via " + b.method
		}
		return b.styles.Normal.Render(text)
	case StateReady:
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) renderHints() string {
	var bindings []key.Binding
	if b.state == StateResults && b.tally.Total() > 0 {
		bindings = b.keymap.ResultsHelp()
	} else {
		bindings = b.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// Searching marks a query in flight.
func (b *Bar) Searching() {
	b.state = StateSearching
}

// SetResults records a completed query.
func (b *Bar) SetResults(results []domain.SearchResult, method string) {
	b.state = StateResults
	b.tally = CountResults(results)
	b.method = method
}

// SetError shows err until the next query.
func (b *Bar) SetError(err error) {
	b.state = StateError
	b.message = err.Error()
}

// SetMessage sets a note shown after the state, such as a restore.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// Tally returns the counts of the last result set.
func (b *Bar) Tally() Tally {
	return b.tally
}

// Method returns how the last query was answered.
func (b *Bar) Method() string {
	return b.method
}

// Message returns the current note.
func (b *Bar) Message() string {
	return b.message
}

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the rendered width.
func (b *Bar) Width() int {
	return b.width
}

// Clear returns the bar to the ready state.
func (b *Bar) Clear() {
	*b = Bar{styles: b.styles, keymap: b.keymap, width: b.width, state: StateReady}
}
