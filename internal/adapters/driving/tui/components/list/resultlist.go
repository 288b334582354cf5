// Package list renders ranked recall hits for the search view.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/rlm/internal/core/domain"
)

// rowHeight is the number of terminal lines one hit occupies.
const rowHeight = 2

// ResultList is a scrolling window over search hits. The cursor always
// stays inside the visible window.
type ResultList struct {
	items  []domain.SearchResult
	cursor int
	offset int

	styles *styles.Styles
	width  int
	height int
}

// NewResultList returns an empty list. Nil styles means the defaults.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ResultList{styles: s, width: 80, height: 10}
}

// SetResults replaces the hits and resets the cursor.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.items = results
	r.cursor = 0
	r.offset = 0
}

// Results returns the hits in rank order.
func (r *ResultList) Results() []domain.SearchResult { return r.items }

// Count returns the number of hits.
func (r *ResultList) Count() int { return len(r.items) }

// IsEmpty reports whether there is nothing to show.
func (r *ResultList) IsEmpty() bool { return len(r.items) == 0 }

// Selected returns the cursor position.
func (r *ResultList) Selected() int { return r.cursor }

// SelectedResult returns the hit under the cursor, or nil.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if r.cursor < 0 || r.cursor >= len(r.items) {
		return nil
	}
	return &r.items[r.cursor]
}

// MoveUp moves the cursor one hit up.
func (r *ResultList) MoveUp() { r.moveTo(r.cursor - 1) }

// MoveDown moves the cursor one hit down.
func (r *ResultList) MoveDown() { r.moveTo(r.cursor + 1) }

// PageUp moves the cursor one window up.
func (r *ResultList) PageUp() { r.moveTo(r.cursor - r.visibleRows()) }

// PageDown moves the cursor one window down.
func (r *ResultList) PageDown() { r.moveTo(r.cursor + r.visibleRows()) }

// Top jumps to the best hit.
func (r *ResultList) Top() { r.moveTo(0) }

// Bottom jumps to the last hit.
func (r *ResultList) Bottom() { r.moveTo(len(r.items) - 1) }

func (r *ResultList) moveTo(i int) {
	if len(r.items) == 0 {
		return
	}
	r.cursor = min(max(i, 0), len(r.items)-1)
	r.follow()
}

// follow scrolls the window so the cursor is visible.
func (r *ResultList) follow() {
	rows := r.visibleRows()
	if r.cursor < r.offset {
		r.offset = r.cursor
	}
	if r.cursor >= r.offset+rows {
		r.offset = r.cursor - rows + 1
	}
}

func (r *ResultList) visibleRows() int {
	return max((r.height-2)/rowHeight, 1)
}

// SetDimensions resizes the list and keeps the cursor in view.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
	r.follow()
}

// Width returns the render width.
func (r *ResultList) Width() int { return r.width }

// Height returns the render height.
func (r *ResultList) Height() int { return r.height }

// View renders a count header followed by the visible window.
func (r *ResultList) View() string {
	if len(r.items) == 0 {
		return r.styles.Muted.Render("No results")
	}

	var b strings.Builder
	b.WriteString(r.styles.Subtitle.Render(r.header()))
	b.WriteString("\n")

	end := min(r.offset+r.visibleRows(), len(r.items))
	for i := r.offset; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(r.row(i))
	}
	if end < len(r.items) {
		b.WriteString("\n")
		b.WriteString(r.styles.Muted.Render(fmt.Sprintf("  ... %d more", len(r.items)-end)))
	}
	return b.String()
}

func (r *ResultList) header() string {
	insights := 0
	for i := range r.items {
		if r.items[i].Type == domain.ResultTypeInsight {
			insights++
		}
	}
	chunks := len(r.items) - insights
	if insights == 0 {
		return fmt.Sprintf("%d %s", chunks, plural(chunks, "chunk"))
	}
	return fmt.Sprintf("%d %s, %d %s", chunks, plural(chunks, "chunk"), insights, plural(insights, "insight"))
}

func (r *ResultList) row(i int) string {
	hit := &r.items[i]
	labelWidth := max(r.width-20, 10)

	label := hit.ID
	if hit.Type == domain.ResultTypeInsight {
		label = truncate(strings.TrimPrefix(label, domain.InsightIDPrefix), labelWidth-10) + " [insight]"
	}
	label = fmt.Sprintf("%-*s", labelWidth, truncate(label, labelWidth))
	score := fmt.Sprintf("%.3f", hit.Score)

	var title string
	switch {
	case i == r.cursor:
		title = r.styles.Selected.Render("> " + label + "  " + score)
	case hit.Type == domain.ResultTypeInsight:
		title = r.styles.Insight.Render("  "+label+"  ") + r.styles.Score.Render(score)
	default:
		title = r.styles.Normal.Render("  "+label+"  ") + r.styles.Score.Render(score)
	}

	summary := strings.Join(strings.Fields(hit.Summary), " ")
	if summary == "" {
		summary = "(no summary)"
	}
	return title + "\n" + r.styles.Muted.Render("    "+truncate(summary, max(r.width-6, 20)))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// truncate cuts s to n runes, ending with "..." when it had to cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	switch {
	case len(runes) <= n:
		return s
	case n <= 3:
		return string(runes[:max(n, 0)])
	default:
		return string(runes[:n-3]) + "..."
	}
}
