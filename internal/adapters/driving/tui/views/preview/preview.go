// Package preview provides the full screen chunk view for the TUI.
package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// ErrNoChunkService is reported when a chunk is opened without a backend.
var ErrNoChunkService = errors.New("chunk service is required")

// View shows one search hit in full. Chunks are read through Peek, so
// opening an archived chunk restores it; insights show their summary.
type View struct {
	styles       *styles.Styles
	keymap       *keymap.KeyMap
	chunkService driving.ChunkService
	ctx          context.Context

	result       *domain.SearchResult
	content      string
	restored     bool
	lines        []string
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
}

// NewView creates a new preview view.
func NewView(s *styles.Styles, chunkService driving.ChunkService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:       s,
		keymap:       keymap.DefaultKeyMap(),
		chunkService: chunkService,
		ctx:          context.Background(),
		width:        80,
		height:       24,
	}
}

// WithContext sets the context used for reads.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetResult selects the hit to show and returns the command that loads it.
func (v *View) SetResult(result domain.SearchResult) tea.Cmd {
	v.result = &result
	v.content = ""
	v.restored = false
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil

	if result.Type == domain.ResultTypeInsight {
		v.content = result.Summary
		v.wrapContent()
		return nil
	}

	v.loading = true
	return Load(v.ctx, v.chunkService, result.ID)
}

// Load returns a command that reads a whole chunk through Peek.
func Load(ctx context.Context, chunks driving.ChunkService, id string) tea.Cmd {
	return func() tea.Msg {
		if chunks == nil {
			return messages.PreviewLoaded{ID: id, Err: ErrNoChunkService}
		}
		res, err := chunks.Peek(ctx, id, 0, 0)
		return messages.PreviewLoaded{ID: id, Result: res, Err: err}
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the preview view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.PreviewLoaded:
		if v.result == nil || msg.ID != v.result.ID {
			return v, nil
		}
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.content = msg.Result.Content
		v.restored = msg.Result.Restored
		v.wrapContent()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	km := v.keymap
	switch {
	case key.Matches(msg, km.Up):
		v.scrollOffset = max(v.scrollOffset-1, 0)
	case key.Matches(msg, km.Down):
		v.scrollOffset = min(v.scrollOffset+1, v.maxScrollOffset())
	case key.Matches(msg, km.PageUp):
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case key.Matches(msg, km.PageDown):
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case key.Matches(msg, km.Top):
		v.scrollOffset = 0
	case key.Matches(msg, km.Bottom):
		v.scrollOffset = v.maxScrollOffset()
	case key.Matches(msg, km.Back, km.Quit):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewSearch}
		}
	}
	return v, nil
}

// wrapContent hard-wraps the body to the view width.
func (v *View) wrapContent() {
	if v.content == "" {
		v.lines = nil
		return
	}
	v.lines = Wrap(v.content, v.width-4)
}

// Wrap splits text into lines no wider than width runes.
func Wrap(text string, width int) []string {
	if width < 20 {
		width = 20
	}
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		runes := []rune(line)
		for len(runes) > width {
			out = append(out, string(runes[:width]))
			runes = runes[width:]
		}
		out = append(out, string(runes))
	}
	return out
}

func (v *View) visibleLines() int {
	// title, separator, footer and padding
	available := v.height - 6
	if available < 1 {
		available = 1
	}
	return available
}

func (v *View) maxScrollOffset() int {
	maxOffset := len(v.lines) - v.visibleLines()
	if maxOffset < 0 {
		maxOffset = 0
	}
	return maxOffset
}

// View renders the preview.
func (v *View) View() string {
	var b strings.Builder

	title := "Preview"
	if v.result != nil {
		title = v.result.ID
	}
	b.WriteString(v.styles.Title.Render(title))
	if v.restored {
		b.WriteString(" ")
		b.WriteString(v.styles.Badge("restored from archive", v.styles.Archived))
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(v.width-4, 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading chunk..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		visible := v.visibleLines()
		for i := v.scrollOffset; i < len(v.lines) && i < v.scrollOffset+visible; i++ {
			b.WriteString(v.styles.Normal.Render(v.lines[i]))
			b.WriteString("\n")
		}
		if len(v.lines) > visible {
			b.WriteString("\n")
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  Line %d-%d of %d",
				v.scrollOffset+1,
				min(v.scrollOffset+visible, len(v.lines)),
				len(v.lines))))
		}
	}

	b.WriteString("\n\n")
	hints := make([]string, 0, 5)
	for _, kb := range v.keymap.PagerHelp() {
		hints = append(hints, "["+kb.Help().Key+"] "+kb.Help().Desc)
	}
	b.WriteString(v.styles.Help.Render(strings.Join(hints, "  ")))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.wrapContent()
}

// Result returns the hit being shown.
func (v *View) Result() *domain.SearchResult {
	return v.result
}

// Content returns the loaded body.
func (v *View) Content() string {
	return v.content
}

// Restored reports whether opening the chunk brought it back from the archive.
func (v *View) Restored() bool {
	return v.restored
}

// Loading reports whether a read is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
