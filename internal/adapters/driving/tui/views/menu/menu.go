// Package menu is the landing screen of the TUI.
package menu

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
)

// Item is one entry on the landing screen. Shortcut jumps straight to it.
type Item struct {
	Label    string
	Hint     string
	Shortcut string
	View     messages.ViewType
	Quit     bool
}

func (it Item) activate() tea.Cmd {
	if it.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: it.View}
	}
}

var defaultItems = []Item{
	{Label: "Search memory", Hint: "recall chunks and insights", Shortcut: "/", View: messages.ViewSearch},
	{Label: "Settings", Hint: "search mode, embeddings, retention", Shortcut: "s", View: messages.ViewSettings},
	{Label: "Help", Hint: "keys and tiers", Shortcut: "?", View: messages.ViewHelp},
	{Label: "Quit", Shortcut: "q", Quit: true},
}

// View is the landing screen.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	items  []Item
	cursor int

	width  int
	height int
	ready  bool
}

// NewView creates the landing screen with the cursor on search.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	items := make([]Item, len(defaultItems))
	copy(items, defaultItems)
	return &View{
		styles: s,
		keymap: keymap.DefaultKeyMap(),
		items:  items,
		width:  80,
		height: 24,
	}
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update moves the cursor and activates entries.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keymap.Up):
		v.cursor = max(v.cursor-1, 0)
		return nil
	case key.Matches(msg, v.keymap.Down):
		v.cursor = min(v.cursor+1, len(v.items)-1)
		return nil
	case key.Matches(msg, v.keymap.Submit):
		return v.items[v.cursor].activate()
	}
	for i, it := range v.items {
		if msg.String() == it.Shortcut {
			v.cursor = i
			return it.activate()
		}
	}
	return nil
}

// View renders the entries with their shortcuts.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("rlm"))
	b.WriteString("  ")
	b.WriteString(v.styles.Muted.Render("Agent memory: chunks, insights and archive"))
	b.WriteString("\n\n")

	for i, it := range v.items {
		marker, label := "  ", v.styles.Normal.Render(it.Label)
		if i == v.cursor {
			marker, label = "> ", v.styles.Subtitle.Render(it.Label)
		}
		fmt.Fprintf(&b, "%s%s %s", marker, v.styles.Muted.Render("["+it.Shortcut+"]"), label)
		if it.Hint != "" {
			b.WriteString(v.styles.Muted.Render("  " + it.Hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] move  [enter] open  [q] quit"))
	return b.String()
}

// SetDimensions records the terminal size and marks the view ready.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Items returns the entries in display order.
func (v *View) Items() []Item {
	return v.items
}

// Selected returns the cursor position.
func (v *View) Selected() int {
	return v.cursor
}
