// Package help lists the key bindings and explains the memory tiers.
package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
)

var tiers = [][2]string{
	{"active", "searchable by keyword and by meaning"},
	{"archived", "compressed after a quiet spell, still searchable"},
	{"purged", "deleted for good; only the purge log remembers it"},
}

// View is the help screen.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model
}

// NewView builds the help screen from the shared key map.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	h := help.New()
	h.ShowAll = true
	h.Styles.FullKey = s.Subtitle
	h.Styles.FullDesc = s.Muted
	h.Styles.FullSeparator = s.Muted
	return &View{styles: s, keymap: keymap.DefaultKeyMap(), help: h}
}

// Update returns to the menu on back or quit.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, v.keymap.Back) || key.Matches(msg, v.keymap.Quit) {
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
		}
	}
	return v, nil
}

func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	b.WriteString(v.help.View(v.keymap))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Subtitle.Render("Memory tiers"))
	b.WriteString("\n")
	for _, t := range tiers {
		b.WriteString("  ")
		b.WriteString(v.styles.Normal.Render(t[0]))
		b.WriteString(strings.Repeat(" ", 10-len(t[0])))
		b.WriteString(v.styles.Muted.Render(t[1]))
		b.WriteString("\n")
	}
	b.WriteString("\nOpening an archived chunk restores it.\n\n")
	b.WriteString(v.styles.Help.Render("[esc] back to menu"))
	return b.String()
}

// SetDimensions wraps the binding columns to width.
func (v *View) SetDimensions(width, _ int) {
	v.help.Width = width
}
