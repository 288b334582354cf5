// Package styles holds the palette and lipgloss styles shared by the views.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette names the colours of the interface by role.
type Palette struct {
	Accent    lipgloss.Color
	Highlight lipgloss.Color
	Surface   lipgloss.Color
	Text      lipgloss.Color
	Dim       lipgloss.Color
	Good      lipgloss.Color
	Caution   lipgloss.Color
	Bad       lipgloss.Color
	Frame     lipgloss.Color
	Bar       lipgloss.Color
}

// DefaultPalette is a dark palette with a teal accent.
func DefaultPalette() *Palette {
	return &Palette{
		Accent:    lipgloss.Color("#0F766E"),
		Highlight: lipgloss.Color("#F59E0B"),
		Surface:   lipgloss.Color("#1E1E2E"),
		Text:      lipgloss.Color("#CDD6F4"),
		Dim:       lipgloss.Color("#6C7086"),
		Good:      lipgloss.Color("#A6E3A1"),
		Caution:   lipgloss.Color("#F9E2AF"),
		Bad:       lipgloss.Color("#F38BA8"),
		Frame:     lipgloss.Color("#45475A"),
		Bar:       lipgloss.Color("#181825"),
	}
}

// Styles are the rendered styles derived from a palette.
type Styles struct {
	palette *Palette

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Help     lipgloss.Style

	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Border     lipgloss.Style

	// Score renders fused relevance scores.
	Score lipgloss.Style
	// Insight marks insight hits among chunks.
	Insight lipgloss.Style
	// Archived marks content served from the compressed tier.
	Archived lipgloss.Style
}

// NewStyles derives styles from p, or from DefaultPalette when p is nil.
func NewStyles(p *Palette) *Styles {
	if p == nil {
		p = DefaultPalette()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	framed := lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(p.Frame)

	return &Styles{
		palette: p,

		Title:    fg(p.Accent).Bold(true),
		Subtitle: fg(p.Highlight).Bold(true),
		Normal:   fg(p.Text),
		Muted:    fg(p.Dim),
		Selected: fg(p.Text).Background(p.Accent).Bold(true),
		Help:     fg(p.Dim),

		Error:   fg(p.Bad),
		Success: fg(p.Good),
		Warning: fg(p.Caution),

		InputField: framed.Padding(0, 1),
		StatusBar:  fg(p.Dim).Background(p.Bar).Padding(0, 1),
		Border:     framed,

		Score:    fg(p.Highlight),
		Insight:  fg(p.Good).Italic(true),
		Archived: fg(p.Caution).Faint(true),
	}
}

// DefaultStyles derives styles from DefaultPalette.
func DefaultStyles() *Styles {
	return NewStyles(nil)
}

// Palette returns the colours the styles were built from.
func (s *Styles) Palette() *Palette {
	return s.palette
}

// Badge renders a bracketed label such as "[archived]".
func (s *Styles) Badge(label string, style lipgloss.Style) string {
	return style.Render("[" + label + "]")
}
