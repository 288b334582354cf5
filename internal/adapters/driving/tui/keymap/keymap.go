// Package keymap holds the key bindings shared by the TUI views.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap groups bindings by what they act on: the app, the query prompt,
// the result list and the preview pager.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	Submit key.Binding

	Up             key.Binding
	Down           key.Binding
	Preview        key.Binding
	Open           key.Binding
	NewQuery       key.Binding
	ToggleInsights key.Binding

	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns vim-flavoured bindings alongside the arrow keys.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: bind("q", "quit", "q", "ctrl+c"),
		Help: bind("?", "help", "?"),
		Back: bind("esc", "back", "esc"),

		Submit: bind("enter", "recall", "enter"),

		Up:             bind("↑/k", "up", "up", "k"),
		Down:           bind("↓/j", "down", "down", "j"),
		Preview:        bind("enter", "preview", "enter", "p"),
		Open:           bind("o", "open", "o"),
		NewQuery:       bind("n", "new query", "n"),
		ToggleInsights: bind("i", "insights", "i"),

		PageUp:   bind("pgup", "page up", "pgup", "ctrl+u"),
		PageDown: bind("pgdn", "page down", "pgdown", "ctrl+d"),
		Top:      bind("g", "top", "home", "g"),
		Bottom:   bind("G", "bottom", "end", "G"),
	}
}

// ShortHelp is shown while the prompt has focus.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Back, k.Quit}
}

// ResultsHelp is shown while a non-empty result list has focus.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.Preview, k.Open, k.ToggleInsights, k.NewQuery, k.Back}
}

// PagerHelp is shown in the full-screen preview.
func (k *KeyMap) PagerHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.PageUp, k.PageDown, k.Back}
}

// FullHelp lists every binding, one column per area.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.NewQuery, k.ToggleInsights},
		{k.Up, k.Down, k.Preview, k.Open},
		{k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Back, k.Help, k.Quit},
	}
}
