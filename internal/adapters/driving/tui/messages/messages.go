// Package messages holds the tea.Msg values exchanged between TUI views.
package messages

import (
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// ViewType names a screen of the TUI. The zero value is the menu.
type ViewType int

// Screens, in menu order.
const (
	ViewMenu ViewType = iota
	ViewSearch
	ViewPreview
	ViewHelp
	ViewSettings
)

var viewNames = [...]string{
	ViewMenu:     "menu",
	ViewSearch:   "search",
	ViewPreview:  "preview",
	ViewHelp:     "help",
	ViewSettings: "settings",
}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ViewChanged asks the root model to switch screens.
type ViewChanged struct {
	View ViewType
}

// SearchCompleted is the outcome of one recall. Method is the search
// method that actually ran, which may differ from the configured mode.
type SearchCompleted struct {
	Query   string
	Results []domain.SearchResult
	Method  string
	Err     error
}

// ResultSelected opens a hit in the full-screen pager.
type ResultSelected struct {
	Result domain.SearchResult
}

// PreviewLoaded is the body of a hit, read with Peek. Reading an archived
// chunk restores it, which Result reports.
type PreviewLoaded struct {
	ID     string
	Result *driving.PeekResult
	Err    error
}

// SettingsLoaded and SettingsSaved report settings round trips.
type (
	SettingsLoaded struct {
		Settings *domain.AppSettings
		Err      error
	}
	SettingsSaved struct {
		Err error
	}
)

// ErrorOccurred surfaces a failure in the status bar.
type ErrorOccurred struct {
	Err error
}
