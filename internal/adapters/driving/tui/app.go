package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/views/help"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/views/preview"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/views/settings"
	"github.com/custodia-labs/rlm/internal/core/domain"
)

var _ tea.Model = (*App)(nil)

// App is the root model. It owns one view per screen and routes each
// message either to the screen that asked for it or to the active one.
type App struct {
	ctx   context.Context
	ports *Ports

	menu     *menu.View
	search   *search.View
	preview  *preview.View
	settings *settings.View
	help     *help.View

	active messages.ViewType
	err    error
	ready  bool
}

// NewApp validates ports and builds every screen. The menu is shown first.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	s := styles.DefaultStyles()
	return &App{
		ctx:      context.Background(),
		ports:    ports,
		menu:     menu.NewView(s),
		search:   search.NewView(s, nil, ports.Search, ports.Chunks),
		preview:  preview.NewView(s, ports.Chunks),
		settings: settings.NewView(s, ports.Settings),
		help:     help.NewView(s),
		active:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context handed to service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.search.WithContext(ctx)
	a.preview.WithContext(ctx)
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("rlm - agent memory")
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
	case messages.ViewChanged:
		return a, a.switchTo(msg.View)
	case messages.ResultSelected:
		a.active = messages.ViewPreview
		return a, a.preview.SetResult(msg.Result)
	case messages.PreviewLoaded:
		// The pane and the pager may both be waiting on the same read.
		var pane, pager tea.Cmd
		a.search, pane = a.search.Update(msg)
		a.preview, pager = a.preview.Update(msg)
		return a, tea.Batch(pane, pager)
	case messages.SearchCompleted:
		return a, a.deliver(messages.ViewSearch, msg)
	case messages.SettingsLoaded, messages.SettingsSaved:
		return a, a.deliver(messages.ViewSettings, msg)
	case messages.ErrorOccurred:
		a.err = msg.Err
	}
	return a, a.deliver(a.active, msg)
}

// switchTo activates view. Search starts over unless it is being
// returned to from the pager.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	from := a.active
	a.active = view
	switch view {
	case messages.ViewSearch:
		if from == messages.ViewPreview {
			return nil
		}
		a.search.Reset()
		return a.search.Init()
	case messages.ViewSettings:
		a.settings.Reset()
		return a.settings.Init()
	}
	return nil
}

func (a *App) deliver(view messages.ViewType, msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch view {
	case messages.ViewMenu:
		a.menu, cmd = a.menu.Update(msg)
	case messages.ViewSearch:
		a.search, cmd = a.search.Update(msg)
		a.err = a.search.Err()
	case messages.ViewPreview:
		a.preview, cmd = a.preview.Update(msg)
	case messages.ViewSettings:
		a.settings, cmd = a.settings.Update(msg)
	case messages.ViewHelp:
		a.help, cmd = a.help.Update(msg)
	}
	return cmd
}

func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	switch a.active {
	case messages.ViewSearch:
		return a.search.View()
	case messages.ViewPreview:
		return a.preview.View()
	case messages.ViewSettings:
		return a.settings.View()
	case messages.ViewHelp:
		return a.help.View()
	default:
		return a.menu.View()
	}
}

// Run blocks until the user quits or the context is cancelled.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	return err
}

// SetDimensions resizes every screen and marks the app ready.
func (a *App) SetDimensions(width, height int) {
	a.ready = true
	a.menu.SetDimensions(width, height)
	a.search.SetDimensions(width, height)
	a.preview.SetDimensions(width, height)
	a.settings.SetDimensions(width, height)
	a.help.SetDimensions(width, height)
}

// Query is the text in the search prompt.
func (a *App) Query() string { return a.search.Query() }

// Results are the hits of the last search.
func (a *App) Results() []domain.SearchResult { return a.search.Results() }

// SelectedIndex is the cursor position in the result list.
func (a *App) SelectedIndex() int { return a.search.SelectedIndex() }

// CurrentView is the active screen.
func (a *App) CurrentView() messages.ViewType { return a.active }

// Err is the last error shown to the user.
func (a *App) Err() error { return a.err }

// Ready reports whether a window size has arrived.
func (a *App) Ready() bool { return a.ready }
