// Package search provides the main search view for the TUI.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/views/preview"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// DefaultLimit is the number of hits requested per query.
const DefaultLimit = 20

// ErrNoSearchService is reported when a query is submitted without a backend.
var ErrNoSearchService = errors.New("search service is required")

// splitWidth is the terminal width from which the preview pane sits
// beside the result list instead of below it.
const splitWidth = 100

// previewLines caps the preview pane.
const previewLines = 12

// View represents the search view with input, results list, preview pane
// and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	chunkService  driving.ChunkService
	ctx           context.Context

	width           int
	height          int
	ready           bool
	err             error
	focusInput      bool // true = input mode (typing), false = results mode (navigating)
	includeInsights bool
	method          string

	previewID      string
	previewContent string
	previewErr     error
	previewLoading bool
}

// NewView creates a new search view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	searchService driving.SearchService,
	chunkService driving.ChunkService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQueryInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s, km),
		searchService: searchService,
		chunkService:  chunkService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.PreviewLoaded:
		v.handlePreviewLoaded(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg routes keys to the prompt or the result list, whichever
// has focus.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	km := v.keymap
	if key.Matches(msg, km.Back) {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if key.Matches(msg, km.Submit) {
			query := v.input.Query()
			if query == "" {
				return v, nil
			}
			v.statusbar.Searching()
			v.focusInput = false
			v.input.Blur()
			return v, v.performSearch(query)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case key.Matches(msg, km.Up):
		v.list.MoveUp()
	case key.Matches(msg, km.Down):
		v.list.MoveDown()
	case key.Matches(msg, km.PageUp):
		v.list.PageUp()
	case key.Matches(msg, km.PageDown):
		v.list.PageDown()
	case key.Matches(msg, km.Top):
		v.list.Top()
	case key.Matches(msg, km.Bottom):
		v.list.Bottom()
	case key.Matches(msg, km.Preview):
		return v, v.previewSelected()
	case key.Matches(msg, km.Open):
		if result := v.list.SelectedResult(); result != nil {
			selected := *result
			return v, func() tea.Msg {
				return messages.ResultSelected{Result: selected}
			}
		}
	case key.Matches(msg, km.ToggleInsights):
		v.includeInsights = !v.includeInsights
		v.input.SetIncludeInsights(v.includeInsights)
		if v.includeInsights {
			v.statusbar.SetMessage("Insights included")
		} else {
			v.statusbar.SetMessage("Chunks only")
		}
		if query := v.input.Query(); query != "" {
			v.statusbar.Searching()
			return v, v.performSearch(query)
		}
	case key.Matches(msg, km.NewQuery):
		v.focusInput = true
		return v, v.input.Clear()
	}

	return v, nil
}

// previewSelected loads the selected hit into the preview pane.
func (v *View) previewSelected() tea.Cmd {
	result := v.list.SelectedResult()
	if result == nil {
		return nil
	}
	v.previewID = result.ID
	v.previewErr = nil
	if result.Type == domain.ResultTypeInsight {
		v.previewContent = result.Summary
		v.previewLoading = false
		return nil
	}
	v.previewContent = ""
	v.previewLoading = true
	return preview.Load(v.ctx, v.chunkService, result.ID)
}

// performSearch executes a search and returns results.
func (v *View) performSearch(query string) tea.Cmd {
	opts := domain.SearchOptions{Limit: DefaultLimit, IncludeInsights: v.includeInsights}
	return func() tea.Msg {
		if v.searchService == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}

		resp, err := v.searchService.Search(v.ctx, query, opts)
		if err != nil {
			return messages.SearchCompleted{Query: query, Err: err}
		}
		return messages.SearchCompleted{Query: query, Results: resp.Results, Method: resp.Method}
	}
}

// handleSearchCompleted processes search results.
func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetError(msg.Err)
		return
	}

	v.err = nil
	v.method = msg.Method
	v.list.SetResults(msg.Results)
	v.statusbar.SetResults(msg.Results, msg.Method)
	v.clearPreview()

	v.focusInput = false
	v.input.Blur()
}

func (v *View) handlePreviewLoaded(msg messages.PreviewLoaded) {
	if msg.ID != v.previewID {
		return
	}
	v.previewLoading = false
	if msg.Err != nil {
		v.previewErr = msg.Err
		return
	}
	v.previewErr = nil
	v.previewContent = msg.Result.Content
	if msg.Result.Restored {
		v.statusbar.SetMessage("Restored " + msg.ID + " from archive")
	}
}

func (v *View) clearPreview() {
	v.previewID = ""
	v.previewContent = ""
	v.previewErr = nil
	v.previewLoading = false
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)

	sections = append(sections, v.styles.Title.Render("rlm"), "")
	sections = append(sections, v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	listView := v.list.View()
	if v.method != "" && !v.list.IsEmpty() {
		listView = v.styles.Muted.Render("via "+v.method) + "\n" + listView
	}

	if v.previewID != "" {
		pane := v.renderPreviewPane()
		if v.width >= splitWidth {
			sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, listView, "  ", pane))
		} else {
			sections = append(sections, listView, "", pane)
		}
	} else {
		sections = append(sections, listView)
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderPreviewPane renders the first lines of the previewed hit.
func (v *View) renderPreviewPane() string {
	width := v.paneWidth()
	var body string
	switch {
	case v.previewLoading:
		body = v.styles.Muted.Render("Loading...")
	case v.previewErr != nil:
		body = v.styles.Error.Render("Error: " + v.previewErr.Error())
	default:
		lines := preview.Wrap(v.previewContent, width-4)
		if len(lines) > previewLines {
			more := len(lines) - previewLines
			lines = append(lines[:previewLines], v.styles.Muted.Render(fmt.Sprintf("… %d more lines [o] open", more)))
		}
		body = strings.Join(lines, "\n")
	}

	header := v.styles.Subtitle.Render(v.previewID)
	return v.styles.Border.Width(width).Padding(0, 1).Render(header + "\n" + body)
}

func (v *View) paneWidth() int {
	if v.width >= splitWidth {
		return v.width/2 - 4
	}
	return v.width - 4
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	listWidth := width
	if width >= splitWidth {
		listWidth = width / 2
	}
	v.list.SetDimensions(listWidth, height-10)
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the search query.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the current search results.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// SelectedResult returns the currently selected result.
func (v *View) SelectedResult() *domain.SearchResult {
	return v.list.SelectedResult()
}

// Method returns how the last query was answered.
func (v *View) Method() string {
	return v.method
}

// IncludeInsights reports whether insights are searched.
func (v *View) IncludeInsights() bool {
	return v.includeInsights
}

// PreviewID returns the ID shown in the preview pane, if any.
func (v *View) PreviewID() string {
	return v.previewID
}

// PreviewContent returns the body shown in the preview pane.
func (v *View) PreviewContent() string {
	return v.previewContent
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}

// ClearError clears the current error.
func (v *View) ClearError() {
	v.err = nil
	v.statusbar.Clear()
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Clear()
	v.list.SetResults(nil)
	v.err = nil
	v.method = ""
	v.clearPreview()
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
