// Package settings is the TUI screen for search, embedding and retention
// settings.
package settings

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// ErrNoSettingsService is shown when the TUI was started without settings.
var ErrNoSettingsService = errors.New("settings service not available")

// Section is the part of the screen that has focus.
type Section int

const (
	SectionOverview Section = iota
	SectionSearchMode
	SectionEmbedding
	SectionAPIKey
	SectionAlpha
)

const (
	alphaStep = 0.1
	barWidth  = 20
)

var (
	choose = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select"))
	toggle = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	less   = key.NewBinding(key.WithKeys("left", "h", "-"), key.WithHelp("←/h", "more keyword"))
	more   = key.NewBinding(key.WithKeys("right", "l", "+"), key.WithHelp("→/l", "more semantic"))
	save   = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save"))
)

// row is one line of the overview. open runs when the row is chosen.
type row struct {
	label string
	value func(v *View) string
	open  func(v *View) tea.Cmd
}

var rows = []row{
	{"Search Mode", func(v *View) string { return v.settings.Search.Mode.Description() }, (*View).openSearchModes},
	{"Embedding Provider", (*View).embeddingValue, (*View).openProviders},
	{"Hybrid Alpha", func(v *View) string { return fmt.Sprintf("%.2f", v.settings.Search.Alpha) }, (*View).openAlpha},
	{"Auto-purge Archive", func(v *View) string { return onOff(v.settings.Retention.AutoPurge) }, (*View).toggleAutoPurge},
}

// View is the settings screen. Every change is saved through the service
// as soon as it is confirmed and the settings are then reloaded.
type View struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	help    help.Model
	service driving.SettingsService

	settings *domain.AppSettings
	err      error

	section  Section
	cursor   int
	alpha    float64
	apiKey   textinput.Model
	provider domain.AIProvider
}

// NewView returns the screen. A nil service is allowed.
func NewView(s *styles.Styles, service driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	in := textinput.New()
	in.Placeholder = "API key"
	in.EchoMode = textinput.EchoPassword
	in.CharLimit = 256

	h := help.New()
	h.Styles.ShortKey = s.Help
	h.Styles.ShortDesc = s.Muted

	return &View{styles: s, keymap: keymap.DefaultKeyMap(), help: h, service: service, apiKey: in}
}

// Init loads the settings.
func (v *View) Init() tea.Cmd {
	return func() tea.Msg {
		if v.service == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		s, err := v.service.Get()
		return messages.SettingsLoaded{Settings: s, Err: err}
	}
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case messages.SettingsLoaded:
		v.err = msg.Err
		if msg.Err == nil {
			v.settings = msg.Settings
		}
	case messages.SettingsSaved:
		v.err = msg.Err
		if msg.Err == nil {
			v.backToOverview()
			return v, v.Init()
		}
	case tea.KeyMsg:
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, v.keymap.Back) {
		switch v.section {
		case SectionOverview:
			return func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
		case SectionAPIKey:
			v.leaveAPIKey()
			v.section = SectionEmbedding
		default:
			v.backToOverview()
		}
		return nil
	}
	if v.settings == nil {
		return nil
	}

	switch v.section {
	case SectionOverview:
		if v.moveCursor(msg, len(rows)) {
			return nil
		}
		if key.Matches(msg, choose) || key.Matches(msg, toggle) {
			return rows[v.cursor].open(v)
		}
	case SectionSearchMode:
		modes := domain.AllSearchModes()
		if !v.moveCursor(msg, len(modes)) && key.Matches(msg, choose) {
			mode := modes[v.cursor]
			return v.save(func(s driving.SettingsService) error { return s.SetSearchMode(mode) })
		}
	case SectionEmbedding:
		providers := domain.AllEmbeddingProviders()
		if !v.moveCursor(msg, len(providers)) && key.Matches(msg, choose) {
			return v.pickProvider(providers[v.cursor])
		}
	case SectionAPIKey:
		if key.Matches(msg, save) {
			return v.saveProvider(v.provider, strings.TrimSpace(v.apiKey.Value()))
		}
		var cmd tea.Cmd
		v.apiKey, cmd = v.apiKey.Update(msg)
		return cmd
	case SectionAlpha:
		switch {
		case key.Matches(msg, less):
			v.alpha = stepAlpha(v.alpha, -alphaStep)
		case key.Matches(msg, more):
			v.alpha = stepAlpha(v.alpha, alphaStep)
		case key.Matches(msg, save):
			alpha := v.alpha
			return v.save(func(s driving.SettingsService) error { return s.SetHybridAlpha(alpha) })
		}
	}
	return nil
}

// moveCursor handles up and down within n entries.
func (v *View) moveCursor(msg tea.KeyMsg, n int) bool {
	switch {
	case key.Matches(msg, v.keymap.Up):
		v.cursor = max(v.cursor-1, 0)
	case key.Matches(msg, v.keymap.Down):
		v.cursor = min(v.cursor+1, n-1)
	default:
		return false
	}
	return true
}

func (v *View) openSearchModes() tea.Cmd {
	v.section = SectionSearchMode
	v.cursor = indexOf(domain.AllSearchModes(), v.settings.Search.Mode)
	return nil
}

func (v *View) openProviders() tea.Cmd {
	v.section = SectionEmbedding
	v.cursor = indexOf(domain.AllEmbeddingProviders(), v.settings.Embedding.Provider)
	return nil
}

func (v *View) openAlpha() tea.Cmd {
	v.section = SectionAlpha
	v.alpha = v.settings.Search.Alpha
	return nil
}

func (v *View) toggleAutoPurge() tea.Cmd {
	policy, autoPurge := v.settings.Retention.Policy, !v.settings.Retention.AutoPurge
	return v.save(func(s driving.SettingsService) error { return s.SetRetentionPolicy(policy, autoPurge) })
}

// pickProvider saves providers that need no key and asks for one otherwise.
func (v *View) pickProvider(p domain.AIProvider) tea.Cmd {
	if !p.RequiresAPIKey() {
		return v.saveProvider(p, "")
	}
	v.section = SectionAPIKey
	v.provider = p
	return v.apiKey.Focus()
}

// saveProvider keeps the stored key and base URL when the provider is
// unchanged and no new key was typed.
func (v *View) saveProvider(p domain.AIProvider, apiKey string) tea.Cmd {
	model := domain.DefaultEmbeddingModels()[p]
	var baseURL string
	if current := v.settings.Embedding; current.Provider == p {
		baseURL = current.BaseURL
		if current.Model != "" {
			model = current.Model
		}
		if apiKey == "" {
			apiKey = current.APIKey
		}
	}
	return v.save(func(s driving.SettingsService) error {
		return s.SetEmbeddingProvider(p, model, apiKey, baseURL)
	})
}

func (v *View) save(apply func(driving.SettingsService) error) tea.Cmd {
	svc := v.service
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		return messages.SettingsSaved{Err: apply(svc)}
	}
}

func (v *View) leaveAPIKey() {
	v.apiKey.SetValue("")
	v.apiKey.Blur()
}

func (v *View) backToOverview() {
	v.leaveAPIKey()
	v.section = SectionOverview
	v.cursor = 0
	v.provider = ""
}

func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}
	if v.settings == nil {
		if v.err == nil {
			b.WriteString(v.styles.Muted.Render("Loading settings..."))
		}
		return b.String()
	}

	switch v.section {
	case SectionOverview:
		v.renderOverview(&b)
	case SectionSearchMode:
		v.renderSearchModes(&b)
	case SectionEmbedding, SectionAPIKey:
		v.renderProviders(&b)
	case SectionAlpha:
		v.renderAlpha(&b)
	}

	b.WriteString("\n")
	b.WriteString(v.help.ShortHelpView(v.bindings()))
	return b.String()
}

func (v *View) bindings() []key.Binding {
	switch v.section {
	case SectionOverview:
		return []key.Binding{v.keymap.Up, v.keymap.Down, choose, toggle, v.keymap.Back}
	case SectionAPIKey:
		return []key.Binding{save, v.keymap.Back}
	case SectionAlpha:
		return []key.Binding{less, more, save, v.keymap.Back}
	default:
		return []key.Binding{v.keymap.Up, v.keymap.Down, choose, v.keymap.Back}
	}
}

func (v *View) line(b *strings.Builder, selected bool, text string) {
	if selected {
		b.WriteString(v.styles.Selected.Render("> " + text))
	} else {
		b.WriteString(v.styles.Normal.Render("  " + text))
	}
	b.WriteString("\n")
}

func (v *View) renderOverview(b *strings.Builder) {
	for i, r := range rows {
		v.line(b, i == v.cursor, r.label+": "+r.value(v))
	}

	p := v.settings.Retention.Policy
	fmt.Fprintf(b, "\n%s\n\n", v.styles.Muted.Render(fmt.Sprintf(
		"  Retention: archive after %dd, purge after %dd, immune at %d reads, protected: %s",
		wholeDays(p.ArchiveAfter.Hours()), wholeDays(p.PurgeAfter.Hours()),
		p.MinAccessForImmunity, protected(p.ProtectedTags))))

	if v.service == nil {
		return
	}
	if err := v.service.Validate(); err != nil {
		b.WriteString(v.styles.Warning.Render("Warning: " + err.Error()))
	} else {
		b.WriteString(v.styles.Success.Render("Configuration is valid"))
	}
	b.WriteString("\n")
}

func (v *View) renderSearchModes(b *strings.Builder) {
	b.WriteString(v.styles.Subtitle.Render("Search mode"))
	b.WriteString("\n\n")
	for i, mode := range domain.AllSearchModes() {
		v.line(b, i == v.cursor, mode.Description()+v.current(mode == v.settings.Search.Mode))
		if mode.RequiresEmbedding() {
			b.WriteString(v.styles.Muted.Render("    needs an embedding provider"))
			b.WriteString("\n")
		}
	}
}

func (v *View) renderProviders(b *strings.Builder) {
	b.WriteString(v.styles.Subtitle.Render("Embedding provider"))
	b.WriteString("\n\n")
	models := domain.DefaultEmbeddingModels()
	for i, p := range domain.AllEmbeddingProviders() {
		v.line(b, i == v.cursor && v.section == SectionEmbedding,
			p.Description()+v.current(p == v.settings.Embedding.Provider))
		if model := models[p]; model != "" {
			b.WriteString(v.styles.Muted.Render("    model " + model))
			b.WriteString("\n")
		}
	}
	if v.section == SectionAPIKey {
		fmt.Fprintf(b, "\n%s API key", v.provider.Description())
		if v.settings.Embedding.Provider == v.provider && v.settings.Embedding.APIKey != "" {
			b.WriteString(v.styles.Muted.Render(" (blank keeps the current key)"))
		}
		b.WriteString("\n")
		b.WriteString(v.apiKey.View())
		b.WriteString("\n")
	}
}

func (v *View) renderAlpha(b *strings.Builder) {
	b.WriteString(v.styles.Subtitle.Render("Hybrid alpha"))
	b.WriteString("\n\n")
	filled := int(math.Round(v.alpha * barWidth))
	fmt.Fprintf(b, "  BM25 %s%s semantic   %.2f\n",
		strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled), v.alpha)
	b.WriteString(v.styles.Muted.Render("    0 ranks by keywords only, 1 by embeddings only"))
	b.WriteString("\n")
}

func (v *View) embeddingValue() string {
	e := v.settings.Embedding
	switch {
	case e.Provider == "" || e.Provider == domain.AIProviderNone:
		return "Not Set " + v.styles.Muted.Render("[text only]")
	case e.IsConfigured():
		return fmt.Sprintf("%s (%s) %s", e.Provider.Description(), e.Model, v.styles.Success.Render("[configured]"))
	default:
		return fmt.Sprintf("%s (%s) %s", e.Provider.Description(), e.Model, v.styles.Warning.Render("[needs API key]"))
	}
}

func (v *View) current(is bool) string {
	if !is {
		return ""
	}
	return v.styles.Success.Render(" (current)")
}

// SetDimensions sets the width the key help wraps at.
func (v *View) SetDimensions(width, _ int) {
	v.help.Width = width
}

// Section returns the focused section.
func (v *View) Section() Section { return v.section }

// Settings returns the loaded settings, or nil before the first load.
func (v *View) Settings() *domain.AppSettings { return v.settings }

// Err returns the last load or save error.
func (v *View) Err() error { return v.err }

// Reset returns to the overview and clears errors.
func (v *View) Reset() {
	v.backToOverview()
	v.err = nil
}

func indexOf[T comparable](list []T, want T) int {
	for i, x := range list {
		if x == want {
			return i
		}
	}
	return 0
}

func stepAlpha(a, delta float64) float64 {
	return math.Round(min(max(a+delta, 0), 1)*100) / 100
}

func wholeDays(hours float64) int {
	return int(hours / 24)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func protected(tags domain.TagSet) string {
	if tags.Len() == 0 {
		return "none"
	}
	return tags.Join(", ")
}
