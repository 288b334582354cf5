package settings

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/rlm/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/rlm/internal/core/domain"
)

// MockSettingsService is a mock implementation of driving.SettingsService.
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AppSettings), args.Error(1)
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	return m.Called(settings).Error(0)
}

func (m *MockSettingsService) SetSearchMode(mode domain.SearchMode) error {
	return m.Called(mode).Error(0)
}

func (m *MockSettingsService) SetHybridAlpha(alpha float64) error {
	return m.Called(alpha).Error(0)
}

func (m *MockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey, baseURL string) error {
	return m.Called(provider, model, apiKey, baseURL).Error(0)
}

func (m *MockSettingsService) SetRetentionPolicy(policy domain.RetentionPolicy, autoPurge bool) error {
	return m.Called(policy, autoPurge).Error(0)
}

func (m *MockSettingsService) Validate() error {
	return m.Called().Error(0)
}

func (m *MockSettingsService) RequiresEmbedding() bool {
	return m.Called().Bool(0)
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	return m.Called().Get(0).(domain.AppSettings)
}

func (m *MockSettingsService) ValidateEmbeddingConfig() error {
	return m.Called().Error(0)
}

func testSettings() *domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Search.Mode = domain.SearchModeTextOnly
	s.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
		BaseURL:  "http://localhost:11434",
	}
	return &s
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func runeKey(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func loadedView(svc *MockSettingsService) *View {
	view := NewView(nil, svc)
	view.Update(messages.SettingsLoaded{Settings: testSettings()})
	return view
}

// saved runs cmd and feeds the result back, as the root model would.
func saved(t *testing.T, view *View, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.SettingsSaved)
	require.True(t, ok)
	view.Update(msg)
}

func press(view *View, keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = view.Update(k)
	}
	return cmd
}

var (
	down = tea.KeyMsg{Type: tea.KeyDown}
	esc  = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestView_Init(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("Get").Return(testSettings(), nil)
	view := NewView(nil, svc)

	view.Update(view.Init()())

	require.NotNil(t, view.Settings())
	assert.Equal(t, domain.SearchModeTextOnly, view.Settings().Search.Mode)
	assert.NoError(t, view.Err())
}

func TestView_InitWithoutService(t *testing.T) {
	view := NewView(styles.DefaultStyles(), nil)

	view.Update(view.Init()())

	assert.ErrorIs(t, view.Err(), ErrNoSettingsService)
	assert.Contains(t, view.View(), "settings service not available")
	assert.NotContains(t, view.View(), "Loading")
}

func TestView_LoadingBeforeFirstLoad(t *testing.T) {
	view := NewView(nil, new(MockSettingsService))

	assert.Contains(t, view.View(), "Loading settings...")
	assert.Nil(t, press(view, enter()), "keys are ignored until settings arrive")
}

func TestView_Overview(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("Validate").Return(nil)
	view := loadedView(svc)

	out := view.View()

	assert.Contains(t, out, "> Search Mode: Text Only")
	assert.Contains(t, out, "Embedding Provider: Ollama (local) (nomic-embed-text)")
	assert.Contains(t, out, "[configured]")
	assert.Contains(t, out, "Hybrid Alpha: 0.60")
	assert.Contains(t, out, "Auto-purge Archive: off")
	assert.Contains(t, out, "archive after 30d")
	assert.Contains(t, out, "Configuration is valid")
}

func TestView_OverviewWarnsWhenInvalid(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("Validate").Return(fmt.Errorf("hybrid needs embeddings"))
	view := loadedView(svc)
	view.settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small"}

	out := view.View()

	assert.Contains(t, out, "Warning: hybrid needs embeddings")
	assert.Contains(t, out, "[needs API key]")
}

func TestView_CursorClamps(t *testing.T) {
	view := loadedView(new(MockSettingsService))

	press(view, runeKey('k'))
	assert.Equal(t, 0, view.cursor)

	press(view, down, down, down, down, down, down)
	assert.Equal(t, len(rows)-1, view.cursor)
}

func TestView_EscapeLeavesSectionThenScreen(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	press(view, enter())
	require.Equal(t, SectionSearchMode, view.Section())

	assert.Nil(t, press(view, esc))
	assert.Equal(t, SectionOverview, view.Section())

	cmd := press(view, esc)
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_SelectSearchMode(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SetSearchMode", domain.SearchModeHybrid).Return(nil)
	svc.On("Get").Return(testSettings(), nil)
	view := loadedView(svc)

	press(view, enter())
	assert.Equal(t, 0, view.cursor, "cursor starts on the current mode")
	assert.Contains(t, view.View(), "needs an embedding provider")

	saved(t, view, press(view, down, enter()))

	svc.AssertCalled(t, "SetSearchMode", domain.SearchModeHybrid)
	assert.Equal(t, SectionOverview, view.Section())
}

func TestView_SaveErrorStaysInSection(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SetSearchMode", domain.SearchModeTextOnly).Return(domain.ErrInvalidInput)
	view := loadedView(svc)

	saved(t, view, press(view, enter(), enter()))

	assert.ErrorIs(t, view.Err(), domain.ErrInvalidInput)
	assert.Equal(t, SectionSearchMode, view.Section())
	assert.Contains(t, view.View(), "Error: ")
}

func TestView_ProviderWithoutKey(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SetEmbeddingProvider", domain.AIProviderNone, "", "", "").Return(nil)
	svc.On("Get").Return(testSettings(), nil)
	view := loadedView(svc)

	press(view, down, enter())
	require.Equal(t, SectionEmbedding, view.Section())
	assert.Equal(t, 1, view.cursor, "cursor starts on ollama")

	saved(t, view, press(view, runeKey('k'), enter()))

	svc.AssertExpectations(t)
}

func TestView_SameProviderKeepsBaseURLAndModel(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SetEmbeddingProvider", domain.AIProviderOllama, "nomic-embed-text", "", "http://localhost:11434").Return(nil)
	view := loadedView(svc)
	view.settings.Embedding.Model = "nomic-embed-text"

	cmd := press(view, down, enter(), enter())

	require.NotNil(t, cmd)
	cmd()
	svc.AssertExpectations(t)
}

func TestView_ProviderNeedingKey(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SetEmbeddingProvider", domain.AIProviderOpenAI, "text-embedding-3-small", "sk-test", "").Return(nil)
	view := loadedView(svc)

	press(view, down, enter(), down, enter())
	require.Equal(t, SectionAPIKey, view.Section())
	assert.Contains(t, view.View(), "OpenAI (cloud) API key")

	for _, r := range "sk-test" {
		press(view, runeKey(r))
	}
	assert.NotContains(t, view.View(), "sk-test", "the key is masked")

	cmd := press(view, enter())
	require.NotNil(t, cmd)
	cmd()
	svc.AssertExpectations(t)
}

func TestView_EscapeFromKeyReturnsToProviders(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	press(view, down, enter(), down, enter(), runeKey('x'))

	press(view, esc)

	assert.Equal(t, SectionEmbedding, view.Section())
	assert.Empty(t, view.apiKey.Value())
}

func TestView_BlankKeyKeepsStoredKey(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SetEmbeddingProvider", domain.AIProviderOpenAI, "text-embedding-3-large", "sk-old", "").Return(nil)
	view := loadedView(svc)
	view.settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-large", APIKey: "sk-old",
	}

	press(view, down, enter(), enter())
	assert.Contains(t, view.View(), "blank keeps the current key")

	cmd := press(view, enter())
	require.NotNil(t, cmd)
	cmd()
	svc.AssertExpectations(t)
}

func TestView_Alpha(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SetHybridAlpha", 0.8).Return(nil)
	svc.On("Get").Return(testSettings(), nil)
	view := loadedView(svc)

	press(view, down, down, enter())
	require.Equal(t, SectionAlpha, view.Section())
	assert.InDelta(t, 0.6, view.alpha, 1e-9)

	press(view, runeKey('l'), tea.KeyMsg{Type: tea.KeyRight})
	assert.Contains(t, view.View(), "0.80")

	saved(t, view, press(view, enter()))
	svc.AssertExpectations(t)
}

func TestView_AlphaStaysInRange(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	press(view, down, down, enter())

	for range 12 {
		press(view, runeKey('+'))
	}
	assert.InDelta(t, 1.0, view.alpha, 1e-9)

	for range 12 {
		press(view, runeKey('h'))
	}
	assert.InDelta(t, 0.0, view.alpha, 1e-9)
}

func TestView_ToggleAutoPurge(t *testing.T) {
	svc := new(MockSettingsService)
	policy := testSettings().Retention.Policy
	svc.On("SetRetentionPolicy", policy, true).Return(nil)
	view := loadedView(svc)

	cmd := press(view, down, down, down, runeKey(' '))

	require.NotNil(t, cmd)
	cmd()
	svc.AssertExpectations(t)
}

func TestView_Reset(t *testing.T) {
	view := loadedView(new(MockSettingsService))
	press(view, down, enter())
	view.err = fmt.Errorf("stale")

	view.Reset()

	assert.Equal(t, SectionOverview, view.Section())
	assert.Equal(t, 0, view.cursor)
	assert.NoError(t, view.Err())
}

func TestStepAlpha(t *testing.T) {
	assert.InDelta(t, 0.7, stepAlpha(0.6, 0.1), 1e-9)
	assert.InDelta(t, 1.0, stepAlpha(0.95, 0.1), 1e-9)
	assert.InDelta(t, 0.0, stepAlpha(0.05, -0.1), 1e-9)
}

func TestProtected(t *testing.T) {
	assert.Equal(t, "none", protected(domain.TagSet{}))
	assert.Equal(t, "keep, pinned", protected(domain.NewTagSet("keep", "pinned")))
}
