package services

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySearchMode            = "search.mode"
	keySearchAlpha           = "search.alpha"
	keySearchIncludeInsights = "search.include_insights"
	keyEmbedProvider         = "embedding.provider"
	keyEmbedModel            = "embedding.model"
	keyEmbedBaseURL          = "embedding.base_url"
	keyEmbedAPIKey           = "embedding.api_key"
	keyEmbedDimensions       = "embedding.dimensions"
	keyEmbedCache            = "embedding.cache"
	keyArchiveAfterDays      = "retention.archive_after_days"
	keyPurgeAfterDays        = "retention.purge_after_days"
	keyMinAccess             = "retention.min_access_for_immunity"
	keyProtectedTags         = "retention.protected_tags"
	keyProtectedKeywords     = "retention.protected_keywords"
	keyAutoPurge             = "retention.auto_purge"
	keySchedulerEnabled      = "scheduler.enabled"
	keyRetentionInterval     = "scheduler.retention_interval"
	keyBackfillInterval      = "scheduler.backfill_interval"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()
	dp := defaults.Retention.Policy

	policy := domain.RetentionPolicy{
		ArchiveAfter:         s.getDays(keyArchiveAfterDays, dp.ArchiveAfter),
		PurgeAfter:           s.getDays(keyPurgeAfterDays, dp.PurgeAfter),
		MinAccessForImmunity: s.getInt(keyMinAccess, dp.MinAccessForImmunity),
		ProtectedTags:        dp.ProtectedTags,
		ProtectedKeywords:    dp.ProtectedKeywords,
	}
	if _, exists := s.configStore.Get(keyProtectedTags); exists {
		policy.ProtectedTags = domain.NewTagSet(s.configStore.GetStringSlice(keyProtectedTags)...)
	}
	if _, exists := s.configStore.Get(keyProtectedKeywords); exists {
		policy.ProtectedKeywords = s.configStore.GetStringSlice(keyProtectedKeywords)
	}

	settings := &domain.AppSettings{
		Search: domain.SearchSettings{
			Mode:            s.getSearchMode(defaults.Search.Mode),
			Alpha:           s.getAlpha(defaults.Search.Alpha),
			IncludeInsights: s.getBool(keySearchIncludeInsights, defaults.Search.IncludeInsights),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(keyEmbedDimensions),
			Cache:      s.getBool(keyEmbedCache, defaults.Embedding.Cache),
		},
		Retention: domain.RetentionSettings{
			Policy:    policy,
			AutoPurge: s.getBool(keyAutoPurge, defaults.Retention.AutoPurge),
		},
		Scheduler: domain.SchedulerSettings{
			Enabled:           s.getBool(keySchedulerEnabled, defaults.Scheduler.Enabled),
			RetentionInterval: s.getDuration(keyRetentionInterval, defaults.Scheduler.RetentionInterval),
			BackfillInterval:  s.getDuration(keyBackfillInterval, defaults.Scheduler.BackfillInterval),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	p := settings.Retention.Policy
	values := []struct {
		key   string
		value any
	}{
		{keySearchMode, settings.Search.Mode.String()},
		{keySearchAlpha, settings.Search.Alpha},
		{keySearchIncludeInsights, settings.Search.IncludeInsights},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedCache, settings.Embedding.Cache},
		{keyArchiveAfterDays, int(p.ArchiveAfter / domain.Day)},
		{keyPurgeAfterDays, int(p.PurgeAfter / domain.Day)},
		{keyMinAccess, p.MinAccessForImmunity},
		{keyProtectedTags, p.ProtectedTags.Slice()},
		{keyProtectedKeywords, p.ProtectedKeywords},
		{keyAutoPurge, settings.Retention.AutoPurge},
		{keySchedulerEnabled, settings.Scheduler.Enabled},
		{keyRetentionInterval, settings.Scheduler.RetentionInterval.String()},
		{keyBackfillInterval, settings.Scheduler.BackfillInterval.String()},
	}
	// API keys are only written when set, so saving never erases one.
	if settings.Embedding.APIKey != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyEmbedAPIKey, settings.Embedding.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetSearchMode updates the search mode.
func (s *SettingsService) SetSearchMode(mode domain.SearchMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: search mode %s", domain.ErrInvalidInput, mode)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Search.Mode = mode
	return s.Save(settings)
}

// SetHybridAlpha updates the semantic weight used by fusion.
func (s *SettingsService) SetHybridAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return fmt.Errorf("%w: alpha must be within [0,1], got %v", domain.ErrInvalidInput, alpha)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Search.Alpha = alpha
	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey, baseURL string) error {
	if !provider.IsValid() || !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: embedding provider %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	// A previously stored key is reused when switching back to a provider.
	if provider.RequiresAPIKey() && apiKey == "" && settings.Embedding.Provider != provider {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings.Embedding.Provider = provider

	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	switch {
	case baseURL != "":
		settings.Embedding.BaseURL = baseURL
	case provider.IsLocal():
		settings.Embedding.BaseURL = defaultOllamaURL
	default:
		settings.Embedding.BaseURL = ""
	}

	if apiKey != "" {
		settings.Embedding.APIKey = apiKey
	}

	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	} else {
		settings.Embedding.Dimensions = 0
	}

	return s.Save(settings)
}

// SetRetentionPolicy updates retention thresholds and protection rules.
func (s *SettingsService) SetRetentionPolicy(policy domain.RetentionPolicy, autoPurge bool) error {
	if policy.ArchiveAfter < domain.Day || policy.PurgeAfter < domain.Day {
		return fmt.Errorf("%w: retention thresholds must be at least one day", domain.ErrInvalidInput)
	}
	if policy.MinAccessForImmunity < 1 {
		return fmt.Errorf("%w: min access for immunity must be positive", domain.ErrInvalidInput)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Retention.Policy = policy
	settings.Retention.AutoPurge = autoPurge
	return s.Save(settings)
}

// Validate checks if current settings are valid for the configured mode.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Search.Mode.IsValid() {
		return fmt.Errorf("invalid search mode: %s", settings.Search.Mode)
	}

	if settings.Search.Mode.RequiresEmbedding() && !settings.Embedding.IsConfigured() {
		return fmt.Errorf(
			"search mode %q requires embedding provider to be configured",
			settings.Search.Mode.Description(),
		)
	}

	return nil
}

// RequiresEmbedding returns true if current mode needs embedding.
func (s *SettingsService) RequiresEmbedding() bool {
	settings, err := s.Get()
	if err != nil {
		return false
	}
	return settings.Search.Mode.RequiresEmbedding()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// GetSchedulerConfig returns the scheduler configuration derived from the
// stored settings.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	settings, err := s.Get()
	if err != nil {
		return domain.DefaultSchedulerConfig()
	}
	return domain.SchedulerConfigFrom(*settings)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDays(key string, defaultVal time.Duration) time.Duration {
	days := s.configStore.GetInt(key)
	if days <= 0 {
		return defaultVal
	}
	return time.Duration(days) * domain.Day
}

// getDuration parses a duration string like "45m" or "24h".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getAlpha(defaultVal float64) float64 {
	if _, exists := s.configStore.Get(keySearchAlpha); !exists {
		return defaultVal
	}
	alpha := s.configStore.GetFloat(keySearchAlpha)
	if alpha < 0 || alpha > 1 {
		return defaultVal
	}
	return alpha
}

func (s *SettingsService) getSearchMode(defaultVal domain.SearchMode) domain.SearchMode {
	val := s.configStore.GetString(keySearchMode)
	if val == "" {
		return defaultVal
	}
	mode := domain.SearchMode(val)
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
