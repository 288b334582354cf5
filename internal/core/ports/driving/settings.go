package driving

import "github.com/custodia-labs/rlm/internal/core/domain"

// SettingsService reads and edits config.toml. Changes take effect on the
// next invocation; running services keep the settings they were built with.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings

	SetSearchMode(mode domain.SearchMode) error
	// SetHybridAlpha rejects values outside [0, 1].
	SetHybridAlpha(alpha float64) error
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey, baseURL string) error
	SetRetentionPolicy(policy domain.RetentionPolicy, autoPurge bool) error

	// Validate checks the stored settings against each other, for example
	// a semantic search mode without an embedding provider.
	Validate() error
	RequiresEmbedding() bool
	// ValidateEmbeddingConfig pings the configured provider.
	ValidateEmbeddingConfig() error
}
