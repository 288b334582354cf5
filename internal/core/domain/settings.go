package domain

import (
	"maps"
	"time"
)

const unknownDescription = "Unknown"

// DefaultHybridAlpha is the weight of the semantic score in hybrid fusion.
const DefaultHybridAlpha = 0.6

// SearchMode selects the retrieval methods a query may use.
type SearchMode string

const (
	SearchModeTextOnly SearchMode = "text_only"
	SearchModeHybrid   SearchMode = "hybrid"
)

var searchModeDescriptions = map[SearchMode]string{
	SearchModeTextOnly: "Text Only (BM25 keyword search)",
	SearchModeHybrid:   "Hybrid (BM25 + semantic search)",
}

func (m SearchMode) IsValid() bool {
	_, ok := searchModeDescriptions[m]
	return ok
}

// RequiresEmbedding reports whether the mode uses vectors. Hybrid still
// answers without them, by falling back to BM25.
func (m SearchMode) RequiresEmbedding() bool { return m == SearchModeHybrid }

func (m SearchMode) String() string { return string(m) }

func (m SearchMode) Description() string {
	if d, ok := searchModeDescriptions[m]; ok {
		return d
	}
	return unknownDescription
}

// AIProvider names an embedding backend.
type AIProvider string

const (
	AIProviderNone   AIProvider = "none"
	AIProviderOllama AIProvider = "ollama"
	AIProviderOpenAI AIProvider = "openai"
)

type providerInfo struct {
	description  string
	defaultModel string
	needsKey     bool
	local        bool
}

var providers = map[AIProvider]providerInfo{
	AIProviderNone:   {description: "None (BM25 only)"},
	AIProviderOllama: {description: "Ollama (local)", defaultModel: "nomic-embed-text", local: true},
	AIProviderOpenAI: {description: "OpenAI (cloud)", defaultModel: "text-embedding-3-small", needsKey: true},
}

// knownDimensions maps embedding models to their native vector width.
var knownDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,

	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

func (p AIProvider) IsValid() bool {
	_, ok := providers[p]
	return ok
}

func (p AIProvider) RequiresAPIKey() bool { return providers[p].needsKey }

// IsLocal reports whether the provider runs on this machine.
func (p AIProvider) IsLocal() bool { return providers[p].local }

func (p AIProvider) String() string { return string(p) }

func (p AIProvider) Description() string {
	if info, ok := providers[p]; ok {
		return info.description
	}
	return unknownDescription
}

// SearchSettings controls how queries are answered.
type SearchSettings struct {
	Mode SearchMode

	// Alpha is the semantic weight in hybrid fusion, in [0,1].
	Alpha float64

	// IncludeInsights adds insights to the searchable corpus.
	IncludeInsights bool
}

// EmbeddingSettings selects and configures the embedding provider.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL is the Ollama endpoint or an OpenAI-compatible server.
	BaseURL string
	APIKey  string

	// Dimensions overrides the model's vector size when the model supports it.
	Dimensions int

	// Cache enables the persistent embedding cache.
	Cache bool
}

// IsConfigured reports whether embeddings can be produced: a real provider
// and, where one is needed, an API key.
func (e EmbeddingSettings) IsConfigured() bool {
	info, ok := providers[e.Provider]
	switch {
	case !ok, e.Provider == AIProviderNone:
		return false
	case info.needsKey:
		return e.APIKey != ""
	}
	return true
}

// RetentionSettings pairs the retention policy with the auto-purge switch.
type RetentionSettings struct {
	Policy RetentionPolicy

	// AutoPurge lets the scheduled retention task purge old archives.
	AutoPurge bool
}

// SchedulerSettings controls the background tasks.
type SchedulerSettings struct {
	Enabled           bool
	RetentionInterval time.Duration
	BackfillInterval  time.Duration
}

// AppSettings is everything stored in config.toml.
type AppSettings struct {
	Search    SearchSettings
	Embedding EmbeddingSettings
	Retention RetentionSettings
	Scheduler SchedulerSettings
}

// DefaultAppSettings leaves embeddings unconfigured, so hybrid search
// degrades to BM25 until a provider is chosen.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Search: SearchSettings{
			Mode:            SearchModeHybrid,
			Alpha:           DefaultHybridAlpha,
			IncludeInsights: true,
		},
		Embedding: EmbeddingSettings{Provider: AIProviderNone, Cache: true},
		Retention: RetentionSettings{Policy: DefaultRetentionPolicy()},
		Scheduler: SchedulerSettings{
			Enabled:           true,
			RetentionInterval: Day,
			BackfillInterval:  6 * time.Hour,
		},
	}
}

// AllSearchModes lists the modes in menu order.
func AllSearchModes() []SearchMode {
	return []SearchMode{SearchModeTextOnly, SearchModeHybrid}
}

// AllEmbeddingProviders lists the providers in menu order.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderNone, AIProviderOllama, AIProviderOpenAI}
}

// DefaultEmbeddingModels maps each real provider to its default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	out := make(map[AIProvider]string, len(providers))
	for p, info := range providers {
		if info.defaultModel != "" {
			out[p] = info.defaultModel
		}
	}
	return out
}

// EmbeddingDimensions returns the native widths of well-known models.
func EmbeddingDimensions() map[string]int {
	return maps.Clone(knownDimensions)
}
