// Package ai provides factory functions for creating embedding service
// adapters and the vector index they feed.
package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/rlm/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/rlm/internal/adapters/driven/embedding/none"
	ollamaembed "github.com/custodia-labs/rlm/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/rlm/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/rlm/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ProviderEnv overrides the configured embedding provider.
const ProviderEnv = "RLM_EMBEDDING_PROVIDER"

// VectorFileName is the vector index file inside the data directory.
const VectorFileName = "vectors.bin"

const fixHint = "Run 'rlm settings embedding' to fix"

// InitResult contains the result of embedding initialisation.
type InitResult struct {
	// EmbeddingService is never nil; it is the null provider on fallback.
	EmbeddingService driven.EmbeddingService
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if fell back to BM25-only mode.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
}

func (r *InitResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// Initialize builds the embedding service and vector index for dataDir.
// It never fails: an unusable provider degrades to the null provider and
// an unusable index file leaves the index empty.
func Initialize(ctx context.Context, settings domain.EmbeddingSettings, dataDir string) *InitResult {
	result := &InitResult{EmbeddingService: none.EmbeddingService{}}
	settings = ApplyEnv(settings)

	idx, err := flat.New(filepath.Join(dataDir, VectorFileName))
	if err != nil {
		result.warn("vector index disabled: %v", err)
	} else {
		if idx.Load(ctx) {
			logger.Debug("loaded %d vectors (dim %d)", idx.Len(), idx.Dimensions())
		}
		result.VectorIndex = idx
	}

	if !settings.IsConfigured() {
		if settings.Provider != domain.AIProviderNone && settings.Provider != "" {
			result.warn("embedding provider %q is not fully configured; using BM25 only", settings.Provider)
			result.FellBack = true
		}
		return result
	}

	svc, err := CreateAndValidateEmbeddingService(ctx, &settings)
	if err != nil {
		result.warn("%v", err)
		result.FellBack = true
		return result
	}

	if settings.Cache && dataDir != "" {
		cached, err := cache.New(svc, filepath.Join(dataDir, cache.FileName))
		if err != nil {
			result.warn("embedding cache disabled: %v", err)
		} else {
			svc = cached
		}
	}
	result.EmbeddingService = svc

	if result.VectorIndex != nil {
		have, want := result.VectorIndex.Dimensions(), svc.Dimensions()
		if have != 0 && want != 0 && have != want {
			result.warn("vector index holds %d-dimension vectors but %s produces %d; run 'rlm backfill --force'",
				have, svc.ModelName(), want)
		}
	}
	return result
}

// ApplyEnv applies the provider override from the environment.
func ApplyEnv(settings domain.EmbeddingSettings) domain.EmbeddingSettings {
	if p := domain.AIProvider(os.Getenv(ProviderEnv)); p != "" {
		// A configured model belongs to the configured provider.
		if p != settings.Provider {
			settings.Model = domain.DefaultEmbeddingModels()[p]
		}
		settings.Provider = p
	}
	return settings
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if none.IsNone(svc) {
		return svc, nil
	}

	// Validate connectivity.
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns the null provider if no provider is configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return none.EmbeddingService{}, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service. Dimensions is
// only sent to the API when explicitly configured.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}
