package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/rlm/internal/adapters/driven/embedding/none"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks embedding settings before they are trusted: it
// builds the provider they describe and pings it once.
type ConfigValidator struct {
	timeout time.Duration
	build   func(*domain.EmbeddingSettings) (driven.EmbeddingService, error)
}

// NewConfigValidator returns a validator that builds real providers.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout, build: CreateEmbeddingService}
}

// ValidateEmbedding succeeds for settings that select no provider. For a
// real provider it fails when the provider cannot be built or does not
// answer within the ping timeout.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	svc, err := v.build(settings)
	if err != nil {
		return err
	}
	if none.IsNone(svc) {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%s model %s unreachable: %w", settings.Provider, svc.ModelName(), err)
	}
	return nil
}
