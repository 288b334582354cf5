package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

// slowEmbedder answers Ping only once ctx is done, or with pingErr.
type slowEmbedder struct {
	driven.EmbeddingService
	pingErr error
	block   bool
	closed  bool
}

func (s *slowEmbedder) ModelName() string { return "tiny" }

func (s *slowEmbedder) Ping(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.pingErr
}

func (s *slowEmbedder) Close() error {
	s.closed = true
	return nil
}

func validatorWith(svc driven.EmbeddingService, err error) *ConfigValidator {
	return &ConfigValidator{
		timeout: 50 * time.Millisecond,
		build: func(*domain.EmbeddingSettings) (driven.EmbeddingService, error) {
			return svc, err
		},
	}
}

func TestConfigValidator_NothingToValidate(t *testing.T) {
	v := NewConfigValidator()

	assert.NoError(t, v.ValidateEmbedding(nil))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Model: "orphan"}))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderNone}))
}

func TestConfigValidator_ClosesProbeOnSuccess(t *testing.T) {
	probe := &slowEmbedder{}

	err := validatorWith(probe, nil).ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama})

	require.NoError(t, err)
	assert.True(t, probe.closed)
}

func TestConfigValidator_PingFailureNamesModel(t *testing.T) {
	probe := &slowEmbedder{pingErr: errors.New("401 unauthorized")}

	err := validatorWith(probe, nil).ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model tiny unreachable: 401 unauthorized")
	assert.True(t, probe.closed)
}

func TestConfigValidator_TimesOut(t *testing.T) {
	probe := &slowEmbedder{block: true}

	err := validatorWith(probe, nil).ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConfigValidator_BuildError(t *testing.T) {
	boom := errors.New("missing api key")

	err := validatorWith(nil, boom).ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI})

	assert.ErrorIs(t, err, boom)
}

func TestConfigValidator_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"nomic-embed-text:latest"}]}`))
	}))
	settings := &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}
	v := NewConfigValidator()

	assert.NoError(t, v.ValidateEmbedding(settings))

	srv.Close()
	assert.Error(t, v.ValidateEmbedding(settings))
}
