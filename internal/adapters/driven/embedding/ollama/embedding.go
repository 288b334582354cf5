// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 768

	// MaxBatch caps the inputs sent in one /api/embed call.
	MaxBatch = 32
)

// ErrModelNotPulled means the server is up but does not have the model.
var ErrModelNotPulled = errors.New("ollama: model not pulled")

// Config configures an EmbeddingService. Zero fields take the defaults.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is a hint until the first response arrives; after that the
	// width of the returned vectors wins.
	Dimensions int
}

// EmbeddingService talks to /api/embed. Every vector it returns for one
// model has the same width; a server that changes width mid-stream is
// reported as an error rather than passed on to the index.
type EmbeddingService struct {
	http    *http.Client
	baseURL string
	model   string

	mu       sync.RWMutex
	dims     int
	observed bool
}

// NewEmbeddingService applies defaults to cfg and returns the service.
// It does not contact the server; use Ping for that.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		dims:    cfg.Dimensions,
	}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in order, splitting them into MaxBatch requests.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatch {
		part := texts[start:min(start+MaxBatch, len(texts))]

		var resp struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		req := struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}{s.model, part}
		if err := s.call(ctx, http.MethodPost, "/api/embed", req, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(part) {
			return nil, fmt.Errorf("ollama: %d embeddings for %d inputs", len(resp.Embeddings), len(part))
		}
		for _, vec := range resp.Embeddings {
			if err := s.observe(len(vec)); err != nil {
				return nil, err
			}
		}
		out = append(out, resp.Embeddings...)
	}
	return out, nil
}

// observe records the width of the first vector and rejects any other.
func (s *EmbeddingService) observe(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case n == 0:
		return errors.New("ollama: empty embedding")
	case !s.observed:
		s.dims, s.observed = n, true
	case n != s.dims:
		return fmt.Errorf("ollama: %s returned %d dimensions, expected %d", s.model, n, s.dims)
	}
	return nil
}

// Dimensions is the observed vector width, or the configured hint before
// the first embedding.
func (s *EmbeddingService) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists the local models and checks that ours is among them. A bare
// model name matches its ":latest" tag.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := s.call(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return err
	}
	for _, m := range tags.Models {
		if m.Name == s.model || m.Name == s.model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("%w: run 'ollama pull %s'", ErrModelNotPulled, s.model)
}

func (s *EmbeddingService) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

// call sends in as JSON (nil means no body) and decodes the reply into out.
func (s *EmbeddingService) call(ctx context.Context, method, path string, in, out any) error {
	body := io.Reader(http.NoBody)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("ollama: encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama: %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ollama: decode %s: %w", path, err)
	}
	return nil
}
