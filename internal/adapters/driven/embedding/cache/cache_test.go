package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	model string
	calls [][]string
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.calls = append(e.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 0.25}
	}
	return out, nil
}

func (e *countingEmbedder) Dimensions() int            { return 2 }
func (e *countingEmbedder) ModelName() string          { return e.model }
func (e *countingEmbedder) Ping(context.Context) error { return nil }
func (e *countingEmbedder) Close() error               { return nil }

func TestCache_HitsSkipProvider(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), FileName)
	inner := &countingEmbedder{model: "m1"}

	svc, err := New(inner, path)
	require.NoError(t, err)

	first, err := svc.EmbedBatch(ctx, []string{"alpha", "be"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{5, 0.25}, {2, 0.25}}, first)
	assert.Equal(t, 2, svc.Len())

	// Only the new text reaches the provider.
	second, err := svc.EmbedBatch(ctx, []string{"be", "gamma"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 0.25}, {5, 0.25}}, second)
	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"gamma"}, inner.calls[1])

	_, err = svc.Embed(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, inner.calls, 2)

	assert.Equal(t, "m1", svc.ModelName())
	assert.Equal(t, 2, svc.Dimensions())
	require.NoError(t, svc.Close())
}

func TestCache_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), FileName)

	svc, err := New(&countingEmbedder{model: "m1"}, path)
	require.NoError(t, err)
	_, err = svc.Embed(ctx, "persisted")
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	inner := &countingEmbedder{model: "m1"}
	reopened, err := New(inner, path)
	require.NoError(t, err)
	defer reopened.Close()

	vec, err := reopened.Embed(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 0.25}, vec)
	assert.Empty(t, inner.calls)
}

func TestCache_SeparatesModels(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), FileName)

	svc, err := New(&countingEmbedder{model: "m1"}, path)
	require.NoError(t, err)
	_, err = svc.Embed(ctx, "text")
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	inner := &countingEmbedder{model: "m2"}
	other, err := New(inner, path)
	require.NoError(t, err)
	defer other.Close()

	_, err = other.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Len(t, inner.calls, 1)
}

func TestCache_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	svc, err := New(&countingEmbedder{model: "m", err: boom}, filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, svc.Len())
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{1.5, -2, 0, 3.25}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}
