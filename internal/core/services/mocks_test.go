package services

import (
	"context"
	"hash/fnv"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/adapters/driven/codec/gzip"
	"github.com/custodia-labs/rlm/internal/adapters/driven/fuzzy"
	"github.com/custodia-labs/rlm/internal/adapters/driven/project"
	"github.com/custodia-labs/rlm/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/rlm/internal/adapters/driven/tokens"
	"github.com/custodia-labs/rlm/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
	"github.com/custodia-labs/rlm/internal/core/tokenizer"
)

// --- Mock implementations ---

// mockEmbeddingService hashes terms into a small bag-of-words vector, so
// texts sharing terms are similar.
type mockEmbeddingService struct {
	mu       sync.Mutex
	dims     int
	embedErr error
	pingErr  error
	calls    int
}

func newMockEmbeddingService() *mockEmbeddingService {
	return &mockEmbeddingService{dims: 16}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, m.dims)
	for _, term := range tokenizer.Terms(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		v[h.Sum32()%uint32(m.dims)]++
	}
	return v
}

func (m *mockEmbeddingService) Dimensions() int   { return m.dims }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return m.pingErr }
func (m *mockEmbeddingService) Close() error                 { return nil }

func (m *mockEmbeddingService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockVectorIndex returns fixed hits.
type mockVectorIndex struct {
	hits      []driven.VectorHit
	searchErr error
	size      int
}

func (m *mockVectorIndex) Add(context.Context, string, []float32) error { return nil }
func (m *mockVectorIndex) Remove(context.Context, string) (bool, error) { return false, nil }
func (m *mockVectorIndex) Has(string) bool                              { return false }
func (m *mockVectorIndex) Save(context.Context) error                   { return nil }
func (m *mockVectorIndex) Load(context.Context) bool                    { return true }
func (m *mockVectorIndex) Reset(context.Context) error                  { return nil }
func (m *mockVectorIndex) Dimensions() int                              { return 16 }
func (m *mockVectorIndex) Close() error                                 { return nil }

func (m *mockVectorIndex) Len() int {
	if m.size > 0 {
		return m.size
	}
	return len(m.hits)
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

// hookedContentStore wraps the memory store with optional hooks and
// injected write failures.
type hookedContentStore struct {
	*memory.ContentStore
	onRead   func(id string)
	onExists func(id string)
	writeErr error
}

func (s *hookedContentStore) Read(ctx context.Context, id string) ([]byte, error) {
	if s.onRead != nil {
		s.onRead(id)
	}
	return s.ContentStore.Read(ctx, id)
}

func (s *hookedContentStore) Exists(ctx context.Context, id string) (bool, error) {
	if s.onExists != nil {
		s.onExists(id)
	}
	return s.ContentStore.Exists(ctx, id)
}

func (s *hookedContentStore) Write(ctx context.Context, id string, data []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.ContentStore.Write(ctx, id, data)
}

// flakyBlobStore fails Size or Delete for chosen IDs.
type flakyBlobStore struct {
	*memory.BlobStore
	sizeErr   map[string]error
	deleteErr map[string]error
	onSize    func(id string)
}

func newFlakyBlobStore(blobs *memory.BlobStore) *flakyBlobStore {
	return &flakyBlobStore{
		BlobStore: blobs,
		sizeErr:   map[string]error{},
		deleteErr: map[string]error{},
	}
}

func (s *flakyBlobStore) Size(ctx context.Context, id string) (int64, error) {
	if s.onSize != nil {
		s.onSize(id)
	}
	if err := s.sizeErr[id]; err != nil {
		return 0, err
	}
	return s.BlobStore.Size(ctx, id)
}

func (s *flakyBlobStore) Delete(ctx context.Context, id string) error {
	if err := s.deleteErr[id]; err != nil {
		return err
	}
	return s.BlobStore.Delete(ctx, id)
}

// failingCodec returns writers that fail on the first write.
type failingCodec struct {
	driven.Codec
	err error
}

func (c failingCodec) NewWriter(io.Writer) (io.WriteCloser, error) {
	return errWriter{err: c.err}, nil
}

type errWriter struct{ err error }

func (w errWriter) Write([]byte) (int, error) { return 0, w.err }
func (w errWriter) Close() error              { return nil }

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// --- Test environment ---

// testEnv wires every core service over in-memory stores.
type testEnv struct {
	clock *fakeClock

	chunks   *memory.ChunkStore
	archive  *memory.ArchiveIndex
	purgeLog *memory.PurgeLog
	content  *memory.ContentStore
	blobs    *memory.BlobStore
	insights *memory.InsightStore
	sessions *memory.SessionStore
	config   *memory.ConfigStore

	embedder *mockEmbeddingService
	vectors  *flat.Index
	corpus   *CorpusIndex

	retention *RetentionService
	sessionSv *SessionService
	chunkSv   *ChunkService
	insightSv *InsightService
	searchSv  *SearchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	vectors, err := flat.New(filepath.Join(t.TempDir(), "vectors.bin"))
	require.NoError(t, err)

	archive := memory.NewArchiveIndex()
	env := &testEnv{
		clock:    newFakeClock(),
		chunks:   memory.NewChunkStore(archive),
		archive:  archive,
		purgeLog: memory.NewPurgeLog(),
		content:  memory.NewContentStore(),
		blobs:    memory.NewBlobStore(),
		insights: memory.NewInsightStore(),
		sessions: memory.NewSessionStore(),
		config:   memory.NewConfigStore(),
		embedder: newMockEmbeddingService(),
		vectors:  vectors,
	}
	env.corpus = NewCorpusIndex(env.chunks, env.content, env.insights)
	t.Cleanup(func() { _ = env.corpus.Close() })

	env.retention = NewRetentionService(env.chunks, env.archive, env.purgeLog,
		env.content, env.blobs, gzip.Default(), domain.DefaultRetentionPolicy())
	env.retention.SetCorpus(env.corpus)
	env.retention.SetVectorIndex(env.vectors)
	env.retention.SetClock(env.clock.Now)

	env.sessionSv = NewSessionService(env.sessions, env.config)
	env.sessionSv.now = env.clock.Now

	env.chunkSv = NewChunkService(ChunkServiceDeps{
		Chunks:    env.chunks,
		Archive:   env.archive,
		Content:   env.content,
		Retention: env.retention,
		Corpus:    env.corpus,
		Sessions:  env.sessionSv,
		Embedder:  env.embedder,
		Vectors:   env.vectors,
		Tokens:    tokens.Approx{},
		Projects:  project.Static("rlm"),
		Fuzzy:     fuzzy.Substring{},
		WorkDir:   "/work/rlm",
	})
	env.chunkSv.SetClock(env.clock.Now)

	env.insightSv = NewInsightService(env.insights, env.corpus)
	env.insightSv.SetClock(env.clock.Now)

	env.searchSv = NewSearchService(env.corpus, env.archive, env.vectors, env.embedder, domain.SearchSettings{
		Mode:  domain.SearchModeHybrid,
		Alpha: domain.DefaultHybridAlpha,
	})
	return env
}

// retentionOver builds a retention service sharing env's indexes but
// reading bodies and archives through the given stores.
func (e *testEnv) retentionOver(content driven.ContentStore, blobs driven.BlobStore, codec driven.Codec) *RetentionService {
	r := NewRetentionService(e.chunks, e.archive, e.purgeLog, content, blobs, codec, domain.DefaultRetentionPolicy())
	r.SetCorpus(e.corpus)
	r.SetVectorIndex(e.vectors)
	r.SetClock(e.clock.Now)
	return r
}

// createChunk stores a chunk and fails the test unless it was created.
func (e *testEnv) createChunk(t *testing.T, req chunkSpec) *domain.Chunk {
	t.Helper()
	out, err := e.chunkSv.Create(context.Background(), req.request())
	require.NoError(t, err)
	require.Equal(t, domain.StatusCreated, out.Status)
	return out.Chunk
}

// chunkSpec builds chunk requests tersely in tests.
type chunkSpec struct {
	Content string
	Tags    []string
	Project string
	Domain  string
	Type    domain.ChunkType
}

func (o chunkSpec) request() driving.ChunkRequest {
	return driving.ChunkRequest{
		Content: o.Content,
		Tags:    domain.NewTagSet(o.Tags...),
		Project: o.Project,
		Domain:  o.Domain,
		Type:    o.Type,
	}
}

// age moves a chunk's creation time into the past.
func (e *testEnv) age(t *testing.T, id string, by time.Duration) {
	t.Helper()
	_, err := e.chunks.Update(context.Background(), id, func(c *domain.Chunk) error {
		c.CreatedAt = c.CreatedAt.Add(-by)
		return nil
	})
	require.NoError(t, err)
}
