package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/rlm/internal/core/bm25"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/tokenizer"
	"github.com/custodia-labs/rlm/internal/logger"
)

// insightSummaryLength is how much of an insight's content stands in for
// its summary in search results.
const insightSummaryLength = 80

// errCorpusClosed is returned once Close has been called.
var errCorpusClosed = errors.New("corpus index closed")

// corpusSnapshot is an immutable lexical index over the corpus as it was
// when built, plus the metadata needed to hydrate and filter hits.
type corpusSnapshot struct {
	generation uint64
	index      *bm25.Index
	chunks     map[string]*domain.Chunk
	summaries  map[string]string
}

// CorpusIndex owns the cached BM25 index. The index is built lazily on the
// first search and reused until something invalidates it: a write through
// the services, or a change reported by a ChangeWatcher.
type CorpusIndex struct {
	chunks   driven.ChunkStore
	content  driven.ContentStore
	insights driven.InsightStore

	mu         sync.Mutex
	generation uint64
	// cached holds one snapshot per insight inclusion mode.
	cached map[bool]*corpusSnapshot
	closed bool
}

// NewCorpusIndex creates an empty, cold index.
func NewCorpusIndex(chunks driven.ChunkStore, content driven.ContentStore, insights driven.InsightStore) *CorpusIndex {
	return &CorpusIndex{
		chunks:   chunks,
		content:  content,
		insights: insights,
		cached:   make(map[bool]*corpusSnapshot, 2),
	}
}

// Warm builds the index including insights, so the first search does not
// pay for it.
func (c *CorpusIndex) Warm(ctx context.Context) error {
	_, err := c.snapshot(ctx, true)
	return err
}

// Invalidate drops every cached snapshot. The next search rebuilds.
func (c *CorpusIndex) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	clear(c.cached)
	logger.Debug("corpus: invalidated (generation %d)", c.generation)
}

// Close releases the cached snapshots; later searches fail.
func (c *CorpusIndex) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	clear(c.cached)
	return nil
}

// Watch invalidates the index whenever watcher reports a change. It blocks
// until ctx is done.
func (c *CorpusIndex) Watch(ctx context.Context, watcher driven.ChangeWatcher) error {
	return watcher.Watch(ctx, c.Invalidate)
}

// Len returns the number of indexed documents in the snapshot that
// includes insights, building it if needed.
func (c *CorpusIndex) Len(ctx context.Context) (int, error) {
	snap, err := c.snapshot(ctx, true)
	if err != nil {
		return 0, err
	}
	return snap.index.Len(), nil
}

func (c *CorpusIndex) snapshot(ctx context.Context, includeInsights bool) (*corpusSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errCorpusClosed
	}
	if snap, ok := c.cached[includeInsights]; ok && snap.generation == c.generation {
		return snap, nil
	}

	start := time.Now()
	snap, err := c.build(ctx, includeInsights)
	if err != nil {
		return nil, err
	}
	snap.generation = c.generation
	c.cached[includeInsights] = snap
	logger.Elapsed(fmt.Sprintf("corpus build (%d docs, insights=%t)", snap.index.Len(), includeInsights), start)
	return snap, nil
}

func (c *CorpusIndex) build(ctx context.Context, includeInsights bool) (*corpusSnapshot, error) {
	chunks, err := c.chunks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	snap := &corpusSnapshot{
		chunks:    make(map[string]*domain.Chunk, len(chunks)),
		summaries: make(map[string]string, len(chunks)),
	}
	docs := make([]bm25.Document, 0, len(chunks))

	for i := range chunks {
		ch := &chunks[i]
		snap.chunks[ch.ID] = ch
		snap.summaries[ch.ID] = ch.Summary

		data, err := c.content.Read(ctx, ch.ID)
		if err != nil {
			// Metadata without a body still matches on its metadata.
			logger.Debug("corpus: read %s: %v", ch.ID, err)
		}
		terms := tokenizer.Terms(chunkDocumentText(ch, stripFrontMatter(data)))
		if len(terms) == 0 {
			continue
		}
		docs = append(docs, bm25.Document{ID: ch.ID, Terms: terms})
	}

	if includeInsights && c.insights != nil {
		insights, err := c.insights.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list insights: %w", err)
		}
		for i := range insights {
			in := &insights[i]
			id := in.DocumentID()
			snap.summaries[id] = truncateRunes(in.Content, insightSummaryLength)
			terms := tokenizer.Terms(in.Content + " " + in.Tags.Join(" "))
			if len(terms) == 0 {
				continue
			}
			docs = append(docs, bm25.Document{ID: id, Terms: terms})
		}
	}

	snap.index = bm25.Build(docs)
	return snap, nil
}

// chunkDocumentText prepends the metadata fields to the body so that
// keywords found only in the summary or tags still match.
func chunkDocumentText(c *domain.Chunk, body string) string {
	parts := []string{c.Summary, c.Tags.Join(" "), c.Project, c.Domain, body}
	return strings.Join(parts, " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
