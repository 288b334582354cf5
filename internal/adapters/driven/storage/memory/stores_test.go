package memory

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

func TestChunkStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(nil)
	day := time.Date(2026, 1, 18, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Upsert(ctx, &domain.Chunk{ID: "old", Project: "RLM", CreatedAt: day, Fingerprint: "fp1"}))
	require.NoError(t, store.Upsert(ctx, &domain.Chunk{ID: "new", Project: "RLM", CreatedAt: day.Add(time.Hour)}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, domain.TierActive, list[0].Tier)

	found, err := store.FindByFingerprint(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, "old", found.ID)

	n, err := store.CountCreatedOn(ctx, "2026-01-18", "RLM")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	updated, err := store.Update(ctx, "old", func(c *domain.Chunk) error {
		c.AccessCount++
		c.Tags.Add("keep")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.AccessCount)

	// Mutating the returned copy does not touch the stored record.
	updated.Tags.Add("leak")
	got, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, got.Tags.Slice())

	require.NoError(t, store.Remove(ctx, "old"))
	assert.ErrorIs(t, store.Remove(ctx, "old"), domain.ErrNotFound)
	_, err = store.Update(ctx, "old", func(*domain.Chunk) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func dayIDs(date, project string) driven.ChunkIDFunc {
	return func(_ context.Context, seq int) (string, bool, error) {
		return domain.NewChunkID(date, project, seq, "", ""), true, nil
	}
}

func TestChunkStore_Create(t *testing.T) {
	ctx := context.Background()
	archive := NewArchiveIndex()
	store := NewChunkStore(archive)
	day := time.Date(2026, 1, 18, 9, 0, 0, 0, time.UTC)

	require.NoError(t, archive.Add(ctx, &domain.ArchivedChunk{
		Chunk:      domain.Chunk{ID: "2026-01-18_RLM_002", Project: "RLM", CreatedAt: day, Fingerprint: "fp-old"},
		ArchivedAt: day,
	}))

	first := &domain.Chunk{Project: "RLM", CreatedAt: day, Fingerprint: "fp-new"}
	dup, err := store.Create(ctx, first, dayIDs("2026-01-18", "RLM"))
	require.NoError(t, err)
	assert.Nil(t, dup)
	// The archived _002 counts toward the day and its ID is skipped.
	assert.Equal(t, "2026-01-18_RLM_003", first.ID)

	dup, err = store.Create(ctx, &domain.Chunk{Project: "RLM", CreatedAt: day, Fingerprint: "fp-new"}, dayIDs("2026-01-18", "RLM"))
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.False(t, dup.Archived)
	assert.Equal(t, first.ID, dup.Chunk.ID)

	dup, err = store.Create(ctx, &domain.Chunk{Project: "RLM", CreatedAt: day, Fingerprint: "fp-old"}, dayIDs("2026-01-18", "RLM"))
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.True(t, dup.Archived)
	assert.Equal(t, "2026-01-18_RLM_002", dup.Chunk.ID)

	assert.ErrorIs(t, store.Upsert(ctx, &domain.Chunk{ID: "other", Fingerprint: "fp-new"}), domain.ErrAlreadyExists)
}

func TestChunkStore_CreateConcurrentSameContent(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(NewArchiveIndex())
	day := time.Date(2026, 1, 18, 9, 0, 0, 0, time.UTC)

	const writers = 20
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		dups    atomic.Int32
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &domain.Chunk{Project: "RLM", CreatedAt: day, Fingerprint: "fp-same-body"}
			dup, err := store.Create(ctx, c, dayIDs("2026-01-18", "RLM"))
			if !assert.NoError(t, err) {
				return
			}
			if dup != nil {
				dups.Add(1)
			} else {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(writers-1), dups.Load())
	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestArchiveIndex_Lifecycle(t *testing.T) {
	ctx := context.Background()
	index := NewArchiveIndex()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	entry := &domain.ArchivedChunk{
		Chunk:          domain.Chunk{ID: "a", Fingerprint: "fp"},
		ArchivedAt:     at,
		OriginalSize:   100,
		CompressedSize: 40,
	}
	require.NoError(t, index.Add(ctx, entry))
	assert.ErrorIs(t, index.Add(ctx, entry), domain.ErrAlreadyExists)
	assert.ErrorIs(t, index.Add(ctx, &domain.ArchivedChunk{Chunk: domain.Chunk{ID: "b"}}), domain.ErrInvalidInput)

	got, err := index.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.TierArchived, got.Tier)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ArchiveStats{Count: 1, TotalOriginalSize: 100, TotalCompressedSize: 40}, stats)

	require.NoError(t, index.Remove(ctx, "a"))
	assert.ErrorIs(t, index.Remove(ctx, "a"), domain.ErrNotFound)
}

func TestPurgeLog_NewestFirst(t *testing.T) {
	ctx := context.Background()
	log := NewPurgeLog()
	require.NoError(t, log.Append(ctx, domain.PurgeRecord{ID: "a"}))
	require.NoError(t, log.Append(ctx, domain.PurgeRecord{ID: "b"}))

	all, err := log.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	one, err := log.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestSessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	require.NoError(t, store.Create(ctx, &domain.Session{ID: "s1"}))
	assert.ErrorIs(t, store.Create(ctx, &domain.Session{ID: "s1"}), domain.ErrAlreadyExists)

	require.NoError(t, store.AddChunk(ctx, "s1", "c1"))
	require.NoError(t, store.AddChunk(ctx, "s1", "c1"))
	assert.ErrorIs(t, store.AddChunk(ctx, "missing", "c1"), domain.ErrNotFound)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, got.Chunks)
	assert.False(t, got.Started.IsZero())

	require.NoError(t, store.SetCurrent(ctx, "s1"))
	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", current)
}

func TestContentStore_ValidatesIDs(t *testing.T) {
	ctx := context.Background()
	store := NewContentStore()

	assert.ErrorIs(t, store.Write(ctx, "../escape", []byte("x")), domain.ErrInvalidChunkID)

	require.NoError(t, store.Write(ctx, "a", []byte("body")))
	data, err := store.Read(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Read(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBlobStore_CreateIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	w, err := store.Create(ctx, "a")
	require.NoError(t, err)
	_, err = store.Create(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = w.Write([]byte("compressed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	size, err := store.Size(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	r, err := store.Open(ctx, "a")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "compressed", string(data))

	require.NoError(t, store.Delete(ctx, "a"))
	exists, err := store.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSchedulerStore_History(t *testing.T) {
	ctx := context.Background()
	store := NewSchedulerStore()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{TaskID: "retention", ItemsProcessed: i}))
	}
	require.NoError(t, store.PruneHistory(ctx, 2))

	history, err := store.GetTaskHistory(ctx, "retention", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 5, history[0].ItemsProcessed)
	assert.Equal(t, 4, history[1].ItemsProcessed)

	task, err := store.GetTask(ctx, "retention")
	require.NoError(t, err)
	assert.Nil(t, task)
}
