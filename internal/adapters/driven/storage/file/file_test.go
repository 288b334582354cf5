package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

func TestContentStore_RoundTrip(t *testing.T) {
	store, err := NewContentStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	id := "2026-01-18_RLM_001_r&d"

	ok, err := store.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Write(ctx, id, []byte("first")))
	require.NoError(t, store.Write(ctx, id, []byte("second")))

	data, err := store.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	_, err = os.Stat(filepath.Join(store.Dir(), id+".md"))
	assert.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))
	require.NoError(t, store.Delete(ctx, id))

	_, err = store.Read(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContentStore_RejectsUnsafeIDs(t *testing.T) {
	store, err := NewContentStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"../escape", "a/b", `..\x`, "", "a b", "/etc/passwd"} {
		t.Run(id, func(t *testing.T) {
			assert.ErrorIs(t, store.Write(ctx, id, []byte("x")), domain.ErrInvalidChunkID)
			_, err := store.Read(ctx, id)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, err = store.Exists(ctx, id)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.ErrorIs(t, store.Delete(ctx, id), domain.ErrInvalidInput)
		})
	}

	entries, err := os.ReadDir(filepath.Dir(store.Dir()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewContentStore_EmptyDir(t *testing.T) {
	_, err := NewContentStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBlobStore_Lifecycle(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), ".gz")
	require.NoError(t, err)
	ctx := context.Background()
	id := "2026-01-18_RLM_001"

	w, err := store.Create(ctx, id)
	require.NoError(t, err)
	_, err = w.Write([]byte("compressed bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(store.Dir(), id+".md.gz"))
	require.NoError(t, err)

	_, err = store.Create(ctx, id)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	size, err := store.Size(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, len("compressed bytes"), size)

	r, err := store.Open(ctx, id)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "compressed bytes", string(data))

	require.NoError(t, store.Delete(ctx, id))
	ok, err := store.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Open(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Size(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBlobStore_RejectsTraversal(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), ".gz")
	require.NoError(t, err)

	_, err = store.Create(context.Background(), "../../x")
	assert.ErrorIs(t, err, domain.ErrInvalidChunkID)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	require.NoError(t, WriteFileAtomic(path, []byte("a = 1\n"), 0600))
	require.NoError(t, WriteFileAtomic(path, []byte("a = 2\n"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a = 2\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
