package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

var (
	_ driven.ContentStore = (*ContentStore)(nil)
	_ driven.BlobStore    = (*BlobStore)(nil)
)

// ContentStore is an in-memory implementation of driven.ContentStore.
type ContentStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewContentStore creates a new in-memory content store.
func NewContentStore() *ContentStore {
	return &ContentStore{
		files: make(map[string][]byte),
	}
}

// Read returns the stored bytes.
func (s *ContentStore) Read(_ context.Context, id string) ([]byte, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return bytes.Clone(data), nil
}

// Write replaces the content.
func (s *ContentStore) Write(_ context.Context, id string, data []byte) error {
	if err := domain.ValidateChunkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = bytes.Clone(data)
	return nil
}

// Delete removes the content.
func (s *ContentStore) Delete(_ context.Context, id string) error {
	if err := domain.ValidateChunkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
	return nil
}

// Exists reports whether content is stored under id.
func (s *ContentStore) Exists(_ context.Context, id string) (bool, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[id]
	return ok, nil
}

// BlobStore is an in-memory implementation of driven.BlobStore. A blob
// becomes visible when its writer is closed.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		blobs: make(map[string][]byte),
	}
}

// Create opens a new blob for writing.
func (s *BlobStore) Create(_ context.Context, id string) (io.WriteCloser, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; ok {
		return nil, fmt.Errorf("blob %s: %w", id, domain.ErrAlreadyExists)
	}
	// Reserve the name so a second Create fails like O_EXCL would.
	s.blobs[id] = nil
	return &blobWriter{store: s, id: id}, nil
}

// Open opens a blob for reading.
func (s *BlobStore) Open(_ context.Context, id string) (io.ReadCloser, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes a blob.
func (s *BlobStore) Delete(_ context.Context, id string) error {
	if err := domain.ValidateChunkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	return nil
}

// Exists reports whether a blob is stored under id.
func (s *BlobStore) Exists(_ context.Context, id string) (bool, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[id]
	return ok, nil
}

// Size returns the blob size in bytes.
func (s *BlobStore) Size(_ context.Context, id string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return int64(len(data)), nil
}

type blobWriter struct {
	store *BlobStore
	id    string
	buf   bytes.Buffer
}

func (w *blobWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *blobWriter) Close() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	if _, ok := w.store.blobs[w.id]; !ok {
		// Deleted while open.
		return nil
	}
	w.store.blobs[w.id] = bytes.Clone(w.buf.Bytes())
	return nil
}
