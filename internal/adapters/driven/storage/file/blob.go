package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobStore keeps archive artifacts as files named <id>.md<ext>.
type BlobStore struct {
	root root
}

// NewBlobStore creates the directory if needed. ext is the codec extension,
// e.g. ".gz".
func NewBlobStore(dir, ext string) (*BlobStore, error) {
	r, err := newRoot(dir, ContentSuffix+ext)
	if err != nil {
		return nil, err
	}
	return &BlobStore{root: r}, nil
}

// Dir returns the storage directory.
func (s *BlobStore) Dir() string {
	return s.root.dir
}

// Create opens a new artifact exclusively; it never overwrites.
func (s *BlobStore) Create(_ context.Context, id string) (io.WriteCloser, error) {
	p, err := s.root.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("archive %s: %w", id, domain.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("create archive %s: %w", id, err)
	}
	return &syncCloser{File: f}, nil
}

// Open opens an artifact for reading.
func (s *BlobStore) Open(_ context.Context, id string) (io.ReadCloser, error) {
	p, err := s.root.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("archive %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", id, err)
	}
	return f, nil
}

// Delete removes an artifact. A missing artifact is not an error.
func (s *BlobStore) Delete(_ context.Context, id string) error {
	p, err := s.root.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete archive %s: %w", id, err)
	}
	return nil
}

// Exists reports whether an artifact exists.
func (s *BlobStore) Exists(_ context.Context, id string) (bool, error) {
	p, err := s.root.path(id)
	if err != nil {
		return false, err
	}
	return exists(p)
}

// Size returns the artifact size in bytes.
func (s *BlobStore) Size(_ context.Context, id string) (int64, error) {
	p, err := s.root.path(id)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("archive %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("stat archive %s: %w", id, err)
	}
	return info.Size(), nil
}

// syncCloser flushes the file to disk before closing it.
type syncCloser struct {
	*os.File
}

func (s *syncCloser) Close() error {
	if err := s.File.Sync(); err != nil {
		_ = s.File.Close()
		return err
	}
	return s.File.Close()
}
