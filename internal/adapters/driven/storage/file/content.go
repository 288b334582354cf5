package file

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

// Ensure ContentStore implements the interface.
var _ driven.ContentStore = (*ContentStore)(nil)

// ContentSuffix is the file extension of chunk bodies.
const ContentSuffix = ".md"

// ContentStore keeps chunk bodies as markdown files under a directory.
type ContentStore struct {
	root root
}

// NewContentStore creates the directory if needed.
func NewContentStore(dir string) (*ContentStore, error) {
	r, err := newRoot(dir, ContentSuffix)
	if err != nil {
		return nil, err
	}
	return &ContentStore{root: r}, nil
}

// Dir returns the storage directory.
func (s *ContentStore) Dir() string {
	return s.root.dir
}

// Read returns the file content.
func (s *ContentStore) Read(_ context.Context, id string) ([]byte, error) {
	p, err := s.root.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", id, err)
	}
	return data, nil
}

// Write replaces the file atomically.
func (s *ContentStore) Write(_ context.Context, id string, data []byte) error {
	p, err := s.root.path(id)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(p, data, 0600); err != nil {
		return fmt.Errorf("write chunk %s: %w", id, err)
	}
	return nil
}

// Delete removes the file. A missing file is not an error.
func (s *ContentStore) Delete(_ context.Context, id string) error {
	p, err := s.root.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete chunk %s: %w", id, err)
	}
	return nil
}

// Exists reports whether the file exists.
func (s *ContentStore) Exists(_ context.Context, id string) (bool, error) {
	p, err := s.root.path(id)
	if err != nil {
		return false, err
	}
	return exists(p)
}

func exists(p string) (bool, error) {
	_, err := os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
