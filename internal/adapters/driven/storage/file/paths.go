package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// root is a directory that resolves chunk IDs to files inside it.
type root struct {
	dir    string
	suffix string
}

func newRoot(dir, suffix string) (root, error) {
	if dir == "" {
		return root{}, fmt.Errorf("%w: empty storage root", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return root{}, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return root{}, fmt.Errorf("create storage root: %w", err)
	}
	return root{dir: filepath.Clean(abs), suffix: suffix}, nil
}

// path validates id and returns its file path.
func (r root) path(id string) (string, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return "", err
	}

	p := filepath.Clean(filepath.Join(r.dir, id+r.suffix))
	rel, err := filepath.Rel(r.dir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q escapes storage root", domain.ErrInvalidChunkID, id)
	}
	return p, nil
}
