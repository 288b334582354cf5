// Package flat implements driven.VectorIndex as an in-memory array of
// vectors searched by brute-force cosine similarity and persisted as a single
// binary file.
//
// File layout (little endian):
//
//	magic "RLMV" | version u32 | dimension u32 | count u32
//	count x ( id length u32 | id bytes | dimension x f32 )
package flat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/custodia-labs/rlm/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

const (
	fileMagic   = "RLMV"
	fileVersion = uint32(1)

	// maxIDLength bounds id lengths read from disk.
	maxIDLength = 4096

	// zeroNorm replaces the norm of a stored zero vector.
	zeroNorm = 1e-10
)

var errClosed = errors.New("flat: index is closed")

// Index is a flat vector store. It is safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	path      string
	dimension int
	ids       []string
	vectors   [][]float32
	norms     []float64
	pos       map[string]int
	closed    bool
}

// New creates an empty index persisted at path. Call Load to read an
// existing file.
func New(path string) (*Index, error) {
	if path == "" {
		return nil, errors.New("flat: path cannot be empty")
	}
	return &Index{
		path: path,
		pos:  make(map[string]int),
	}, nil
}

// Path returns the file the index is persisted to.
func (idx *Index) Path() string {
	return idx.path
}

// Add inserts or replaces the vector for id.
func (idx *Index) Add(_ context.Context, id string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("flat: %w: empty vector", domain.ErrInvalidInput)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return errClosed
	}
	if idx.dimension != 0 && len(embedding) != idx.dimension {
		return fmt.Errorf("flat: %w: got %d, index holds %d",
			domain.ErrDimensionMismatch, len(embedding), idx.dimension)
	}
	if idx.dimension == 0 {
		idx.dimension = len(embedding)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	if i, ok := idx.pos[id]; ok {
		idx.vectors[i] = vec
		idx.norms[i] = norm(vec)
		return nil
	}

	idx.pos[id] = len(idx.ids)
	idx.ids = append(idx.ids, id)
	idx.vectors = append(idx.vectors, vec)
	idx.norms = append(idx.norms, norm(vec))
	return nil
}

// Remove deletes the vector for id and reports whether one existed.
func (idx *Index) Remove(_ context.Context, id string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return false, errClosed
	}

	i, ok := idx.pos[id]
	if !ok {
		return false, nil
	}

	idx.ids = append(idx.ids[:i], idx.ids[i+1:]...)
	idx.vectors = append(idx.vectors[:i], idx.vectors[i+1:]...)
	idx.norms = append(idx.norms[:i], idx.norms[i+1:]...)
	delete(idx.pos, id)
	for j := i; j < len(idx.ids); j++ {
		idx.pos[idx.ids[j]] = j
	}
	if len(idx.ids) == 0 {
		idx.dimension = 0
	}
	return true, nil
}

// Has reports whether a vector is stored for id.
func (idx *Index) Has(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.pos[id]
	return ok
}

// Search returns up to k hits ranked by cosine similarity clamped to [0,1].
// Hits with similarity 0 are dropped. k <= 0 means no limit.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, errClosed
	}

	hits := []driven.VectorHit{}
	if len(idx.ids) == 0 {
		return hits, nil
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("flat: %w: query has %d, index holds %d",
			domain.ErrDimensionMismatch, len(query), idx.dimension)
	}

	qNorm := norm(query)
	if qNorm == 0 {
		return hits, nil
	}

	for i, vec := range idx.vectors {
		vNorm := idx.norms[i]
		if vNorm == 0 {
			vNorm = zeroNorm
		}
		sim := clamp(dot(vec, query) / (vNorm * qNorm))
		if sim > 0 {
			hits = append(hits, driven.VectorHit{ID: idx.ids[i], Similarity: sim})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Similarity > hits[b].Similarity
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Reset drops every vector and the fixed dimension.
func (idx *Index) Reset(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return errClosed
	}
	idx.reset()
	return nil
}

func (idx *Index) reset() {
	idx.dimension = 0
	idx.ids = nil
	idx.vectors = nil
	idx.norms = nil
	idx.pos = make(map[string]int)
}

// Dimensions returns the fixed dimension, or 0 while the index is empty.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// Save replaces the file atomically. An empty index writes nothing.
func (idx *Index) Save(_ context.Context) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return errClosed
	}
	if len(idx.ids) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := idx.encode(&buf); err != nil {
		return fmt.Errorf("flat: encode: %w", err)
	}
	if err := file.WriteFileAtomic(idx.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("flat: %w", err)
	}

	logger.Debug("flat: saved %d vectors (dim %d) to %s", len(idx.ids), idx.dimension, idx.path)
	return nil
}

func (idx *Index) encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(fileMagic); err != nil {
		return err
	}
	header := []uint32{fileVersion, uint32(idx.dimension), uint32(len(idx.ids))}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return err
	}
	for i, id := range idx.ids {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(id))); err != nil {
			return err
		}
		if _, err := bw.WriteString(id); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, idx.vectors[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load replaces the in-memory contents with the file's. A missing or corrupt
// file leaves the index empty and returns false.
func (idx *Index) Load(_ context.Context) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return false
	}
	idx.reset()

	f, err := os.Open(idx.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("flat: open %s: %v", idx.path, err)
		}
		return false
	}
	defer f.Close()

	if err := idx.decode(bufio.NewReader(f)); err != nil {
		logger.Warn("flat: %s is unreadable, starting empty: %v", idx.path, err)
		idx.reset()
		return false
	}

	logger.Debug("flat: loaded %d vectors (dim %d)", len(idx.ids), idx.dimension)
	return len(idx.ids) > 0
}

func (idx *Index) decode(r io.Reader) error {
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return err
	}
	if string(magic) != fileMagic {
		return errors.New("bad magic")
	}

	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return err
	}
	version, dim, count := header[0], int(header[1]), int(header[2])
	if version != fileVersion {
		return fmt.Errorf("unsupported version %d", version)
	}
	if dim == 0 && count > 0 {
		return errors.New("zero dimension")
	}

	for i := 0; i < count; i++ {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return err
		}
		if n == 0 || n > maxIDLength {
			return fmt.Errorf("bad id length %d", n)
		}
		id := make([]byte, n)
		if _, err := io.ReadFull(r, id); err != nil {
			return err
		}
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return err
		}
		if _, dup := idx.pos[string(id)]; dup {
			return fmt.Errorf("duplicate id %q", id)
		}
		idx.pos[string(id)] = len(idx.ids)
		idx.ids = append(idx.ids, string(id))
		idx.vectors = append(idx.vectors, vec)
		idx.norms = append(idx.norms, norm(vec))
	}

	if _, err := r.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		return errors.New("trailing data")
	}
	if count > 0 {
		idx.dimension = dim
	}
	return nil
}

// Close releases resources. The index is not saved.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	idx.reset()
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

func clamp(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
