package driven

import "context"

// VectorIndex stores one dense vector per chunk and answers cosine
// similarity queries. The dimension is fixed by the first vector added;
// vectors of any other dimension are rejected with
// domain.ErrDimensionMismatch.
type VectorIndex interface {
	// Add inserts or replaces the vector for id.
	Add(ctx context.Context, id string, embedding []float32) error

	// Remove deletes the vector for id and reports whether one existed.
	Remove(ctx context.Context, id string) (bool, error)

	// Has reports whether a vector is stored for id.
	Has(id string) bool

	// Search returns up to k hits with similarity in (0,1], best first.
	// A zero query vector yields no hits.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Save persists the index atomically.
	Save(ctx context.Context) error

	// Load replaces the in-memory contents with the persisted ones.
	// Returns false, leaving the index empty, when nothing usable is stored.
	Load(ctx context.Context) bool

	// Reset drops every vector and releases the fixed dimension, so a
	// provider with a different dimension can repopulate the index.
	Reset(ctx context.Context) error

	// Dimensions returns the fixed dimension, or 0 while the index is empty.
	Dimensions() int

	// Len returns the number of stored vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched chunk.
	ID string

	// Similarity is the cosine similarity clamped to [0,1].
	Similarity float64
}
