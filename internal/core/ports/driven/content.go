package driven

import (
	"context"
	"io"
)

// ContentStore holds chunk bodies keyed by chunk ID.
// Implementations validate IDs with domain.ValidateChunkID and refuse any
// path that resolves outside their root.
type ContentStore interface {
	// Read returns the stored bytes.
	// Returns domain.ErrNotFound if nothing is stored under id.
	Read(ctx context.Context, id string) ([]byte, error)

	// Write replaces the content atomically.
	Write(ctx context.Context, id string, data []byte) error

	// Delete removes the content. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// Exists reports whether content is stored under id.
	Exists(ctx context.Context, id string) (bool, error)
}

// BlobStore holds compressed archive artifacts keyed by chunk ID.
type BlobStore interface {
	// Create opens a new artifact for writing.
	// Returns domain.ErrAlreadyExists if one is already stored under id.
	Create(ctx context.Context, id string) (io.WriteCloser, error)

	// Open opens an artifact for reading.
	// Returns domain.ErrNotFound if none is stored under id.
	Open(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete removes an artifact. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// Exists reports whether an artifact is stored under id.
	Exists(ctx context.Context, id string) (bool, error)

	// Size returns the artifact size in bytes.
	Size(ctx context.Context, id string) (int64, error)
}

// Codec is a streaming compress/decompress pair.
type Codec interface {
	// NewWriter wraps w; closing the writer flushes the stream but does not
	// close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)

	// NewReader wraps r.
	NewReader(r io.Reader) (io.ReadCloser, error)

	// Extension is the file suffix of artifacts, e.g. ".gz".
	Extension() string
}
