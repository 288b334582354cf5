package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates the operation would overwrite or duplicate
	// existing state. Nothing is changed when it is returned.
	ErrConflict = errors.New("conflict")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector/semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured
	// or could not be loaded. Semantic similarity search is disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// dimension fixed by the first vector in a store.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrStorage indicates an I/O failure in the middle of an operation.
	ErrStorage = errors.New("storage failure")
)

// Invalid input variants. Each wraps ErrInvalidInput so callers can match
// either the specific cause or the whole category.
var (
	// ErrInvalidChunkID indicates an identifier outside the safe character set
	// or one that resolves outside the storage root.
	ErrInvalidChunkID = fmt.Errorf("%w: chunk id", ErrInvalidInput)

	// ErrContentTooLarge indicates content above MaxChunkContentSize.
	ErrContentTooLarge = fmt.Errorf("%w: content too large", ErrInvalidInput)

	// ErrInvalidChunkType indicates an unsupported chunk classification.
	ErrInvalidChunkType = fmt.Errorf("%w: chunk type", ErrInvalidInput)

	// ErrDecompressedTooLarge indicates an archive that inflates past
	// MaxDecompressedSize.
	ErrDecompressedTooLarge = fmt.Errorf("%w: decompressed size limit exceeded", ErrStorage)
)
