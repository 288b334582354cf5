package driven

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// ChunkStore persists metadata for chunks in the active tier.
// Writes are durable before the call returns.
type ChunkStore interface {
	// List returns every active chunk, newest first.
	List(ctx context.Context) ([]domain.Chunk, error)

	// Get retrieves a chunk by ID.
	// Returns domain.ErrNotFound if the chunk is not active.
	Get(ctx context.Context, id string) (*domain.Chunk, error)

	// Create records a new chunk. In one exclusive step it looks for an
	// active or archived chunk with the same fingerprint and, if there is
	// none, numbers the chunk after every chunk of its project created the
	// same day in either tier, skipping IDs held by either tier or refused
	// by next, then inserts it with chunk.ID set.
	// When the content already exists nothing is written and the existing
	// chunk is returned.
	Create(ctx context.Context, chunk *domain.Chunk, next ChunkIDFunc) (*Duplicate, error)

	// Upsert creates or replaces the chunk record.
	Upsert(ctx context.Context, chunk *domain.Chunk) error

	// Remove deletes the chunk record.
	// Returns domain.ErrNotFound if the chunk is not active.
	Remove(ctx context.Context, id string) error

	// FindByFingerprint returns the active chunk with the given fingerprint.
	// Returns nil and no error if none exists.
	FindByFingerprint(ctx context.Context, fingerprint string) (*domain.Chunk, error)

	// Update runs fn on the stored record and writes the result back while
	// holding an exclusive lock, so concurrent writers never lose an update.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, id string, fn func(*domain.Chunk) error) (*domain.Chunk, error)

	// CountCreatedOn counts active chunks of project created on date
	// (YYYY-MM-DD).
	CountCreatedOn(ctx context.Context, date, project string) (int, error)
}

// ChunkIDFunc returns the chunk ID for sequence number seq of a day.
// ok is false when the ID is taken outside the store and the next number
// should be tried.
type ChunkIDFunc func(ctx context.Context, seq int) (id string, ok bool, err error)

// Duplicate is the chunk already holding some content.
type Duplicate struct {
	Chunk    domain.Chunk
	Archived bool
}

// ArchiveIndex persists metadata for chunks in the archived tier.
type ArchiveIndex interface {
	// List returns every archived chunk, most recently archived first.
	List(ctx context.Context) ([]domain.ArchivedChunk, error)

	// Get retrieves an archive entry.
	// Returns domain.ErrNotFound if the chunk is not archived.
	Get(ctx context.Context, id string) (*domain.ArchivedChunk, error)

	// Add records an archived chunk.
	// Returns domain.ErrAlreadyExists if an entry with the same ID exists.
	Add(ctx context.Context, entry *domain.ArchivedChunk) error

	// Remove deletes an archive entry.
	// Returns domain.ErrNotFound if the chunk is not archived.
	Remove(ctx context.Context, id string) error

	// FindByFingerprint returns the archived chunk with the given fingerprint.
	// Returns nil and no error if none exists.
	FindByFingerprint(ctx context.Context, fingerprint string) (*domain.ArchivedChunk, error)

	// CountCreatedOn counts archived chunks of project created on date.
	CountCreatedOn(ctx context.Context, date, project string) (int, error)

	// Stats aggregates archive sizes.
	Stats(ctx context.Context) (domain.ArchiveStats, error)
}

// PurgeLog is an append-only audit trail of purged chunks.
type PurgeLog interface {
	// Append records a purge. Records never carry chunk content.
	Append(ctx context.Context, record domain.PurgeRecord) error

	// List returns the most recent records first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]domain.PurgeRecord, error)
}
