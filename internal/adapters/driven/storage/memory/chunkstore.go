package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

// Ensure the stores implement their interfaces.
var (
	_ driven.ChunkStore   = (*ChunkStore)(nil)
	_ driven.ArchiveIndex = (*ArchiveIndex)(nil)
	_ driven.PurgeLog     = (*PurgeLog)(nil)
)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Create consults archive, when set, for duplicates and taken IDs.
type ChunkStore struct {
	mu      sync.RWMutex
	chunks  map[string]domain.Chunk
	archive *ArchiveIndex
}

// NewChunkStore creates a new in-memory chunk store backed by archive,
// which may be nil.
func NewChunkStore(archive *ArchiveIndex) *ChunkStore {
	return &ChunkStore{
		chunks:  make(map[string]domain.Chunk),
		archive: archive,
	}
}

// Create numbers and stores a new chunk under the write lock.
func (s *ChunkStore) Create(ctx context.Context, chunk *domain.Chunk, next driven.ChunkIDFunc) (*driven.Duplicate, error) {
	if chunk == nil || next == nil {
		return nil, domain.ErrInvalidInput
	}
	date, ok := chunk.Date()
	if !ok {
		return nil, fmt.Errorf("%w: chunk has no creation date", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.byFingerprint(chunk.Fingerprint); existing != nil {
		return &driven.Duplicate{Chunk: cloneChunk(*existing)}, nil
	}
	if s.archive != nil && chunk.Fingerprint != "" {
		if e, _ := s.archive.FindByFingerprint(ctx, chunk.Fingerprint); e != nil {
			return &driven.Duplicate{Chunk: cloneChunk(e.Chunk), Archived: true}, nil
		}
	}

	seq := s.countCreatedOn(date, chunk.Project) + 1
	if s.archive != nil {
		n, _ := s.archive.CountCreatedOn(ctx, date, chunk.Project)
		seq += n
	}
	for ; ; seq++ {
		id, ok, err := next(ctx, seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, held := s.chunks[id]; held {
			continue
		}
		if s.archive != nil {
			if _, err := s.archive.Get(ctx, id); err == nil {
				continue
			}
		}
		chunk.ID = id
		break
	}

	c := cloneChunk(*chunk)
	c.Tier = domain.TierActive
	s.chunks[c.ID] = c
	return nil, nil
}

// List returns every active chunk, newest first.
func (s *ChunkStore) List(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return newerChunk(&result[i], &result[j])
	})
	return result, nil
}

// Get retrieves a chunk by ID.
func (s *ChunkStore) Get(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c = cloneChunk(c)
	return &c, nil
}

// Upsert creates or replaces the chunk record.
func (s *ChunkStore) Upsert(_ context.Context, chunk *domain.Chunk) error {
	if chunk == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if other := s.byFingerprint(chunk.Fingerprint); other != nil && other.ID != chunk.ID {
		return fmt.Errorf("fingerprint of %s held by %s: %w", chunk.ID, other.ID, domain.ErrAlreadyExists)
	}
	c := cloneChunk(*chunk)
	c.Tier = domain.TierActive
	s.chunks[c.ID] = c
	return nil
}

// Remove deletes the chunk record.
func (s *ChunkStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.chunks, id)
	return nil
}

// FindByFingerprint returns the active chunk with the given fingerprint.
func (s *ChunkStore) FindByFingerprint(_ context.Context, fingerprint string) (*domain.Chunk, error) {
	if fingerprint == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c := s.byFingerprint(fingerprint); c != nil {
		found := cloneChunk(*c)
		return &found, nil
	}
	return nil, nil
}

// byFingerprint must be called with s.mu held.
func (s *ChunkStore) byFingerprint(fingerprint string) *domain.Chunk {
	if fingerprint == "" {
		return nil
	}
	for _, c := range s.chunks {
		if c.Fingerprint == fingerprint {
			return &c
		}
	}
	return nil
}

// Update runs fn on a copy of the record while holding the write lock.
func (s *ChunkStore) Update(_ context.Context, id string, fn func(*domain.Chunk) error) (*domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := cloneChunk(stored)
	if err := fn(&c); err != nil {
		return nil, err
	}
	c.ID = id
	s.chunks[id] = cloneChunk(c)
	return &c, nil
}

// CountCreatedOn counts active chunks of project created on date.
func (s *ChunkStore) CountCreatedOn(_ context.Context, date, project string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countCreatedOn(date, project), nil
}

func (s *ChunkStore) countCreatedOn(date, project string) int {
	n := 0
	for _, c := range s.chunks {
		if d, ok := c.Date(); ok && d == date && c.Project == project {
			n++
		}
	}
	return n
}

// ArchiveIndex is an in-memory implementation of driven.ArchiveIndex.
type ArchiveIndex struct {
	mu      sync.RWMutex
	entries map[string]domain.ArchivedChunk
}

// NewArchiveIndex creates a new in-memory archive index.
func NewArchiveIndex() *ArchiveIndex {
	return &ArchiveIndex{
		entries: make(map[string]domain.ArchivedChunk),
	}
}

// List returns every archived chunk, most recently archived first.
func (s *ArchiveIndex) List(_ context.Context) ([]domain.ArchivedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ArchivedChunk, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ArchivedAt.Equal(result[j].ArchivedAt) {
			return result[i].ArchivedAt.After(result[j].ArchivedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Get retrieves an archive entry.
func (s *ArchiveIndex) Get(_ context.Context, id string) (*domain.ArchivedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.Chunk = cloneChunk(e.Chunk)
	return &e, nil
}

// Add records an archived chunk.
func (s *ArchiveIndex) Add(_ context.Context, entry *domain.ArchivedChunk) error {
	if entry == nil || entry.ArchivedAt.IsZero() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; ok {
		return fmt.Errorf("archive entry %s: %w", entry.ID, domain.ErrAlreadyExists)
	}
	e := *entry
	e.Chunk = cloneChunk(entry.Chunk)
	e.Tier = domain.TierArchived
	s.entries[e.ID] = e
	return nil
}

// Remove deletes an archive entry.
func (s *ArchiveIndex) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// FindByFingerprint returns the archived chunk with the given fingerprint.
func (s *ArchiveIndex) FindByFingerprint(_ context.Context, fingerprint string) (*domain.ArchivedChunk, error) {
	if fingerprint == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Fingerprint == fingerprint {
			return &e, nil
		}
	}
	return nil, nil
}

// CountCreatedOn counts archived chunks of project created on date.
func (s *ArchiveIndex) CountCreatedOn(_ context.Context, date, project string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if d, ok := e.Date(); ok && d == date && e.Project == project {
			n++
		}
	}
	return n, nil
}

// Stats aggregates archive sizes.
func (s *ArchiveIndex) Stats(_ context.Context) (domain.ArchiveStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats domain.ArchiveStats
	for _, e := range s.entries {
		stats.Count++
		stats.TotalOriginalSize += e.OriginalSize
		stats.TotalCompressedSize += e.CompressedSize
	}
	return stats, nil
}

// PurgeLog is an in-memory implementation of driven.PurgeLog.
type PurgeLog struct {
	mu      sync.RWMutex
	records []domain.PurgeRecord
}

// NewPurgeLog creates a new in-memory purge log.
func NewPurgeLog() *PurgeLog {
	return &PurgeLog{}
}

// Append records a purge.
func (s *PurgeLog) Append(_ context.Context, record domain.PurgeRecord) error {
	if record.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// List returns the most recent records first.
func (s *PurgeLog) List(_ context.Context, limit int) ([]domain.PurgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]domain.PurgeRecord, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, s.records[i])
	}
	return result, nil
}

func newerChunk(a, b *domain.Chunk) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// cloneChunk detaches the tag set so callers cannot mutate stored records.
func cloneChunk(c domain.Chunk) domain.Chunk {
	c.Tags = domain.NewTagSet(c.Tags.Slice()...)
	return c
}
