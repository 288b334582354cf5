package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
	"github.com/custodia-labs/rlm/internal/logger"
)

// Ensure RetentionService implements the interface.
var _ driving.RetentionService = (*RetentionService)(nil)

// previewSummaryLength truncates summaries in previews.
const previewSummaryLength = 50

// RetentionService moves chunks between the active, archived and purged
// tiers. Every transition either completes or leaves the chunk in its
// previous tier.
type RetentionService struct {
	chunks       driven.ChunkStore
	archiveIndex driven.ArchiveIndex
	purgeLog     driven.PurgeLog
	content      driven.ContentStore
	blobs        driven.BlobStore
	codec        driven.Codec
	policy       domain.RetentionPolicy

	corpus  *CorpusIndex
	vectors driven.VectorIndex
	now     func() time.Time
}

// NewRetentionService creates a retention service.
func NewRetentionService(
	chunks driven.ChunkStore,
	archive driven.ArchiveIndex,
	purgeLog driven.PurgeLog,
	content driven.ContentStore,
	blobs driven.BlobStore,
	codec driven.Codec,
	policy domain.RetentionPolicy,
) *RetentionService {
	return &RetentionService{
		chunks:       chunks,
		archiveIndex: archive,
		purgeLog:     purgeLog,
		content:      content,
		blobs:        blobs,
		codec:        codec,
		policy:       policy,
		now:          time.Now,
	}
}

// SetCorpus sets the lexical index invalidated after each transition.
func (s *RetentionService) SetCorpus(corpus *CorpusIndex) {
	s.corpus = corpus
}

// SetVectorIndex sets the vector index purged chunks are removed from.
func (s *RetentionService) SetVectorIndex(vectors driven.VectorIndex) {
	s.vectors = vectors
}

// SetClock replaces the time source.
func (s *RetentionService) SetClock(now func() time.Time) {
	s.now = now
}

// Policy returns the active policy.
func (s *RetentionService) Policy() domain.RetentionPolicy {
	return s.policy
}

// Preview lists current candidates without changing anything.
func (s *RetentionService) Preview(ctx context.Context) (*domain.RetentionPreview, error) {
	archiveCandidates, problems, err := s.archiveCandidates(ctx)
	if err != nil {
		return nil, err
	}
	purgeCandidates, purgeProblems, err := s.purgeCandidates(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range append(problems, purgeProblems...) {
		logger.Warn("retention: %s", p)
	}

	preview := &domain.RetentionPreview{
		ArchiveCandidates: make([]domain.ArchiveCandidate, 0, len(archiveCandidates)),
		PurgeCandidates:   make([]domain.PurgeCandidate, 0, len(purgeCandidates)),
	}
	for i := range archiveCandidates {
		c := &archiveCandidates[i]
		preview.ArchiveCandidates = append(preview.ArchiveCandidates, domain.ArchiveCandidate{
			ID:          c.ID,
			Summary:     truncateRunes(c.Summary, previewSummaryLength),
			CreatedAt:   c.CreatedAt,
			AccessCount: c.AccessCount,
			Tags:        c.Tags,
		})
	}
	for i := range purgeCandidates {
		a := &purgeCandidates[i]
		preview.PurgeCandidates = append(preview.PurgeCandidates, domain.PurgeCandidate{
			ID:         a.ID,
			Summary:    truncateRunes(a.Summary, previewSummaryLength),
			ArchivedAt: a.ArchivedAt,
		})
	}
	return preview, nil
}

// Run applies the guarded transitions to every current candidate. Purge
// candidates are selected before archiving starts, so a chunk never moves
// two tiers in one run.
func (s *RetentionService) Run(ctx context.Context, opts driving.RetentionRunOptions) (*domain.RetentionReport, error) {
	logger.Section("Retention Run")
	report := &domain.RetentionReport{Archived: []string{}, Purged: []string{}, Errors: []string{}}

	var purgeCandidates []domain.ArchivedChunk
	if opts.Purge {
		var (
			problems []string
			err      error
		)
		if purgeCandidates, problems, err = s.purgeCandidates(ctx); err != nil {
			return nil, err
		}
		report.Errors = append(report.Errors, problems...)
	}

	if opts.Archive {
		candidates, problems, err := s.archiveCandidates(ctx)
		if err != nil {
			return nil, err
		}
		report.Errors = append(report.Errors, problems...)
		for i := range candidates {
			id := candidates[i].ID
			_, err := s.archive(ctx, id, s.archivable)
			switch {
			case errors.Is(err, errNoLongerEligible):
				logger.Debug("retention: skip %s: %v", id, err)
				continue
			case err != nil:
				logger.Warn("retention: archive %s: %v", id, err)
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", id, err))
				continue
			}
			report.Archived = append(report.Archived, id)
		}
	}

	for i := range purgeCandidates {
		entry := &purgeCandidates[i]
		if err := s.purge(ctx, entry); err != nil {
			logger.Warn("retention: purge %s: %v", entry.ID, err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", entry.ID, err))
			continue
		}
		report.Purged = append(report.Purged, entry.ID)
	}

	if len(report.Purged) > 0 && s.vectors != nil {
		if err := s.vectors.Save(ctx); err != nil {
			logger.Warn("retention: save vector index: %v", err)
		}
	}

	logger.Info("Retention: %d archived, %d purged, %d errors",
		len(report.Archived), len(report.Purged), len(report.Errors))
	return report, nil
}

// Archive compresses one active chunk into the archive tier. The guards
// are not checked here; Run checks them.
func (s *RetentionService) Archive(ctx context.Context, id string) (*domain.ArchiveResult, error) {
	return s.archive(ctx, id, nil)
}

// errNoLongerEligible marks a candidate that changed after selection.
var errNoLongerEligible = errors.New("no longer eligible for archiving")

// archive moves id to the archive tier. When guard is set it is checked
// against the stored record before anything is written and again just
// before the active record is removed.
func (s *RetentionService) archive(ctx context.Context, id string, guard func(*domain.Chunk) bool) (*domain.ArchiveResult, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return nil, err
	}

	meta, err := s.chunks.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", id, err)
	}
	if guard != nil && !guard(meta) {
		return nil, fmt.Errorf("archive %s: %w", id, errNoLongerEligible)
	}
	exists, err := s.blobs.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", id, err)
	}
	if exists {
		return nil, fmt.Errorf("archive %s: archive already exists: %w", id, domain.ErrConflict)
	}

	data, err := s.content.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("archive %s: read content: %w", id, err)
	}

	if err := s.compress(ctx, id, data); err != nil {
		s.discardBlob(ctx, id)
		return nil, fmt.Errorf("archive %s: %w: %v", id, domain.ErrStorage, err)
	}
	compressed, err := s.blobs.Size(ctx, id)
	if err != nil {
		s.discardBlob(ctx, id)
		return nil, fmt.Errorf("archive %s: %w: %v", id, domain.ErrStorage, err)
	}

	entry := &domain.ArchivedChunk{
		Chunk:          *meta,
		ArchivedAt:     s.now(),
		OriginalSize:   int64(len(data)),
		CompressedSize: compressed,
	}
	entry.Tier = domain.TierArchived

	if err := s.archiveIndex.Add(ctx, entry); err != nil {
		s.discardBlob(ctx, id)
		return nil, fmt.Errorf("archive %s: record: %w", id, err)
	}
	if guard != nil {
		current, err := s.chunks.Get(ctx, id)
		if err == nil && !guard(current) {
			err = errNoLongerEligible
		}
		if err != nil {
			s.unarchive(ctx, id)
			return nil, fmt.Errorf("archive %s: %w", id, err)
		}
	}
	if err := s.chunks.Remove(ctx, id); err != nil {
		s.unarchive(ctx, id)
		return nil, fmt.Errorf("archive %s: remove active record: %w", id, err)
	}

	// From here on the chunk is archived; a leftover body is only reported.
	s.invalidate()
	if err := s.content.Delete(ctx, id); err != nil {
		logger.Warn("retention: delete active content %s: %v", id, err)
	}

	result := &domain.ArchiveResult{ID: id, OriginalSize: entry.OriginalSize, CompressedSize: compressed}
	logger.Debug("retention: archived %s (%d -> %d bytes, %.1f%% saved)",
		id, result.OriginalSize, result.CompressedSize, result.CompressionRatio())
	return result, nil
}

// Restore brings an archived chunk back to the active tier.
func (s *RetentionService) Restore(ctx context.Context, id string) (*domain.Chunk, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return nil, err
	}

	entry, err := s.archiveIndex.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}
	exists, err := s.blobs.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}
	if !exists {
		return nil, fmt.Errorf("restore %s: archive file missing: %w", id, domain.ErrNotFound)
	}
	active, err := s.content.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}
	if active {
		return nil, fmt.Errorf("restore %s: active copy exists: %w", id, domain.ErrConflict)
	}

	data, err := s.decompress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}

	if err := s.content.Write(ctx, id, data); err != nil {
		return nil, fmt.Errorf("restore %s: write content: %w", id, err)
	}

	meta := entry.Active()
	if err := s.chunks.Upsert(ctx, &meta); err != nil {
		s.discardContent(ctx, id)
		return nil, fmt.Errorf("restore %s: record: %w", id, err)
	}
	if err := s.archiveIndex.Remove(ctx, id); err != nil {
		if rmErr := s.chunks.Remove(ctx, id); rmErr != nil {
			logger.Warn("retention: roll back active record %s: %v", id, rmErr)
		}
		s.discardContent(ctx, id)
		return nil, fmt.Errorf("restore %s: remove archive entry: %w", id, err)
	}

	s.invalidate()
	if err := s.blobs.Delete(ctx, id); err != nil {
		logger.Warn("retention: delete archive file %s: %v", id, err)
	}

	logger.Debug("retention: restored %s", id)
	return &meta, nil
}

// Stats aggregates archive sizes.
func (s *RetentionService) Stats(ctx context.Context) (*domain.ArchiveStats, error) {
	stats, err := s.archiveIndex.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive stats: %w", err)
	}
	return &stats, nil
}

// IsArchived reports whether id is in the archive tier.
func (s *RetentionService) IsArchived(ctx context.Context, id string) (bool, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return false, err
	}
	_, err := s.archiveIndex.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// PurgeLog returns the most recent purge records.
func (s *RetentionService) PurgeLog(ctx context.Context, limit int) ([]domain.PurgeRecord, error) {
	return s.purgeLog.List(ctx, limit)
}

// purge deletes an archived chunk for good, leaving an audit record.
func (s *RetentionService) purge(ctx context.Context, entry *domain.ArchivedChunk) error {
	record := domain.PurgeRecord{
		ID:         entry.ID,
		PurgedAt:   s.now(),
		Summary:    entry.Summary,
		Tags:       entry.Tags,
		CreatedAt:  entry.CreatedAt,
		ArchivedAt: entry.ArchivedAt,
	}
	if err := s.purgeLog.Append(ctx, record); err != nil {
		return fmt.Errorf("append purge log: %w", err)
	}
	// The index entry goes last, so a failed delete leaves the chunk
	// listed and the next run retries it.
	if err := s.blobs.Delete(ctx, entry.ID); err != nil {
		return fmt.Errorf("delete archive file: %w", err)
	}
	if err := s.archiveIndex.Remove(ctx, entry.ID); err != nil {
		return fmt.Errorf("remove archive entry (archive file already deleted): %w", err)
	}
	if s.vectors != nil {
		if _, err := s.vectors.Remove(ctx, entry.ID); err != nil {
			logger.Warn("retention: remove vector %s: %v", entry.ID, err)
		}
	}
	logger.Debug("retention: purged %s", entry.ID)
	return nil
}

// archiveCandidates returns active chunks older than ArchiveAfter, never
// read, and not immune. Chunks without a creation time are skipped. Chunks
// whose body cannot be read are left out and described in problems.
func (s *RetentionService) archiveCandidates(ctx context.Context) (out []domain.Chunk, problems []string, err error) {
	chunks, err := s.chunks.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list chunks: %w", err)
	}

	out = make([]domain.Chunk, 0)
	for i := range chunks {
		c := &chunks[i]
		if !s.archivable(c) {
			continue
		}
		body, err := s.content.Read(ctx, c.ID)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: read content: %v", c.ID, err))
			continue
		}
		if s.policy.ImmuneByContent(body) {
			continue
		}
		out = append(out, *c)
	}
	return out, problems, nil
}

// archivable checks the metadata guards for archiving.
func (s *RetentionService) archivable(c *domain.Chunk) bool {
	if c.CreatedAt.IsZero() || s.now().Sub(c.CreatedAt) <= s.policy.ArchiveAfter {
		return false
	}
	return c.AccessCount == 0 && !s.policy.ImmuneByMetadata(c)
}

// purgeCandidates returns archived chunks older than PurgeAfter in the
// archive, never read, and not immune. Keyword immunity is checked on the
// decompressed body.
func (s *RetentionService) purgeCandidates(ctx context.Context) (out []domain.ArchivedChunk, problems []string, err error) {
	entries, err := s.archiveIndex.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list archive: %w", err)
	}

	now := s.now()
	out = make([]domain.ArchivedChunk, 0)
	for i := range entries {
		a := &entries[i]
		if a.ArchivedAt.IsZero() || now.Sub(a.ArchivedAt) <= s.policy.PurgeAfter {
			continue
		}
		if a.AccessCount != 0 || s.policy.ImmuneByMetadata(&a.Chunk) {
			continue
		}
		body, err := s.decompress(ctx, a.ID)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: read archive: %v", a.ID, err))
			continue
		}
		if s.policy.ImmuneByContent(body) {
			continue
		}
		out = append(out, *a)
	}
	return out, problems, nil
}

func (s *RetentionService) compress(ctx context.Context, id string, data []byte) error {
	w, err := s.blobs.Create(ctx, id)
	if err != nil {
		return err
	}
	cw, err := s.codec.NewWriter(w)
	if err != nil {
		_ = w.Close()
		return err
	}
	if _, err := io.Copy(cw, bytes.NewReader(data)); err != nil {
		_ = cw.Close()
		_ = w.Close()
		return err
	}
	if err := cw.Close(); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// decompress inflates an archive, refusing anything larger than
// MaxDecompressedSize.
func (s *RetentionService) decompress(ctx context.Context, id string) ([]byte, error) {
	r, err := s.blobs.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	cr, err := s.codec.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer cr.Close()

	data, err := io.ReadAll(io.LimitReader(cr, domain.MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if len(data) > domain.MaxDecompressedSize {
		return nil, domain.ErrDecompressedTooLarge
	}
	return data, nil
}

// unarchive undoes a half-finished archive: the entry and the blob go, the
// active record stays.
func (s *RetentionService) unarchive(ctx context.Context, id string) {
	if err := s.archiveIndex.Remove(ctx, id); err != nil {
		logger.Warn("retention: roll back archive entry %s: %v", id, err)
	}
	s.discardBlob(ctx, id)
}

func (s *RetentionService) discardBlob(ctx context.Context, id string) {
	if err := s.blobs.Delete(ctx, id); err != nil {
		logger.Warn("retention: delete partial archive %s: %v", id, err)
	}
}

func (s *RetentionService) discardContent(ctx context.Context, id string) {
	if err := s.content.Delete(ctx, id); err != nil {
		logger.Warn("retention: delete restored content %s: %v", id, err)
	}
}

func (s *RetentionService) invalidate() {
	if s.corpus != nil {
		s.corpus.Invalidate()
	}
}
