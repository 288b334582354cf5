package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

const archiveColumns = chunkColumns + ", archived_at, original_size, compressed_size"

// archiveIndex implements driven.ArchiveIndex.
type archiveIndex struct {
	store *Store
}

var _ driven.ArchiveIndex = (*archiveIndex)(nil)

// List returns every archived chunk, most recently archived first.
func (s *archiveIndex) List(ctx context.Context) ([]domain.ArchivedChunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+archiveColumns+" FROM archives ORDER BY archived_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("querying archives: %w", err)
	}
	defer rows.Close()

	entries := []domain.ArchivedChunk{}
	for rows.Next() {
		entry, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating archives: %w", err)
	}
	return entries, nil
}

// Get retrieves an archive entry.
func (s *archiveIndex) Get(ctx context.Context, id string) (*domain.ArchivedChunk, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+archiveColumns+" FROM archives WHERE id = ?", id)
	entry, err := scanArchived(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return entry, err
}

// Add records an archived chunk.
func (s *archiveIndex) Add(ctx context.Context, entry *domain.ArchivedChunk) error {
	if entry == nil || entry.ArchivedAt.IsZero() {
		return domain.ErrInvalidInput
	}
	args, err := chunkArgs(&entry.Chunk)
	if err != nil {
		return err
	}
	args = append(args, formatTime(entry.ArchivedAt), entry.OriginalSize, entry.CompressedSize)

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO archives (`+archiveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("archive entry %s: %w", entry.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("saving archive entry: %w", err)
	}
	return nil
}

// Remove deletes an archive entry.
func (s *archiveIndex) Remove(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM archives WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting archive entry: %w", err)
	}
	return rowsAffectedOrNotFound(res, "deleting archive entry")
}

// FindByFingerprint returns the archived chunk with the given fingerprint.
func (s *archiveIndex) FindByFingerprint(ctx context.Context, fingerprint string) (*domain.ArchivedChunk, error) {
	if fingerprint == "" {
		return nil, nil
	}
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+archiveColumns+" FROM archives WHERE fingerprint = ? ORDER BY archived_at LIMIT 1", fingerprint)
	entry, err := scanArchived(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// CountCreatedOn counts archived chunks of project created on date.
func (s *archiveIndex) CountCreatedOn(ctx context.Context, date, project string) (int, error) {
	return countCreatedOn(ctx, s.store.db, "archives", date, project)
}

// Stats aggregates archive sizes.
func (s *archiveIndex) Stats(ctx context.Context) (domain.ArchiveStats, error) {
	var stats domain.ArchiveStats
	row := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(original_size), 0), COALESCE(SUM(compressed_size), 0)
		FROM archives
	`)
	if err := row.Scan(&stats.Count, &stats.TotalOriginalSize, &stats.TotalCompressedSize); err != nil {
		return stats, fmt.Errorf("aggregating archives: %w", err)
	}
	return stats, nil
}

func scanArchived(row scanner) (*domain.ArchivedChunk, error) {
	var entry domain.ArchivedChunk
	var archivedAt sql.NullString
	chunk, err := scanChunk(row, []any{&archivedAt, &entry.OriginalSize, &entry.CompressedSize})
	if err != nil {
		return nil, err
	}
	entry.Chunk = *chunk
	entry.Tier = domain.TierArchived
	entry.ArchivedAt = parseTime(archivedAt)
	return &entry, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ==================== Purge Log ====================

// purgeLog implements driven.PurgeLog.
type purgeLog struct {
	store *Store
}

var _ driven.PurgeLog = (*purgeLog)(nil)

// Append records a purge under a fresh entry key, so a chunk ID reused
// after a purge keeps its earlier history.
func (s *purgeLog) Append(ctx context.Context, record domain.PurgeRecord) error {
	if record.ID == "" {
		return domain.ErrInvalidInput
	}
	tags, err := marshalTags(record.Tags)
	if err != nil {
		return err
	}
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO purge_log (entry_id, chunk_id, purged_at, summary, tags, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), record.ID, formatTime(record.PurgedAt), record.Summary, tags,
		formatTime(record.CreatedAt), formatTime(record.ArchivedAt))
	if err != nil {
		return fmt.Errorf("appending purge record: %w", err)
	}
	return nil
}

// List returns the most recent records first.
func (s *purgeLog) List(ctx context.Context, limit int) ([]domain.PurgeRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, purged_at, summary, tags, created_at, archived_at
		FROM purge_log
		ORDER BY purged_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying purge log: %w", err)
	}
	defer rows.Close()

	records := []domain.PurgeRecord{}
	for rows.Next() {
		var r domain.PurgeRecord
		var tags string
		var purgedAt, createdAt, archivedAt sql.NullString
		if err := rows.Scan(&r.ID, &purgedAt, &r.Summary, &tags, &createdAt, &archivedAt); err != nil {
			return nil, fmt.Errorf("scanning purge record: %w", err)
		}
		if r.Tags, err = unmarshalTags(tags); err != nil {
			return nil, err
		}
		r.PurgedAt = parseTime(purgedAt)
		r.CreatedAt = parseTime(createdAt)
		r.ArchivedAt = parseTime(archivedAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating purge log: %w", err)
	}
	return records, nil
}
