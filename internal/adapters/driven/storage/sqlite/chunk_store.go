package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

// chunkColumns is shared by the chunks and archives tables.
const chunkColumns = `id, summary, tags, type, project, ticket, domain, entities,
	fingerprint, tokens_estimate, created_at, created_date, last_accessed,
	access_count, format_version`

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// List returns every active chunk, newest first.
func (s *chunkStore) List(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		chunk, err := scanChunk(rows, nil)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// Get retrieves an active chunk by ID.
func (s *chunkStore) Get(ctx context.Context, id string) (*domain.Chunk, error) {
	return getChunk(ctx, s.store.db, id)
}

func getChunk(ctx context.Context, q querier, id string) (*domain.Chunk, error) {
	row := q.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	chunk, err := scanChunk(row, nil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return chunk, err
}

// Create numbers and inserts a new chunk inside one immediate transaction,
// so concurrent writers never store the same content twice or share an ID.
func (s *chunkStore) Create(ctx context.Context, chunk *domain.Chunk, next driven.ChunkIDFunc) (*driven.Duplicate, error) {
	if chunk == nil || next == nil {
		return nil, domain.ErrInvalidInput
	}
	date, ok := chunk.Date()
	if !ok {
		return nil, fmt.Errorf("%w: chunk has no creation date", domain.ErrInvalidInput)
	}

	var dup *driven.Duplicate
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if dup, err = findDuplicate(ctx, tx, chunk.Fingerprint); err != nil || dup != nil {
			return err
		}

		active, err := countCreatedOn(ctx, tx, "chunks", date, chunk.Project)
		if err != nil {
			return err
		}
		archived, err := countCreatedOn(ctx, tx, "archives", date, chunk.Project)
		if err != nil {
			return err
		}

		for seq := active + archived + 1; ; seq++ {
			id, ok, err := next(ctx, seq)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			held, err := idHeld(ctx, tx, id)
			if err != nil {
				return err
			}
			if !held {
				chunk.ID = id
				break
			}
		}
		return insertChunk(ctx, tx, chunk)
	})
	if err != nil {
		return nil, err
	}
	return dup, nil
}

// findDuplicate returns the active, then archived, chunk with fingerprint.
func findDuplicate(ctx context.Context, q querier, fingerprint string) (*driven.Duplicate, error) {
	if fingerprint == "" {
		return nil, nil
	}
	row := q.QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE fingerprint = ? ORDER BY created_at LIMIT 1", fingerprint)
	chunk, err := scanChunk(row, nil)
	switch {
	case err == nil:
		return &driven.Duplicate{Chunk: *chunk}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	row = q.QueryRowContext(ctx,
		"SELECT "+archiveColumns+" FROM archives WHERE fingerprint = ? ORDER BY archived_at LIMIT 1", fingerprint)
	entry, err := scanArchived(row)
	switch {
	case err == nil:
		return &driven.Duplicate{Chunk: entry.Chunk, Archived: true}, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	default:
		return nil, err
	}
}

// idHeld reports whether either tier has a record with id.
func idHeld(ctx context.Context, q querier, id string) (bool, error) {
	var held bool
	row := q.QueryRowContext(ctx, `SELECT
		EXISTS (SELECT 1 FROM chunks WHERE id = ?) OR
		EXISTS (SELECT 1 FROM archives WHERE id = ?)`, id, id)
	if err := row.Scan(&held); err != nil {
		return false, fmt.Errorf("checking chunk id %s: %w", id, err)
	}
	return held, nil
}

func insertChunk(ctx context.Context, q querier, chunk *domain.Chunk) error {
	args, err := chunkArgs(chunk)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("chunk %s: %w", chunk.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// Upsert creates or replaces the chunk record.
func (s *chunkStore) Upsert(ctx context.Context, chunk *domain.Chunk) error {
	if chunk == nil {
		return domain.ErrInvalidInput
	}
	return upsertChunk(ctx, s.store.db, chunk)
}

func upsertChunk(ctx context.Context, q querier, chunk *domain.Chunk) error {
	args, err := chunkArgs(chunk)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			summary = excluded.summary,
			tags = excluded.tags,
			type = excluded.type,
			project = excluded.project,
			ticket = excluded.ticket,
			domain = excluded.domain,
			entities = excluded.entities,
			fingerprint = excluded.fingerprint,
			tokens_estimate = excluded.tokens_estimate,
			created_at = excluded.created_at,
			created_date = excluded.created_date,
			last_accessed = excluded.last_accessed,
			access_count = excluded.access_count,
			format_version = excluded.format_version
	`, args...)
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// Remove deletes the chunk record.
func (s *chunkStore) Remove(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	return rowsAffectedOrNotFound(res, "deleting chunk")
}

// FindByFingerprint returns the active chunk with the given fingerprint.
func (s *chunkStore) FindByFingerprint(ctx context.Context, fingerprint string) (*domain.Chunk, error) {
	if fingerprint == "" {
		return nil, nil
	}
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE fingerprint = ? ORDER BY created_at LIMIT 1", fingerprint)
	chunk, err := scanChunk(row, nil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return chunk, err
}

// Update runs fn on the stored record inside an immediate transaction.
func (s *chunkStore) Update(ctx context.Context, id string, fn func(*domain.Chunk) error) (*domain.Chunk, error) {
	var updated *domain.Chunk
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		chunk, err := getChunk(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
		chunk.ID = id
		if err := upsertChunk(ctx, tx, chunk); err != nil {
			return err
		}
		updated = chunk
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CountCreatedOn counts active chunks of project created on date.
func (s *chunkStore) CountCreatedOn(ctx context.Context, date, project string) (int, error) {
	return countCreatedOn(ctx, s.store.db, "chunks", date, project)
}

func countCreatedOn(ctx context.Context, q querier, table, date, project string) (int, error) {
	var n int
	row := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE created_date = ? AND project = ?", date, project)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// chunkArgs returns the values for chunkColumns in order.
func chunkArgs(c *domain.Chunk) ([]any, error) {
	tags, err := marshalTags(c.Tags)
	if err != nil {
		return nil, err
	}
	entities, err := json.Marshal(c.Entities)
	if err != nil {
		return nil, fmt.Errorf("marshalling entities: %w", err)
	}
	date, _ := c.Date()
	return []any{
		c.ID, c.Summary, tags, string(c.Type), c.Project, c.Ticket, c.Domain,
		string(entities), c.Fingerprint, c.TokensEstimate,
		formatTime(c.CreatedAt), date, formatTime(c.LastAccessed),
		c.AccessCount, c.FormatVersion,
	}, nil
}

// scanChunk reads chunkColumns followed by extra destinations.
func scanChunk(row scanner, extra []any) (*domain.Chunk, error) {
	var c domain.Chunk
	var tags, entities, chunkType, createdDate string
	var createdAt, lastAccessed sql.NullString

	dest := []any{
		&c.ID, &c.Summary, &tags, &chunkType, &c.Project, &c.Ticket, &c.Domain,
		&entities, &c.Fingerprint, &c.TokensEstimate, &createdAt, &createdDate,
		&lastAccessed, &c.AccessCount, &c.FormatVersion,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	var err error
	if c.Tags, err = unmarshalTags(tags); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(entities), &c.Entities); err != nil {
		return nil, fmt.Errorf("unmarshalling entities: %w", err)
	}
	c.Type = domain.ChunkType(chunkType)
	c.CreatedAt = parseTime(createdAt)
	c.LastAccessed = parseTime(lastAccessed)
	c.Tier = domain.TierActive
	return &c, nil
}
