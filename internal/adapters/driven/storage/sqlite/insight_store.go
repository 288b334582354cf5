package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

const insightColumns = "id, content, category, importance, tags, created_at, updated_at"

// insightStore implements driven.InsightStore.
type insightStore struct {
	store *Store
}

var _ driven.InsightStore = (*insightStore)(nil)

// Save creates or replaces an insight.
func (s *insightStore) Save(ctx context.Context, insight *domain.Insight) error {
	if insight == nil || insight.ID == "" {
		return domain.ErrInvalidInput
	}
	return saveInsight(ctx, s.store.db, insight)
}

func saveInsight(ctx context.Context, q querier, in *domain.Insight) error {
	tags, err := marshalTags(in.Tags)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO insights (`+insightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			category = excluded.category,
			importance = excluded.importance,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`, in.ID, in.Content, in.Category, in.Importance, tags,
		formatTime(in.CreatedAt), formatTime(in.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving insight: %w", err)
	}
	return nil
}

// Get retrieves an insight by ID.
func (s *insightStore) Get(ctx context.Context, id string) (*domain.Insight, error) {
	return getInsight(ctx, s.store.db, id)
}

func getInsight(ctx context.Context, q querier, id string) (*domain.Insight, error) {
	row := q.QueryRowContext(ctx, "SELECT "+insightColumns+" FROM insights WHERE id = ?", id)
	insight, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return insight, err
}

// List returns all insights, newest first.
func (s *insightStore) List(ctx context.Context) ([]domain.Insight, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+insightColumns+" FROM insights ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("querying insights: %w", err)
	}
	defer rows.Close()

	insights := []domain.Insight{}
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, *insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating insights: %w", err)
	}
	return insights, nil
}

// Update applies fn inside an immediate transaction.
func (s *insightStore) Update(ctx context.Context, id string, fn func(*domain.Insight) error) (*domain.Insight, error) {
	var updated *domain.Insight
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		insight, err := getInsight(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(insight); err != nil {
			return err
		}
		insight.ID = id
		if err := saveInsight(ctx, tx, insight); err != nil {
			return err
		}
		updated = insight
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an insight.
func (s *insightStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM insights WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting insight: %w", err)
	}
	return rowsAffectedOrNotFound(res, "deleting insight")
}

func scanInsight(row scanner) (*domain.Insight, error) {
	var in domain.Insight
	var tags string
	var createdAt, updatedAt sql.NullString
	if err := row.Scan(&in.ID, &in.Content, &in.Category, &in.Importance,
		&tags, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning insight: %w", err)
	}
	var err error
	if in.Tags, err = unmarshalTags(tags); err != nil {
		return nil, err
	}
	in.CreatedAt = parseTime(createdAt)
	in.UpdatedAt = parseTime(updatedAt)
	return &in, nil
}
