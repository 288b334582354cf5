package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

const (
	selectTask = `SELECT id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled
		FROM scheduled_tasks`

	upsertTask = `INSERT INTO scheduled_tasks
			(id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled`

	insertResult = `INSERT INTO task_results
			(task_id, started_at, ended_at, success, error, items_processed)
		VALUES (?, ?, ?, ?, ?, ?)`

	// A negative LIMIT means no limit in SQLite.
	selectHistory = `SELECT task_id, started_at, ended_at, success, error, items_processed
		FROM task_results WHERE task_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ?`

	pruneHistory = `DELETE FROM task_results WHERE id IN (
		SELECT id FROM (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS age
			FROM task_results)
		WHERE age > ?)`
)

// schedulerStore persists scheduler state in scheduled_tasks and
// task_results. Intervals are stored in whole seconds.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	task, err := scanTask(s.store.db.QueryRowContext(ctx, selectTask+" WHERE id = ?", taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

// ListTasks returns every stored task ordered by ID.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, selectTask+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.ScheduledTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, upsertTask,
		task.ID, task.Name, int64(task.Interval/time.Second),
		formatTime(task.LastRun), formatTime(task.NextRun), emptyAsNull(task.LastError),
		formatTime(task.LastSuccess), flag(task.Enabled))
	if err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteTask drops the task and every result recorded for it.
func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM task_results WHERE task_id = ?",
			"DELETE FROM scheduled_tasks WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, taskID); err != nil {
				return fmt.Errorf("deleting task %s: %w", taskID, err)
			}
		}
		return nil
	})
}

func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil || result.TaskID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, insertResult,
		result.TaskID, formatTime(result.StartedAt), formatTime(result.EndedAt),
		flag(result.Success), emptyAsNull(result.Error), result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("recording %s result: %w", result.TaskID, err)
	}
	return nil
}

// GetTaskHistory returns up to limit results, newest first. A limit of
// zero or less returns the whole history.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, selectHistory, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s history: %w", taskID, err)
	}
	defer rows.Close()

	results := []domain.TaskResult{}
	for rows.Next() {
		var (
			r              domain.TaskResult
			started, ended sql.NullString
			errMsg         sql.NullString
			success        int
		)
		if err := rows.Scan(&r.TaskID, &started, &ended, &success, &errMsg, &r.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("scanning task result: %w", err)
		}
		r.StartedAt, r.EndedAt = parseTime(started), parseTime(ended)
		r.Success = success != 0
		r.Error = errMsg.String
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	if _, err := s.store.db.ExecContext(ctx, pruneHistory, max(keep, 0)); err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

func scanTask(row scanner) (*domain.ScheduledTask, error) {
	var (
		task                                   domain.ScheduledTask
		seconds                                int64
		lastRun, nextRun, lastSuccess, lastErr sql.NullString
		enabled                                int
	)
	err := row.Scan(&task.ID, &task.Name, &seconds, &lastRun, &nextRun, &lastErr, &lastSuccess, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}
	task.Interval = time.Duration(seconds) * time.Second
	task.LastRun, task.NextRun, task.LastSuccess = parseTime(lastRun), parseTime(nextRun), parseTime(lastSuccess)
	task.LastError = lastErr.String
	task.Enabled = enabled != 0
	return &task, nil
}

func emptyAsNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
