package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
	"github.com/custodia-labs/rlm/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

const (
	schedulerTick       = time.Minute
	taskHistoryRetained = 100
	defaultHistoryLimit = 10
)

// ErrUnknownTask is returned by RunTask for an unregistered task ID.
var ErrUnknownTask = fmt.Errorf("%w: unknown task", domain.ErrNotFound)

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config    domain.SchedulerConfig
	store     driven.SchedulerStore
	retention driving.RetentionService
	backfill  driving.BackfillService
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// inflight guards against a slow task being started twice.
	inflight map[string]bool
}

// NewScheduler creates a scheduler with configuration. backfill may be nil
// when no embedding provider is configured.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	retention driving.RetentionService,
	backfill driving.BackfillService,
) *Scheduler {
	return &Scheduler{
		config:    config,
		store:     store,
		retention: retention,
		backfill:  backfill,
		now:       time.Now,
		inflight:  make(map[string]bool),
	}
}

// SetClock replaces the time source.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		logger.Info("scheduler: disabled")
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tasks returns the persisted task states. Rows for task IDs this
// version no longer runs are deleted.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	if err := s.initialiseTasks(ctx); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	known := tasks[:0]
	for _, t := range tasks {
		if taskName(t.ID) != "" {
			known = append(known, t)
			continue
		}
		if err := s.store.DeleteTask(ctx, t.ID); err != nil {
			return nil, fmt.Errorf("delete stale task %s: %w", t.ID, err)
		}
		logger.Debug("scheduler: dropped stale task %s", t.ID)
	}
	return known, nil
}

// History returns up to limit recent results of a task.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if taskName(taskID) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.GetTaskHistory(ctx, taskID, limit)
}

// RunTask executes one task synchronously, regardless of its schedule.
func (s *Scheduler) RunTask(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	if taskName(taskID) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if err := s.initialiseTasks(ctx); err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	if task == nil {
		task = &domain.ScheduledTask{ID: taskID, Name: taskName(taskID)}
	}
	if !s.claim(taskID) {
		return nil, fmt.Errorf("%w: task %s is already running", domain.ErrConflict, taskID)
	}
	defer s.release(taskID)
	return s.execute(ctx, task), nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range []string{domain.TaskIDRetention, domain.TaskIDEmbeddingBackfill} {
		if err := s.ensureTask(ctx, id, taskName(id), s.config.Task(id)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if id == domain.TaskIDEmbeddingBackfill && s.backfill == nil {
		cfg.Enabled = false
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  s.now().Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(schedulerTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and starts tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.IsDue(now) || !s.claim(task.ID) {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(task.ID)
			s.execute(ctx, &task)
		}()
	}
}

// execute runs a task and records its outcome.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) *domain.TaskResult {
	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: s.now(),
	}
	logger.Debug("scheduler: running %s", task.ID)

	var err error
	switch task.ID {
	case domain.TaskIDRetention:
		result.ItemsProcessed, err = s.runRetention(ctx)
	case domain.TaskIDEmbeddingBackfill:
		result.ItemsProcessed, err = s.runBackfill(ctx)
	}

	result.EndedAt = s.now()
	if err != nil {
		result.Error = err.Error()
		logger.Warn("scheduler: task %s failed: %v", task.ID, err)
	} else {
		result.Success = true
	}
	task.Complete(result)

	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}
	if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}
	if pruneErr := s.store.PruneHistory(ctx, taskHistoryRetained); pruneErr != nil {
		logger.Warn("scheduler: failed to prune history: %v", pruneErr)
	}
	return result
}

// runRetention archives stale chunks, and purges old archives when
// auto-purge is on. Per-chunk failures fail the task as a whole.
func (s *Scheduler) runRetention(ctx context.Context) (int, error) {
	if s.retention == nil {
		return 0, nil
	}
	report, err := s.retention.Run(ctx, driving.RetentionRunOptions{
		Archive: true,
		Purge:   s.config.AutoPurge,
	})
	if err != nil {
		return 0, err
	}
	processed := len(report.Archived) + len(report.Purged)
	if len(report.Errors) > 0 {
		return processed, fmt.Errorf("%d retention errors, first: %s", len(report.Errors), report.Errors[0])
	}
	return processed, nil
}

// runBackfill embeds chunks still missing a vector.
func (s *Scheduler) runBackfill(ctx context.Context) (int, error) {
	if s.backfill == nil {
		return 0, nil
	}
	report, err := s.backfill.Run(ctx, false)
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		logger.Debug("scheduler: backfill skipped: %v", err)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return report.Embedded, nil
}

func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

func taskName(id string) string {
	switch id {
	case domain.TaskIDRetention:
		return "Retention"
	case domain.TaskIDEmbeddingBackfill:
		return "Embedding Backfill"
	default:
		return ""
	}
}
