package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// --- Mock implementations for scheduler testing ---

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.TaskResult
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	// Return a copy
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result == nil {
		return domain.ErrInvalidInput
	}
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recorded := m.results[taskID]
	results := make([]domain.TaskResult, 0, len(recorded))
	for i := len(recorded) - 1; i >= 0 && (limit <= 0 || len(results) < limit); i-- {
		results = append(results, recorded[i])
	}
	return results, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	return m.pruneErr
}

// mockRetentionService records Run calls.
type mockRetentionService struct {
	mu     sync.Mutex
	runs   []driving.RetentionRunOptions
	report domain.RetentionReport
	runErr error
	block  chan struct{}
}

func (m *mockRetentionService) Run(_ context.Context, opts driving.RetentionRunOptions) (*domain.RetentionReport, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, opts)
	if m.runErr != nil {
		return nil, m.runErr
	}
	report := m.report
	return &report, nil
}

func (m *mockRetentionService) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func (m *mockRetentionService) Preview(context.Context) (*domain.RetentionPreview, error) {
	return &domain.RetentionPreview{}, nil
}

func (m *mockRetentionService) Archive(context.Context, string) (*domain.ArchiveResult, error) {
	return nil, domain.ErrNotFound
}

func (m *mockRetentionService) Restore(context.Context, string) (*domain.Chunk, error) {
	return nil, domain.ErrNotFound
}

func (m *mockRetentionService) Stats(context.Context) (*domain.ArchiveStats, error) {
	return &domain.ArchiveStats{}, nil
}

func (m *mockRetentionService) IsArchived(context.Context, string) (bool, error) {
	return false, nil
}

// mockBackfillService returns a fixed report.
type mockBackfillService struct {
	calls  int
	report driving.BackfillReport
	err    error
}

func (m *mockBackfillService) Run(_ context.Context, _ bool) (*driving.BackfillReport, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	report := m.report
	return &report, nil
}

// Ensure mocks implement interfaces
var (
	_ driven.SchedulerStore    = (*mockSchedulerStore)(nil)
	_ driving.RetentionService = (*mockRetentionService)(nil)
	_ driving.BackfillService  = (*mockBackfillService)(nil)
)

func embeddingConfiguredSchedulerConfig() domain.SchedulerConfig {
	settings := domain.DefaultAppSettings()
	settings.Embedding.Provider = domain.AIProviderOllama
	return domain.SchedulerConfigFrom(settings)
}

// ==================== Scheduler Tests ====================

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, &mockRetentionService{}, nil)

	require.NotNil(t, scheduler)
	assert.Equal(t, config.Enabled, scheduler.config.Enabled)
}

func TestScheduler_StartStop(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, &mockRetentionService{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()

	assert.Eventually(t, func() bool {
		tasks, err := store.ListTasks(ctx)
		return err == nil && len(tasks) == 2
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, scheduler.Stop())
	require.NoError(t, <-done)
}

func TestScheduler_StartDisabled(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	config.Enabled = false
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, &mockRetentionService{}, nil)

	// Returns at once instead of blocking.
	require.NoError(t, scheduler.Start(context.Background()))
	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil)

	// Stop without starting should be safe
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_DoubleStart(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	scheduler := NewScheduler(config, newMockSchedulerStore(), &mockRetentionService{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		scheduler.mu.Lock()
		defer scheduler.mu.Unlock()
		return scheduler.running
	}, time.Second, 10*time.Millisecond)

	// Second start should return immediately (already running)
	assert.NoError(t, scheduler.Start(context.Background()))

	cancel()
	scheduler.Stop() //nolint:errcheck
	wg.Wait()
}

func TestScheduler_InitialiseTasks(t *testing.T) {
	ctx := context.Background()

	t.Run("backfill disabled without provider", func(t *testing.T) {
		store := newMockSchedulerStore()
		scheduler := NewScheduler(embeddingConfiguredSchedulerConfig(), store, &mockRetentionService{}, nil)
		require.NoError(t, scheduler.initialiseTasks(ctx))

		retention, err := store.GetTask(ctx, domain.TaskIDRetention)
		require.NoError(t, err)
		require.NotNil(t, retention)
		assert.Equal(t, "Retention", retention.Name)
		assert.True(t, retention.Enabled)
		assert.Equal(t, 24*time.Hour, retention.Interval)

		backfill, err := store.GetTask(ctx, domain.TaskIDEmbeddingBackfill)
		require.NoError(t, err)
		require.NotNil(t, backfill)
		assert.Equal(t, "Embedding Backfill", backfill.Name)
		assert.False(t, backfill.Enabled)
	})

	t.Run("backfill enabled with provider", func(t *testing.T) {
		store := newMockSchedulerStore()
		scheduler := NewScheduler(embeddingConfiguredSchedulerConfig(), store,
			&mockRetentionService{}, &mockBackfillService{})
		require.NoError(t, scheduler.initialiseTasks(ctx))

		backfill, err := store.GetTask(ctx, domain.TaskIDEmbeddingBackfill)
		require.NoError(t, err)
		assert.True(t, backfill.Enabled)
		assert.Equal(t, 6*time.Hour, backfill.Interval)
	})

	t.Run("store errors surface", func(t *testing.T) {
		store := newMockSchedulerStore()
		store.getErr = assert.AnError
		scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, nil, nil)
		require.ErrorIs(t, scheduler.initialiseTasks(ctx), assert.AnError)
	})
}

func TestScheduler_EnsureTask_UpdateInterval(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil)
	store := scheduler.store
	ctx := context.Background()

	taskCfg := domain.TaskConfig{
		Enabled:  true,
		Interval: 1 * time.Hour,
	}
	require.NoError(t, scheduler.ensureTask(ctx, domain.TaskIDRetention, "Retention", taskCfg))

	taskCfg.Interval = 2 * time.Hour
	require.NoError(t, scheduler.ensureTask(ctx, domain.TaskIDRetention, "Retention", taskCfg))

	task, err := store.GetTask(ctx, domain.TaskIDRetention)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, task.Interval)
}

func TestScheduler_RunTask_Retention(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	config := domain.DefaultSchedulerConfig()
	config.AutoPurge = true
	store := newMockSchedulerStore()
	retention := &mockRetentionService{report: domain.RetentionReport{
		Archived: []string{"a", "b"},
		Purged:   []string{"c"},
	}}

	scheduler := NewScheduler(config, store, retention, nil)
	scheduler.SetClock(clock.Now)

	result, err := scheduler.RunTask(ctx, domain.TaskIDRetention)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.ItemsProcessed)
	assert.Equal(t, []driving.RetentionRunOptions{{Archive: true, Purge: true}}, retention.runs)

	task, err := store.GetTask(ctx, domain.TaskIDRetention)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), task.LastRun)
	assert.Equal(t, clock.Now(), task.LastSuccess)
	assert.Equal(t, clock.Now().Add(24*time.Hour), task.NextRun)
	assert.Empty(t, task.LastError)

	history, err := store.GetTaskHistory(ctx, domain.TaskIDRetention, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestScheduler_RunTask_RetentionErrorsFailTask(t *testing.T) {
	ctx := context.Background()
	store := newMockSchedulerStore()

	t.Run("per-chunk errors", func(t *testing.T) {
		retention := &mockRetentionService{report: domain.RetentionReport{
			Archived: []string{"a"},
			Errors:   []string{"archive b: disk full"},
		}}
		scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, retention, nil)

		result, err := scheduler.RunTask(ctx, domain.TaskIDRetention)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, 1, result.ItemsProcessed)
		assert.Contains(t, result.Error, "disk full")

		task, err := store.GetTask(ctx, domain.TaskIDRetention)
		require.NoError(t, err)
		assert.Contains(t, task.LastError, "disk full")
	})

	t.Run("run error", func(t *testing.T) {
		retention := &mockRetentionService{runErr: domain.ErrStorage}
		scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, retention, nil)

		result, err := scheduler.RunTask(ctx, domain.TaskIDRetention)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
	})
}

func TestScheduler_RunTask_Backfill(t *testing.T) {
	ctx := context.Background()

	t.Run("reports embedded count", func(t *testing.T) {
		backfill := &mockBackfillService{report: driving.BackfillReport{Embedded: 4, Skipped: 2}}
		scheduler := NewScheduler(embeddingConfiguredSchedulerConfig(), newMockSchedulerStore(), nil, backfill)

		result, err := scheduler.RunTask(ctx, domain.TaskIDEmbeddingBackfill)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 4, result.ItemsProcessed)
		assert.Equal(t, 1, backfill.calls)
	})

	t.Run("unavailable provider is skipped", func(t *testing.T) {
		backfill := &mockBackfillService{err: domain.ErrEmbeddingUnavailable}
		scheduler := NewScheduler(embeddingConfiguredSchedulerConfig(), newMockSchedulerStore(), nil, backfill)

		result, err := scheduler.RunTask(ctx, domain.TaskIDEmbeddingBackfill)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Zero(t, result.ItemsProcessed)
	})

	t.Run("nil service is a no-op", func(t *testing.T) {
		scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil)

		result, err := scheduler.RunTask(ctx, domain.TaskIDEmbeddingBackfill)
		require.NoError(t, err)
		assert.True(t, result.Success)
	})
}

func TestScheduler_RunTask_UnknownTaskID(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil)

	_, err := scheduler.RunTask(context.Background(), "document-sync")
	require.ErrorIs(t, err, ErrUnknownTask)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduler_RunTask_AlreadyRunning(t *testing.T) {
	ctx := context.Background()
	retention := &mockRetentionService{block: make(chan struct{})}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), retention, nil)

	done := make(chan error, 1)
	go func() {
		_, err := scheduler.RunTask(ctx, domain.TaskIDRetention)
		done <- err
	}()

	require.Eventually(t, func() bool {
		scheduler.mu.Lock()
		defer scheduler.mu.Unlock()
		return scheduler.inflight[domain.TaskIDRetention]
	}, time.Second, 5*time.Millisecond)

	_, err := scheduler.RunTask(ctx, domain.TaskIDRetention)
	require.ErrorIs(t, err, domain.ErrConflict)

	close(retention.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, retention.runCount())
}

func TestScheduler_CheckAndRunDueTasks(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newMockSchedulerStore()
	retention := &mockRetentionService{}

	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, retention, nil)
	scheduler.SetClock(clock.Now)

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID:       domain.TaskIDRetention,
		Name:     "Retention",
		Interval: time.Hour,
		NextRun:  clock.Now().Add(-time.Minute),
		Enabled:  true,
	}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID:       domain.TaskIDEmbeddingBackfill,
		Name:     "Embedding Backfill",
		Interval: time.Hour,
		NextRun:  clock.Now().Add(time.Hour),
		Enabled:  true,
	}))

	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	assert.Equal(t, 1, retention.runCount())
	task, err := store.GetTask(ctx, domain.TaskIDRetention)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), task.NextRun)
}

func TestScheduler_Tasks(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil, nil)

	tasks, err := scheduler.Tasks(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(tasks))
	for _, task := range tasks {
		names = append(names, task.Name)
	}
	assert.ElementsMatch(t, []string{"Retention", "Embedding Backfill"}, names)
}

func TestScheduler_Tasks_DropsStaleTasks(t *testing.T) {
	ctx := context.Background()
	store := newMockSchedulerStore()
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "sync", Name: "Sync"}))
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, nil, nil)

	tasks, err := scheduler.Tasks(ctx)
	require.NoError(t, err)

	assert.Len(t, tasks, 2)
	stale, err := store.GetTask(ctx, "sync")
	require.NoError(t, err)
	assert.Nil(t, stale)
}

func TestScheduler_History(t *testing.T) {
	ctx := context.Background()
	store := newMockSchedulerStore()
	for i := range 12 {
		require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
			TaskID:         domain.TaskIDRetention,
			ItemsProcessed: i,
		}))
	}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, nil, nil)

	results, err := scheduler.History(ctx, domain.TaskIDRetention, 0)
	require.NoError(t, err)
	assert.Len(t, results, defaultHistoryLimit)

	results, err = scheduler.History(ctx, domain.TaskIDRetention, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	_, err = scheduler.History(ctx, "nope", 3)
	require.ErrorIs(t, err, ErrUnknownTask)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
