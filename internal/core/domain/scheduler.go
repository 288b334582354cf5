package domain

import "time"

// Built-in background tasks.
const (
	TaskIDRetention         = "retention"
	TaskIDEmbeddingBackfill = "embedding-backfill"
)

// ScheduledTask is the persisted state of a recurring task.
type ScheduledTask struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Interval    time.Duration `json:"interval"`
	LastRun     time.Time     `json:"last_run"`
	NextRun     time.Time     `json:"next_run"`
	LastError   string        `json:"last_error,omitempty"`
	LastSuccess time.Time     `json:"last_success"`
	Enabled     bool          `json:"enabled"`
}

// IsDue reports whether the task should run at now. A task that never ran
// is due immediately.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Complete folds a finished run into the task and schedules the next one
// an Interval after the run ended.
func (t *ScheduledTask) Complete(r *TaskResult) {
	t.LastRun = r.StartedAt
	t.NextRun = r.EndedAt.Add(t.Interval)
	if r.Success {
		t.LastError = ""
		t.LastSuccess = r.EndedAt
		return
	}
	t.LastError = r.Error
}

// TaskResult is one entry of a task's run history.
type TaskResult struct {
	TaskID    string    `json:"task_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`

	// ItemsProcessed counts chunks archived, purged or embedded.
	ItemsProcessed int `json:"items_processed"`
}

// Duration is how long the run took.
func (r *TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig is the scheduler's view of AppSettings.
type SchedulerConfig struct {
	Enabled bool

	// AutoPurge lets the retention task purge old archives.
	AutoPurge bool

	TaskConfigs map[string]TaskConfig
}

// TaskConfig switches one task on or off and sets its period.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Task returns the configuration of id. Unknown tasks are disabled.
func (c *SchedulerConfig) Task(id string) TaskConfig {
	return c.TaskConfigs[id]
}

// DefaultSchedulerConfig derives the scheduler configuration from the
// default settings.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfigFrom(DefaultAppSettings())
}

// SchedulerConfigFrom derives the scheduler configuration from s.
// Backfill only runs when an embedding provider is configured.
func SchedulerConfigFrom(s AppSettings) SchedulerConfig {
	return SchedulerConfig{
		Enabled:   s.Scheduler.Enabled,
		AutoPurge: s.Retention.AutoPurge,
		TaskConfigs: map[string]TaskConfig{
			TaskIDRetention:         {Enabled: true, Interval: s.Scheduler.RetentionInterval},
			TaskIDEmbeddingBackfill: {Enabled: s.Embedding.IsConfigured(), Interval: s.Scheduler.BackfillInterval},
		},
	}
}
