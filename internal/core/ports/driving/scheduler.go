package driving

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// Scheduler manages background tasks like retention and embedding backfill.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// RunTask executes one task immediately, regardless of its schedule.
	RunTask(ctx context.Context, taskID string) (*domain.TaskResult, error)

	// Tasks returns the persisted task states.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns recent results of one task, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
