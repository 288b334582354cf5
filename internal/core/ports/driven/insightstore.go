package driven

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// InsightStore persists insights.
type InsightStore interface {
	// Save creates or replaces an insight.
	Save(ctx context.Context, insight *domain.Insight) error

	// Get retrieves an insight by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Insight, error)

	// List returns all insights, newest first.
	List(ctx context.Context) ([]domain.Insight, error)

	// Update applies fn under an exclusive lock and persists the result.
	Update(ctx context.Context, id string, fn func(*domain.Insight) error) (*domain.Insight, error)

	// Delete removes an insight.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// SessionStore persists work sessions and the current-session pointer.
type SessionStore interface {
	// Create stores a new session.
	// Returns domain.ErrAlreadyExists if the ID is taken.
	Create(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// List returns all sessions, most recently started first.
	List(ctx context.Context) ([]domain.Session, error)

	// AddChunk links a chunk to a session. Linking twice is a no-op.
	AddChunk(ctx context.Context, sessionID, chunkID string) error

	// SetCurrent records the session new chunks are attached to.
	SetCurrent(ctx context.Context, sessionID string) error

	// Current returns the current session ID, or "" if none is set.
	Current(ctx context.Context) (string, error)
}
