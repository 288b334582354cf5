package driving

import (
	"context"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// SessionService tracks work sessions and suggested domains.
type SessionService interface {
	// Register creates the session and makes it current.
	// If it already exists, the stored session is returned with existed set.
	Register(ctx context.Context, session domain.Session) (s *domain.Session, existed bool, err error)

	// AddChunk links a chunk to a session; "" means the current session.
	AddChunk(ctx context.Context, sessionID, chunkID string) error

	// List returns sessions, most recently started first.
	List(ctx context.Context, filter SessionFilter) ([]domain.Session, error)

	// Current returns the current session ID, or "" if none.
	Current(ctx context.Context) (string, error)

	// Domains returns suggested domains grouped by category.
	Domains(ctx context.Context) (map[string][]string, error)
}

// SessionFilter narrows List.
type SessionFilter struct {
	Project string
	Domain  string

	// Limit defaults to 10.
	Limit int
}
