package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// ErrNoSession is returned by AddChunk when no session is given and none
// is current.
var ErrNoSession = fmt.Errorf("%w: no current session", domain.ErrNotFound)

const (
	defaultSessionLimit = 10
	domainsKeyPrefix    = "domains."
)

// SessionService tracks work sessions and suggested domains.
type SessionService struct {
	store  driven.SessionStore
	config driven.ConfigStore
	now    func() time.Time
}

// NewSessionService creates a session service. config may be nil, in
// which case only the built-in domains are suggested.
func NewSessionService(store driven.SessionStore, config driven.ConfigStore) *SessionService {
	return &SessionService{store: store, config: config, now: time.Now}
}

// Register creates the session and makes it current.
func (s *SessionService) Register(ctx context.Context, session domain.Session) (*domain.Session, bool, error) {
	if strings.TrimSpace(session.ID) == "" {
		return nil, false, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}

	existing, err := s.store.Get(ctx, session.ID)
	switch {
	case err == nil:
		if err := s.store.SetCurrent(ctx, session.ID); err != nil {
			return nil, false, fmt.Errorf("set current session: %w", err)
		}
		return existing, true, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, fmt.Errorf("get session: %w", err)
	}

	if session.Started.IsZero() {
		session.Started = s.now()
	}
	if session.Chunks == nil {
		session.Chunks = []string{}
	}
	if err := s.store.Create(ctx, &session); err != nil {
		return nil, false, fmt.Errorf("create session: %w", err)
	}
	if err := s.store.SetCurrent(ctx, session.ID); err != nil {
		return nil, false, fmt.Errorf("set current session: %w", err)
	}
	return &session, false, nil
}

// AddChunk links a chunk to a session; "" means the current session.
func (s *SessionService) AddChunk(ctx context.Context, sessionID, chunkID string) error {
	if sessionID == "" {
		current, err := s.store.Current(ctx)
		if err != nil {
			return fmt.Errorf("current session: %w", err)
		}
		if current == "" {
			return ErrNoSession
		}
		sessionID = current
	}
	if err := s.store.AddChunk(ctx, sessionID, chunkID); err != nil {
		return fmt.Errorf("add chunk to session %s: %w", sessionID, err)
	}
	return nil
}

// List returns sessions, most recently started first.
func (s *SessionService) List(ctx context.Context, filter driving.SessionFilter) ([]domain.Session, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSessionLimit
	}

	out := make([]domain.Session, 0, min(limit, len(sessions)))
	for i := range sessions {
		if len(out) >= limit {
			break
		}
		if filter.Project != "" && sessions[i].Project != filter.Project {
			continue
		}
		if filter.Domain != "" && sessions[i].Domain != filter.Domain {
			continue
		}
		out = append(out, sessions[i])
	}
	return out, nil
}

// Current returns the current session ID, or "" if none.
func (s *SessionService) Current(ctx context.Context) (string, error) {
	return s.store.Current(ctx)
}

// Domains returns the built-in suggestions merged with the [domains]
// configuration table, where each key is a category holding a list.
func (s *SessionService) Domains(_ context.Context) (map[string][]string, error) {
	out := domain.DefaultDomains()
	if s.config == nil {
		return out, nil
	}
	for _, key := range s.config.Keys(domainsKeyPrefix) {
		category := strings.TrimPrefix(key, domainsKeyPrefix)
		if category == "" {
			continue
		}
		if values := s.config.GetStringSlice(key); len(values) > 0 {
			out[category] = values
		}
	}
	return out, nil
}

// sessionIDFor names the session a chunk created on date belongs to.
func sessionIDFor(date, project, domainName string) string {
	id := date + "_" + project
	if domainName != "" {
		id += "_" + domainName
	}
	return id
}
