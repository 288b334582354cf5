package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

var (
	_ driven.InsightStore = (*InsightStore)(nil)
	_ driven.SessionStore = (*SessionStore)(nil)
)

// InsightStore is an in-memory implementation of driven.InsightStore.
type InsightStore struct {
	mu       sync.RWMutex
	insights map[string]domain.Insight
}

// NewInsightStore creates a new in-memory insight store.
func NewInsightStore() *InsightStore {
	return &InsightStore{
		insights: make(map[string]domain.Insight),
	}
}

// Save creates or replaces an insight.
func (s *InsightStore) Save(_ context.Context, insight *domain.Insight) error {
	if insight == nil || insight.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights[insight.ID] = cloneInsight(*insight)
	return nil
}

// Get retrieves an insight by ID.
func (s *InsightStore) Get(_ context.Context, id string) (*domain.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.insights[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	in = cloneInsight(in)
	return &in, nil
}

// List returns all insights, newest first.
func (s *InsightStore) List(_ context.Context) ([]domain.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Insight, 0, len(s.insights))
	for _, in := range s.insights {
		result = append(result, cloneInsight(in))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Update applies fn while holding the write lock.
func (s *InsightStore) Update(_ context.Context, id string, fn func(*domain.Insight) error) (*domain.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.insights[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	in := cloneInsight(stored)
	if err := fn(&in); err != nil {
		return nil, err
	}
	in.ID = id
	s.insights[id] = cloneInsight(in)
	return &in, nil
}

// Delete removes an insight.
func (s *InsightStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.insights[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.insights, id)
	return nil
}

func cloneInsight(in domain.Insight) domain.Insight {
	in.Tags = domain.NewTagSet(in.Tags.Slice()...)
	return in
}

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	current  string
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

// Create stores a new session.
func (s *SessionStore) Create(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s: %w", session.ID, domain.ErrAlreadyExists)
	}
	if session.Started.IsZero() {
		session.Started = time.Now()
	}
	s.sessions[session.ID] = cloneSession(*session)
	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	session = cloneSession(session)
	return &session, nil
}

// List returns all sessions, most recently started first.
func (s *SessionStore) List(_ context.Context) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, cloneSession(session))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Started.Equal(result[j].Started) {
			return result[i].Started.After(result[j].Started)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// AddChunk links a chunk to a session.
func (s *SessionStore) AddChunk(_ context.Context, sessionID, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, id := range session.Chunks {
		if id == chunkID {
			return nil
		}
	}
	session.Chunks = append(session.Chunks, chunkID)
	s.sessions[sessionID] = session
	return nil
}

// SetCurrent records the current session.
func (s *SessionStore) SetCurrent(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sessionID
	return nil
}

// Current returns the current session ID, or "" if none is set.
func (s *SessionStore) Current(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func cloneSession(session domain.Session) domain.Session {
	session.Chunks = append([]string{}, session.Chunks...)
	session.Tags = domain.NewTagSet(session.Tags.Slice()...)
	return session
}
