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
	sessionColumns = "id, project, path, domain, ticket, started, tags"

	// currentSessionKey is the session_state row holding the current session.
	currentSessionKey = "current_session"
)

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// Create stores a new session.
func (s *sessionStore) Create(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidInput
	}
	tags, err := marshalTags(session.Tags)
	if err != nil {
		return err
	}
	if session.Started.IsZero() {
		session.Started = time.Now()
	}

	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (`+sessionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, session.ID, session.Project, session.Path, session.Domain, session.Ticket,
			formatTime(session.Started), tags)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("session %s: %w", session.ID, domain.ErrAlreadyExists)
			}
			return fmt.Errorf("saving session: %w", err)
		}
		for _, chunkID := range session.Chunks {
			if err := linkChunk(ctx, tx, session.ID, chunkID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get retrieves a session by ID.
func (s *sessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.Chunks, err = s.chunks(ctx, id); err != nil {
		return nil, err
	}
	return session, nil
}

// List returns all sessions, most recently started first.
func (s *sessionStore) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions ORDER BY started DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}

	sessions := []domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	for i := range sessions {
		if sessions[i].Chunks, err = s.chunks(ctx, sessions[i].ID); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// AddChunk links a chunk to a session.
func (s *sessionStore) AddChunk(ctx context.Context, sessionID, chunkID string) error {
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("looking up session: %w", err)
		}
		return linkChunk(ctx, tx, sessionID, chunkID)
	})
}

func linkChunk(ctx context.Context, tx *sql.Tx, sessionID, chunkID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO session_chunks (session_id, chunk_id, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM session_chunks WHERE session_id = ?))
		ON CONFLICT(session_id, chunk_id) DO NOTHING
	`, sessionID, chunkID, sessionID)
	if err != nil {
		return fmt.Errorf("linking chunk: %w", err)
	}
	return nil
}

// SetCurrent records the session new chunks are attached to.
func (s *sessionStore) SetCurrent(ctx context.Context, sessionID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO session_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, currentSessionKey, sessionID)
	if err != nil {
		return fmt.Errorf("setting current session: %w", err)
	}
	return nil
}

// Current returns the current session ID, or "" if none is set.
func (s *sessionStore) Current(ctx context.Context) (string, error) {
	var id string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT value FROM session_state WHERE key = ?", currentSessionKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading current session: %w", err)
	}
	return id, nil
}

func (s *sessionStore) chunks(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT chunk_id FROM session_chunks WHERE session_id = ? ORDER BY position", sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session chunks: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session chunk: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSession(row scanner) (*domain.Session, error) {
	var session domain.Session
	var tags string
	var started sql.NullString
	if err := row.Scan(&session.ID, &session.Project, &session.Path, &session.Domain,
		&session.Ticket, &started, &tags); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	var err error
	if session.Tags, err = unmarshalTags(tags); err != nil {
		return nil, err
	}
	session.Started = parseTime(started)
	return &session, nil
}
