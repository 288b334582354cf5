package mcp

import (
	"time"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// Tool outputs use plain strings for times and tag lists so the inferred
// output schemas match what is serialised.

// ChunkView is the tool representation of chunk metadata.
type ChunkView struct {
	ID             string   `json:"id"`
	Summary        string   `json:"summary"`
	Tags           []string `json:"tags"`
	Type           string   `json:"type"`
	Project        string   `json:"project,omitempty"`
	Ticket         string   `json:"ticket,omitempty"`
	Domain         string   `json:"domain,omitempty"`
	Entities       []string `json:"entities,omitempty"`
	TokensEstimate int      `json:"tokens_estimate"`
	CreatedAt      string   `json:"created_at"`
	LastAccessed   string   `json:"last_accessed,omitempty"`
	AccessCount    int      `json:"access_count"`
	Tier           string   `json:"tier"`
}

// InsightView is the tool representation of an insight.
type InsightView struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

// SessionView is the tool representation of a session.
type SessionView struct {
	ID      string   `json:"id"`
	Project string   `json:"project"`
	Domain  string   `json:"domain,omitempty"`
	Ticket  string   `json:"ticket,omitempty"`
	Path    string   `json:"path,omitempty"`
	Started string   `json:"started"`
	Chunks  []string `json:"chunks"`
}

// GrepMatchView is one matching line.
type GrepMatchView struct {
	ChunkID    string `json:"chunk_id"`
	Summary    string `json:"summary"`
	LineNumber int    `json:"line_number"`
	Context    string `json:"context"`
	Score      int    `json:"score,omitempty"`
}

// ArchiveCandidateView is a chunk a retention run would archive.
type ArchiveCandidateView struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary"`
	CreatedAt   string   `json:"created_at"`
	AccessCount int      `json:"access_count"`
	Tags        []string `json:"tags"`
}

// PurgeCandidateView is an archived chunk a retention run would purge.
type PurgeCandidateView struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	ArchivedAt string `json:"archived_at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func chunkView(c *domain.Chunk) *ChunkView {
	if c == nil {
		return nil
	}
	return &ChunkView{
		ID:             c.ID,
		Summary:        c.Summary,
		Tags:           c.Tags.Slice(),
		Type:           c.Type.String(),
		Project:        c.Project,
		Ticket:         c.Ticket,
		Domain:         c.Domain,
		Entities:       c.Entities.All(),
		TokensEstimate: c.TokensEstimate,
		CreatedAt:      formatTime(c.CreatedAt),
		LastAccessed:   formatTime(c.LastAccessed),
		AccessCount:    c.AccessCount,
		Tier:           c.Tier.String(),
	}
}

func insightView(in *domain.Insight) *InsightView {
	if in == nil {
		return nil
	}
	return &InsightView{
		ID:         in.ID,
		Content:    in.Content,
		Category:   in.Category,
		Importance: in.Importance,
		Tags:       in.Tags.Slice(),
		CreatedAt:  formatTime(in.CreatedAt),
		UpdatedAt:  formatTime(in.UpdatedAt),
	}
}

func sessionView(s *domain.Session) SessionView {
	chunks := s.Chunks
	if chunks == nil {
		chunks = []string{}
	}
	return SessionView{
		ID:      s.ID,
		Project: s.Project,
		Domain:  s.Domain,
		Ticket:  s.Ticket,
		Path:    s.Path,
		Started: formatTime(s.Started),
		Chunks:  chunks,
	}
}

func grepMatchViews(matches []driving.GrepMatch) []GrepMatchView {
	out := make([]GrepMatchView, len(matches))
	for i, m := range matches {
		out[i] = GrepMatchView{
			ChunkID:    m.ChunkID,
			Summary:    m.ChunkSummary,
			LineNumber: m.LineNumber,
			Context:    m.Context,
			Score:      m.Score,
		}
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
