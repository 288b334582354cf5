package services

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
	"github.com/custodia-labs/rlm/internal/core/tokenizer"
	"github.com/custodia-labs/rlm/internal/logger"
)

// Ensure InsightService implements the interface.
var _ driving.InsightService = (*InsightService)(nil)

const (
	defaultRecallLimit = 10
	insightIDLength    = 8
)

// InsightService manages short, permanent facts and decisions.
type InsightService struct {
	store  driven.InsightStore
	corpus *CorpusIndex
	now    func() time.Time
}

// NewInsightService creates an insight service. corpus may be nil.
func NewInsightService(store driven.InsightStore, corpus *CorpusIndex) *InsightService {
	return &InsightService{store: store, corpus: corpus, now: time.Now}
}

// SetClock replaces the time source.
func (s *InsightService) SetClock(now func() time.Time) {
	s.now = now
}

// Remember stores a new insight.
func (s *InsightService) Remember(ctx context.Context, req driving.InsightRequest) (*domain.Insight, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: insight content is required", domain.ErrInvalidInput)
	}

	now := s.now()
	insight := &domain.Insight{
		ID:         insightID(content, now),
		Content:    content,
		Category:   cmp.Or(strings.TrimSpace(req.Category), domain.DefaultInsightCategory),
		Importance: cmp.Or(strings.TrimSpace(req.Importance), domain.DefaultInsightImportance),
		Tags:       req.Tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Save(ctx, insight); err != nil {
		return nil, fmt.Errorf("save insight: %w", err)
	}
	s.invalidate()
	logger.Debug("insight: saved %s", insight.ID)
	return insight, nil
}

// Recall finds insights, most relevant first. Without a query they come
// newest first.
func (s *InsightService) Recall(ctx context.Context, q driving.RecallQuery) ([]driving.RecallHit, error) {
	insights, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	query := strings.TrimSpace(q.Query)
	var tokens []string
	if query != "" {
		tokens = tokenizer.Terms(query)
		// A query made only of stopwords still matches literally.
		if len(tokens) == 0 {
			tokens = []string{strings.ToLower(query)}
		}
	}

	hits := make([]driving.RecallHit, 0, len(insights))
	for i := range insights {
		in := insights[i]
		if q.Category != "" && in.Category != q.Category {
			continue
		}
		if q.Importance != "" && in.Importance != q.Importance {
			continue
		}
		if tokens == nil {
			hits = append(hits, driving.RecallHit{Insight: in})
			continue
		}
		if relevance := recallRelevance(&in, tokens); relevance > 0 {
			hits = append(hits, driving.RecallHit{Insight: in, Relevance: relevance})
		}
	}

	slices.SortStableFunc(hits, func(a, b driving.RecallHit) int {
		if c := cmp.Compare(b.Relevance, a.Relevance); c != 0 {
			return c
		}
		return b.Insight.CreatedAt.Compare(a.Insight.CreatedAt)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// recallRelevance is the share of query tokens found in the content or a
// tag, as substrings of their lowercase forms.
func recallRelevance(in *domain.Insight, tokens []string) float64 {
	content := strings.ToLower(in.Content)
	tags := in.Tags.Slice()
	for i := range tags {
		tags[i] = strings.ToLower(tags[i])
	}

	matched := 0
	for _, tok := range tokens {
		if strings.Contains(content, tok) || slices.ContainsFunc(tags, func(t string) bool {
			return strings.Contains(t, tok)
		}) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// Update applies a patch.
func (s *InsightService) Update(
	ctx context.Context, id string, patch domain.InsightPatch,
) (*domain.Insight, bool, error) {
	if patch.IsEmpty() {
		in, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("insight %s: %w", id, err)
		}
		return in, false, nil
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return nil, false, fmt.Errorf("%w: insight content cannot be empty", domain.ErrInvalidInput)
	}

	updated, err := s.store.Update(ctx, id, func(in *domain.Insight) error {
		if patch.Content != nil {
			in.Content = strings.TrimSpace(*patch.Content)
		}
		if patch.Category != nil {
			in.Category = *patch.Category
		}
		if patch.Importance != nil {
			in.Importance = *patch.Importance
		}
		if patch.ReplaceTags != nil {
			in.Tags = *patch.ReplaceTags
		} else {
			for _, t := range patch.AddTags.Slice() {
				in.Tags.Add(t)
			}
			for _, t := range patch.RemoveTags.Slice() {
				in.Tags.Remove(t)
			}
			tags := in.Tags.Slice()
			slices.Sort(tags)
			in.Tags = domain.NewTagSet(tags...)
		}
		in.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("update insight %s: %w", id, err)
	}
	s.invalidate()
	return updated, true, nil
}

// Forget deletes an insight.
func (s *InsightService) Forget(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("forget insight %s: %w", id, err)
	}
	s.invalidate()
	return nil
}

// Status summarizes stored insights.
func (s *InsightService) Status(ctx context.Context) (*domain.InsightStats, error) {
	insights, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}

	stats := &domain.InsightStats{
		Total:        len(insights),
		ByCategory:   map[string]int{},
		ByImportance: map[string]int{},
	}
	for i := range insights {
		in := &insights[i]
		stats.ByCategory[cmp.Or(in.Category, domain.DefaultInsightCategory)]++
		stats.ByImportance[cmp.Or(in.Importance, domain.DefaultInsightImportance)]++
		if stats.FirstCreated.IsZero() || in.CreatedAt.Before(stats.FirstCreated) {
			stats.FirstCreated = in.CreatedAt
		}
		if last := latest(in.CreatedAt, in.UpdatedAt); last.After(stats.LastUpdated) {
			stats.LastUpdated = last
		}
	}
	return stats, nil
}

func (s *InsightService) invalidate() {
	if s.corpus != nil {
		s.corpus.Invalidate()
	}
}

// insightID is the first 8 hex characters of sha256(content + timestamp).
func insightID(content string, at time.Time) string {
	sum := sha256.Sum256([]byte(content + at.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:insightIDLength]
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
