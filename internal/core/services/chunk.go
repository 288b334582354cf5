package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
	"github.com/custodia-labs/rlm/internal/logger"
)

// Ensure ChunkService implements the interface.
var _ driving.ChunkService = (*ChunkService)(nil)

// Defaults for chunk operations.
const (
	DefaultGrepLimit      = 10
	DefaultFuzzyThreshold = 80
	DefaultListLimit      = 20

	// fuzzyContextLength truncates lines shown for fuzzy matches.
	fuzzyContextLength = 150
)

// ChunkServiceDeps wires a ChunkService. Every capability must be set;
// pass the null implementations when a feature is unavailable. Sessions
// may be nil, which disables session tracking.
type ChunkServiceDeps struct {
	Chunks    driven.ChunkStore
	Archive   driven.ArchiveIndex
	Content   driven.ContentStore
	Retention *RetentionService
	Corpus    *CorpusIndex
	Sessions  driving.SessionService

	Embedder driven.EmbeddingService
	Vectors  driven.VectorIndex
	Tokens   driven.TokenCounter
	Projects driven.ProjectDetector
	Fuzzy    driven.FuzzyMatcher

	// WorkDir is recorded as the path of new sessions.
	WorkDir string
}

// ChunkService stores, reads and scans chunks.
type ChunkService struct {
	deps ChunkServiceDeps
	now  func() time.Time
}

// NewChunkService creates a chunk service.
func NewChunkService(deps ChunkServiceDeps) *ChunkService {
	return &ChunkService{deps: deps, now: time.Now}
}

// SetClock replaces the time source.
func (s *ChunkService) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates and stores a new chunk.
func (s *ChunkService) Create(ctx context.Context, req driving.ChunkRequest) (*driving.ChunkOutcome, error) {
	if req.Type == "" {
		req.Type = domain.ChunkTypeSession
	}
	if req.Type == domain.ChunkTypeInsight {
		return &driving.ChunkOutcome{
			Status: domain.StatusRedirect,
			Message: "Insights are permanent facts: store them with remember instead. " +
				"Chunks are for snapshots, session logs and debug notes.",
		}, nil
	}
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w %q (valid: snapshot, session, debug)", domain.ErrInvalidChunkType, req.Type)
	}
	if len(req.Content) > domain.MaxChunkContentSize {
		return nil, fmt.Errorf("%w (%d bytes, maximum %d)",
			domain.ErrContentTooLarge, len(req.Content), domain.MaxChunkContentSize)
	}
	for name, value := range map[string]string{"project": req.Project, "ticket": req.Ticket, "domain": req.Domain} {
		if err := validateIDSegment(name, value); err != nil {
			return nil, err
		}
	}

	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		summary = autoSummary(req.Content)
	}
	project := req.Project
	if project == "" {
		project = s.deps.Projects.Detect(ctx)
	}

	now := s.now()
	c := &domain.Chunk{
		Summary:        summary,
		Tags:           req.Tags,
		Type:           req.Type,
		Project:        project,
		Ticket:         req.Ticket,
		Domain:         req.Domain,
		Entities:       extractEntities(req.Content),
		Fingerprint:    domain.Fingerprint(req.Content),
		TokensEstimate: s.deps.Tokens.Count(req.Content),
		CreatedAt:      now,
		Tier:           domain.TierActive,
		FormatVersion:  domain.ChunkFormatVersion,
	}

	// The store checks for duplicates and numbers the chunk in one step;
	// content is written only once the ID is reserved.
	dup, err := s.deps.Chunks.Create(ctx, c, s.idFunc(now.Format(time.DateOnly), project, req.Ticket, req.Domain))
	if err != nil {
		return nil, fmt.Errorf("record chunk: %w", err)
	}
	if dup != nil {
		return duplicateOutcome(dup), nil
	}
	id := c.ID

	data, err := encodeChunkFile(c, req.Content)
	if err == nil {
		err = s.deps.Content.Write(ctx, id, data)
	}
	if err != nil {
		if rmErr := s.deps.Chunks.Remove(ctx, id); rmErr != nil {
			logger.Warn("chunk: release %s: %v", id, rmErr)
		}
		return nil, fmt.Errorf("write chunk %s: %w", id, err)
	}
	s.deps.Corpus.Invalidate()

	s.embed(ctx, c, req.Content)
	s.track(ctx, c, now)

	logger.Info("Chunk %s created (%d tokens estimated)", id, c.TokensEstimate)
	return &driving.ChunkOutcome{
		Status:  domain.StatusCreated,
		Chunk:   c,
		Message: fmt.Sprintf("Chunk %s created (%d tokens estimated)", id, c.TokensEstimate),
	}, nil
}

func duplicateOutcome(dup *driven.Duplicate) *driving.ChunkOutcome {
	c := dup.Chunk
	msg := fmt.Sprintf("Content already exists in chunk %s", c.ID)
	if dup.Archived {
		msg = fmt.Sprintf("Content already exists in archived chunk %s", c.ID)
	}
	return &driving.ChunkOutcome{
		Status:   domain.StatusDuplicate,
		Chunk:    &c,
		Archived: dup.Archived,
		Message:  msg,
	}
}

// idFunc builds chunk IDs for one project day, refusing any ID still held
// by a file.
func (s *ChunkService) idFunc(date, project, ticket, domainName string) driven.ChunkIDFunc {
	return func(ctx context.Context, seq int) (string, bool, error) {
		id := domain.NewChunkID(date, project, seq, ticket, domainName)
		if err := domain.ValidateChunkID(id); err != nil {
			return "", false, fmt.Errorf("%w: generated id %q", err, id)
		}
		taken, err := s.deps.Content.Exists(ctx, id)
		if err != nil {
			return "", false, err
		}
		return id, !taken, nil
	}
}

// embed stores the chunk's vector. Failures never fail the write.
func (s *ChunkService) embed(ctx context.Context, c *domain.Chunk, content string) {
	vec, err := s.deps.Embedder.Embed(ctx, embeddingText(c, content))
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			logger.Debug("chunk: embedding skipped for %s: %v", c.ID, err)
		} else {
			logger.Warn("chunk: embed %s: %v", c.ID, err)
		}
		return
	}
	if err := s.deps.Vectors.Add(ctx, c.ID, vec); err != nil {
		logger.Warn("chunk: index vector %s: %v", c.ID, err)
		return
	}
	if err := s.deps.Vectors.Save(ctx); err != nil {
		logger.Warn("chunk: save vector index: %v", err)
	}
}

// track registers the project session for the chunk's day and links the
// chunk to it.
func (s *ChunkService) track(ctx context.Context, c *domain.Chunk, now time.Time) {
	if s.deps.Sessions == nil || c.Project == "" {
		return
	}
	sessionID := sessionIDFor(now.Format(time.DateOnly), c.Project, c.Domain)
	_, _, err := s.deps.Sessions.Register(ctx, domain.Session{
		ID:      sessionID,
		Project: c.Project,
		Path:    s.deps.WorkDir,
		Domain:  c.Domain,
		Ticket:  c.Ticket,
		Started: now,
	})
	if err != nil {
		logger.Warn("chunk: register session %s: %v", sessionID, err)
		return
	}
	if err := s.deps.Sessions.AddChunk(ctx, sessionID, c.ID); err != nil {
		logger.Warn("chunk: link %s to session %s: %v", c.ID, sessionID, err)
	}
}

// embeddingText enriches the body with tags and summary.
func embeddingText(c *domain.Chunk, content string) string {
	text := content
	if c.Summary != "" {
		text = c.Summary + "\n" + text
	}
	if c.Tags.Len() > 0 {
		text = c.Tags.Join(", ") + "\n" + text
	}
	return text
}

// Peek reads body lines [start, end) of a chunk.
func (s *ChunkService) Peek(ctx context.Context, id string, start, end int) (*driving.PeekResult, error) {
	if err := domain.ValidateChunkID(id); err != nil {
		return nil, fmt.Errorf("%w: %q", err, id)
	}

	restored := false
	exists, err := s.deps.Content.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		archived, err := s.deps.Retention.IsArchived(ctx, id)
		if err != nil {
			return nil, err
		}
		if !archived {
			return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
		}
		if _, err := s.deps.Retention.Restore(ctx, id); err != nil {
			return nil, fmt.Errorf("restore %s from archive: %w", id, err)
		}
		restored = true
		logger.Info("Chunk %s restored from archive", id)
	}

	data, err := s.deps.Content.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", id, err)
	}
	lines := bodyLines(stripFrontMatter(data))
	total := len(lines)

	start = max(start, 0)
	if end <= 0 || end > total {
		end = total
	}
	if start > end {
		start = end
	}

	_, err = s.deps.Chunks.Update(ctx, id, func(c *domain.Chunk) error {
		c.AccessCount++
		c.LastAccessed = s.now()
		return nil
	})
	if err != nil {
		logger.Warn("chunk: record access %s: %v", id, err)
	}

	return &driving.PeekResult{
		ID:         id,
		Content:    strings.Join(lines[start:end], ""),
		Start:      start,
		End:        end,
		TotalLines: total,
		Restored:   restored,
	}, nil
}

// Grep scans active chunk bodies line by line.
func (s *ChunkService) Grep(ctx context.Context, req driving.GrepRequest) (*driving.GrepResult, error) {
	if strings.TrimSpace(req.Pattern) == "" {
		return nil, fmt.Errorf("%w: pattern is required", domain.ErrInvalidInput)
	}
	if req.Limit <= 0 {
		req.Limit = DefaultGrepLimit
	}
	if req.Threshold == 0 {
		req.Threshold = DefaultFuzzyThreshold
	}
	if req.Threshold < 0 || req.Threshold > 100 {
		return nil, fmt.Errorf("%w: fuzzy threshold must be within 0..100", domain.ErrInvalidInput)
	}
	ids, err := compileIDGlob(req.IDGlob)
	if err != nil {
		return nil, err
	}

	chunks, err := s.deps.Chunks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	result := &driving.GrepResult{Pattern: req.Pattern, Fuzzy: req.Fuzzy, Matches: []driving.GrepMatch{}}
	if req.Fuzzy {
		result.Threshold = req.Threshold
		result.Matcher = s.deps.Fuzzy.Name()
		result.Matches = s.grepFuzzy(ctx, chunks, req, ids)
		return result, nil
	}

	re, err := regexp.Compile("(?i)" + req.Pattern)
	if err != nil {
		logger.Debug("grep: invalid regex %q, matching literally: %v", req.Pattern, err)
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(req.Pattern))
	}
	contextLines := max(req.Context, 0)

	for i := range chunks {
		c := &chunks[i]
		lines, ok := s.scanTarget(ctx, c, req.Filters, ids)
		if !ok {
			continue
		}
		for n, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			from := max(0, n-contextLines)
			to := min(len(lines), n+contextLines+1)
			result.Matches = append(result.Matches, driving.GrepMatch{
				ChunkID:      c.ID,
				ChunkSummary: c.Summary,
				LineNumber:   n + 1,
				Context:      strings.TrimSpace(strings.Join(lines[from:to], "")),
			})
			if len(result.Matches) >= req.Limit {
				return result, nil
			}
		}
	}
	return result, nil
}

func (s *ChunkService) grepFuzzy(
	ctx context.Context, chunks []domain.Chunk, req driving.GrepRequest, ids idMatcher,
) []driving.GrepMatch {
	pattern := strings.ToLower(req.Pattern)
	matches := []driving.GrepMatch{}

	for i := range chunks {
		c := &chunks[i]
		lines, ok := s.scanTarget(ctx, c, req.Filters, ids)
		if !ok {
			continue
		}
		for n, line := range lines {
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			score := s.deps.Fuzzy.Score(pattern, strings.ToLower(text))
			if score < req.Threshold || score == 0 {
				continue
			}
			matches = append(matches, driving.GrepMatch{
				ChunkID:      c.ID,
				ChunkSummary: c.Summary,
				LineNumber:   n + 1,
				Context:      truncateRunes(text, fuzzyContextLength),
				Score:        score,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > req.Limit {
		matches = matches[:req.Limit]
	}
	return matches
}

// scanTarget applies the filters and returns the body lines of c.
func (s *ChunkService) scanTarget(
	ctx context.Context, c *domain.Chunk, filters domain.SearchFilters, ids idMatcher,
) ([]string, bool) {
	if !ids.Match(c.ID) || !filters.Match(c) {
		return nil, false
	}
	data, err := s.deps.Content.Read(ctx, c.ID)
	if err != nil {
		logger.Debug("grep: read %s: %v", c.ID, err)
		return nil, false
	}
	return bodyLines(stripFrontMatter(data)), true
}

// List returns active chunks, newest first.
func (s *ChunkService) List(ctx context.Context, req driving.ListRequest) (*driving.ChunkListing, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	ids, err := compileIDGlob(req.IDGlob)
	if err != nil {
		return nil, err
	}

	chunks, err := s.deps.Chunks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	listing := &driving.ChunkListing{Chunks: make([]domain.Chunk, 0, min(limit, len(chunks)))}
	for i := range chunks {
		listing.TotalChunks++
		listing.TotalTokens += chunks[i].TokensEstimate
		if len(listing.Chunks) < limit && ids.Match(chunks[i].ID) {
			listing.Chunks = append(listing.Chunks, chunks[i])
		}
	}
	return listing, nil
}

// bodyLines splits text into lines that keep their terminators, so joining
// a range reproduces the original bytes. A trailing newline does not start
// an extra empty line.
func bodyLines(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// validateIDSegment checks a label that becomes part of a chunk ID.
func validateIDSegment(name, value string) error {
	if value == "" {
		return nil
	}
	if strings.Contains(value, "_") || domain.ValidateChunkID(value) != nil {
		return fmt.Errorf("%w: %s %q may only contain letters, digits, '.', '&' and '-'",
			domain.ErrInvalidInput, name, value)
	}
	return nil
}
