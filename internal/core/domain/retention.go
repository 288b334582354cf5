package domain

import (
	"strings"
	"time"
)

// Day is the unit retention thresholds are expressed in.
const Day = 24 * time.Hour

// RetentionPolicy holds the thresholds and protection rules of the
// retention lifecycle.
type RetentionPolicy struct {
	// ArchiveAfter is the minimum age of an unread active chunk before it
	// is archived.
	ArchiveAfter time.Duration

	// PurgeAfter is the minimum time in the archive before a chunk is purged.
	PurgeAfter time.Duration

	// MinAccessForImmunity is the read count that protects a chunk.
	MinAccessForImmunity int

	// ProtectedTags protect any chunk carrying one of them.
	ProtectedTags TagSet

	// ProtectedKeywords protect any chunk whose body contains one of them.
	ProtectedKeywords []string
}

// DefaultRetentionPolicy returns the standard retention rules.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		ArchiveAfter:         30 * Day,
		PurgeAfter:           180 * Day,
		MinAccessForImmunity: 3,
		ProtectedTags:        NewTagSet("critical", "decision", "keep", "important"),
		ProtectedKeywords:    []string{"DECISION:", "IMPORTANT:", "A RETENIR:", "CRITICAL:"},
	}
}

// ImmuneByMetadata reports whether tags or access count alone protect c.
func (p RetentionPolicy) ImmuneByMetadata(c *Chunk) bool {
	if c.Tags.Intersects(p.ProtectedTags) {
		return true
	}
	return c.AccessCount >= p.MinAccessForImmunity
}

// ImmuneByContent reports whether body contains a protected keyword,
// ignoring case.
func (p RetentionPolicy) ImmuneByContent(body []byte) bool {
	upper := strings.ToUpper(string(body))
	for _, kw := range p.ProtectedKeywords {
		if kw != "" && strings.Contains(upper, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

// ArchiveCandidate is an active chunk eligible for archiving.
type ArchiveCandidate struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	AccessCount int       `json:"access_count"`
	Tags        TagSet    `json:"tags,omitempty"`
}

// PurgeCandidate is an archived chunk eligible for purging.
type PurgeCandidate struct {
	ID         string    `json:"id"`
	Summary    string    `json:"summary,omitempty"`
	ArchivedAt time.Time `json:"archived_at"`
}

// RetentionPreview lists what a retention run would do.
type RetentionPreview struct {
	ArchiveCandidates []ArchiveCandidate `json:"archive_candidates"`
	PurgeCandidates   []PurgeCandidate   `json:"purge_candidates"`
}

// ArchiveResult describes one completed archive transition.
type ArchiveResult struct {
	ID             string `json:"id"`
	OriginalSize   int64  `json:"original_size"`
	CompressedSize int64  `json:"compressed_size"`
}

// CompressionRatio returns the percentage of bytes saved.
func (r ArchiveResult) CompressionRatio() float64 {
	return compressionRatio(r.OriginalSize, r.CompressedSize)
}

// RetentionReport collects the outcome of a retention run. Errors are
// formatted "id: message", one per failed chunk.
type RetentionReport struct {
	Archived []string `json:"archived"`
	Purged   []string `json:"purged"`
	Errors   []string `json:"errors,omitempty"`
}

// ArchiveStats summarises the archive tier.
type ArchiveStats struct {
	Count               int   `json:"count"`
	TotalOriginalSize   int64 `json:"total_original_size"`
	TotalCompressedSize int64 `json:"total_compressed_size"`
}

// CompressionRatio returns the percentage of bytes saved across the archive
// and false when the archive is empty.
func (s ArchiveStats) CompressionRatio() (float64, bool) {
	if s.TotalOriginalSize <= 0 {
		return 0, false
	}
	return compressionRatio(s.TotalOriginalSize, s.TotalCompressedSize), true
}
