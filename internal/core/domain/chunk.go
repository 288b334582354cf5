package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Size limits for stored content.
const (
	// MaxChunkContentSize is the largest chunk body accepted on write.
	MaxChunkContentSize = 2 * 1024 * 1024

	// MaxDecompressedSize caps how far an archive may inflate on restore.
	MaxDecompressedSize = 10 * 1024 * 1024

	// ChunkFormatVersion is written to every new chunk record.
	ChunkFormatVersion = "2.0"
)

// Tier is the retention storage state of a chunk.
type Tier string

// Storage tiers.
const (
	TierActive   Tier = "active"
	TierArchived Tier = "archived"
	TierPurged   Tier = "purged"
)

// String returns the string representation.
func (t Tier) String() string {
	return string(t)
}

// ChunkType classifies what a chunk holds.
type ChunkType string

// Chunk types. ChunkTypeInsight is never stored: it redirects to insights.
const (
	ChunkTypeSnapshot ChunkType = "snapshot"
	ChunkTypeSession  ChunkType = "session"
	ChunkTypeDebug    ChunkType = "debug"
	ChunkTypeInsight  ChunkType = "insight"
)

// IsValid returns true for the types a chunk may be stored as.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeSnapshot, ChunkTypeSession, ChunkTypeDebug:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ChunkType) String() string {
	return string(t)
}

// ValidChunkTypes lists the storable chunk types.
func ValidChunkTypes() []ChunkType {
	return []ChunkType{ChunkTypeSnapshot, ChunkTypeSession, ChunkTypeDebug}
}

// Entities are the named references extracted from a chunk body.
type Entities struct {
	Files     []string `json:"files,omitempty" yaml:"files,omitempty"`
	Versions  []string `json:"versions,omitempty" yaml:"versions,omitempty"`
	Modules   []string `json:"modules,omitempty" yaml:"modules,omitempty"`
	Tickets   []string `json:"tickets,omitempty" yaml:"tickets,omitempty"`
	Functions []string `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// All returns every entity, grouped in a fixed kind order.
func (e Entities) All() []string {
	out := make([]string, 0, e.Count())
	out = append(out, e.Files...)
	out = append(out, e.Versions...)
	out = append(out, e.Modules...)
	out = append(out, e.Tickets...)
	out = append(out, e.Functions...)
	return out
}

// Count returns the total number of entities.
func (e Entities) Count() int {
	return len(e.Files) + len(e.Versions) + len(e.Modules) + len(e.Tickets) + len(e.Functions)
}

// Matches reports whether any entity contains needle, ignoring case.
func (e Entities) Matches(needle string) bool {
	needle = strings.ToLower(needle)
	for _, v := range e.All() {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// Chunk is the metadata record of a stored chunk. The body lives in the
// content store under the same ID.
type Chunk struct {
	// ID is the chunk identifier, also its content file name.
	ID string `json:"id"`

	// Summary is a one-line description of the content.
	Summary string `json:"summary,omitempty"`

	// Tags are the user-supplied keywords.
	Tags TagSet `json:"tags,omitempty"`

	// Type classifies the chunk.
	Type ChunkType `json:"type"`

	// Project, Ticket and Domain are optional organisation labels.
	Project string `json:"project,omitempty"`
	Ticket  string `json:"ticket,omitempty"`
	Domain  string `json:"domain,omitempty"`

	// Entities are extracted from the body at creation time.
	Entities Entities `json:"entities,omitempty"`

	// Fingerprint is the hash of the normalised content.
	Fingerprint string `json:"fingerprint"`

	// TokensEstimate approximates the size of the body in model tokens.
	TokensEstimate int `json:"tokens_estimate"`

	// CreatedAt is when the chunk was written.
	CreatedAt time.Time `json:"created_at"`

	// LastAccessed is the time of the last read; zero if never read.
	LastAccessed time.Time `json:"last_accessed"`

	// AccessCount is the number of reads.
	AccessCount int `json:"access_count"`

	// Tier is the current retention tier.
	Tier Tier `json:"tier"`

	// FormatVersion is the record layout version.
	FormatVersion string `json:"format_version"`
}

// Date returns the chunk's calendar date as YYYY-MM-DD. It prefers
// CreatedAt and falls back to the date prefix of the ID. The second
// return value is false when neither is usable.
func (c *Chunk) Date() (string, bool) {
	if !c.CreatedAt.IsZero() {
		return c.CreatedAt.Format(time.DateOnly), true
	}
	if len(c.ID) >= 10 && c.ID[4] == '-' && c.ID[7] == '-' {
		return c.ID[:10], true
	}
	return "", false
}

// ArchivedChunk is the archive index entry of a chunk: the full metadata
// copy taken at archive time plus archive-only fields.
type ArchivedChunk struct {
	Chunk

	// ArchivedAt is when the chunk entered the archive.
	ArchivedAt time.Time `json:"archived_at"`

	// OriginalSize and CompressedSize are byte counts of the content file
	// before and after compression.
	OriginalSize   int64 `json:"original_size"`
	CompressedSize int64 `json:"compressed_size"`
}

// CompressionRatio returns the percentage of bytes saved.
func (a *ArchivedChunk) CompressionRatio() float64 {
	return compressionRatio(a.OriginalSize, a.CompressedSize)
}

// Active returns the chunk metadata with the archive-only fields removed.
func (a *ArchivedChunk) Active() Chunk {
	c := a.Chunk
	c.Tier = TierActive
	return c
}

// PurgeRecord is the audit entry left behind by a purged chunk.
// It never carries the chunk body.
type PurgeRecord struct {
	ID         string    `json:"id"`
	PurgedAt   time.Time `json:"purged_at"`
	Summary    string    `json:"summary,omitempty"`
	Tags       TagSet    `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ArchivedAt time.Time `json:"archived_at"`
}

func compressionRatio(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	return (1 - float64(compressed)/float64(original)) * 100
}

// Fingerprint hashes content after lowercasing it and collapsing every run
// of whitespace, so trivially reformatted copies collide.
func Fingerprint(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
