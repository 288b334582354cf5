package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetentionPolicy(t *testing.T) {
	p := DefaultRetentionPolicy()

	assert.Equal(t, 30*Day, p.ArchiveAfter)
	assert.Equal(t, 180*Day, p.PurgeAfter)
	assert.Equal(t, 3, p.MinAccessForImmunity)
	assert.ElementsMatch(t, []string{"critical", "decision", "keep", "important"}, p.ProtectedTags.Slice())
	assert.Contains(t, p.ProtectedKeywords, "A RETENIR:")
}

func TestRetentionPolicy_ImmuneByMetadata(t *testing.T) {
	p := DefaultRetentionPolicy()

	assert.True(t, p.ImmuneByMetadata(&Chunk{Tags: NewTagSet("Critical")}))
	assert.True(t, p.ImmuneByMetadata(&Chunk{AccessCount: 3}))
	assert.False(t, p.ImmuneByMetadata(&Chunk{AccessCount: 2, Tags: NewTagSet("misc")}))
}

func TestRetentionPolicy_ImmuneByContent(t *testing.T) {
	p := DefaultRetentionPolicy()

	assert.True(t, p.ImmuneByContent([]byte("notes\ndecision: use sqlite")))
	assert.True(t, p.ImmuneByContent([]byte("À retenir: non, mais A retenir: oui")))
	assert.False(t, p.ImmuneByContent([]byte("we decided nothing")))
	assert.False(t, p.ImmuneByContent(nil))
}

func TestArchiveStats_CompressionRatio(t *testing.T) {
	_, ok := ArchiveStats{}.CompressionRatio()
	assert.False(t, ok)

	ratio, ok := ArchiveStats{Count: 1, TotalOriginalSize: 1000, TotalCompressedSize: 250}.CompressionRatio()
	assert.True(t, ok)
	assert.InDelta(t, 75.0, ratio, 1e-9)
}

func TestArchivedChunk_Active(t *testing.T) {
	archived := ArchivedChunk{
		Chunk:          Chunk{ID: "a", Tier: TierArchived, Summary: "s"},
		ArchivedAt:     time.Now(),
		OriginalSize:   10,
		CompressedSize: 5,
	}

	active := archived.Active()
	assert.Equal(t, TierActive, active.Tier)
	assert.Equal(t, "s", active.Summary)
	assert.InDelta(t, 50.0, archived.CompressionRatio(), 1e-9)
}
