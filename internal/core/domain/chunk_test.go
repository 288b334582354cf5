package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkType_IsValid(t *testing.T) {
	for _, ct := range ValidChunkTypes() {
		assert.True(t, ct.IsValid(), ct)
	}
	assert.False(t, ChunkTypeInsight.IsValid())
	assert.False(t, ChunkType("note").IsValid())
}

func TestEntities_Matches(t *testing.T) {
	e := Entities{
		Files:     []string{"mcp_server/tools/search.py"},
		Versions:  []string{"v19.0.2"},
		Functions: []string{"tokenize_fr()"},
	}

	assert.Equal(t, 3, e.Count())
	assert.True(t, e.Matches("search.py"))
	assert.True(t, e.Matches("V19"))
	assert.True(t, e.Matches("TOKENIZE"))
	assert.False(t, e.Matches("retention"))
	assert.False(t, Entities{}.Matches("x"))
}

func TestEntities_AllOrder(t *testing.T) {
	e := Entities{
		Functions: []string{"f()"},
		Files:     []string{"a.go"},
		Tickets:   []string{"JJ-1"},
	}

	assert.Equal(t, []string{"a.go", "JJ-1", "f()"}, e.All())
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("Hello   World\n\tagain")
	b := Fingerprint("hello world again")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Fingerprint("hello world"))
}
