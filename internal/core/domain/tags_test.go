package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTagSet_DedupesIgnoringCase(t *testing.T) {
	tags := NewTagSet("Odoo", " deploy ", "odoo", "", "VPS")

	assert.Equal(t, []string{"Odoo", "deploy", "VPS"}, tags.Slice())
	assert.Equal(t, 3, tags.Len())
	assert.True(t, tags.Has("ODOO"))
	assert.False(t, tags.Has("seo"))
}

func TestParseTagList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseTagList("a, b,,c ").Slice())
	assert.Equal(t, 0, ParseTagList("   ").Len())
}

func TestTagSet_AddRemove(t *testing.T) {
	var tags TagSet

	assert.True(t, tags.Add("keep"))
	assert.False(t, tags.Add("KEEP"))
	assert.True(t, tags.Remove("Keep"))
	assert.False(t, tags.Remove("keep"))
	assert.Equal(t, []string{}, tags.Slice())
}

func TestTagSet_Intersects(t *testing.T) {
	protected := NewTagSet("critical", "decision")

	assert.True(t, NewTagSet("misc", "CRITICAL").Intersects(protected))
	assert.False(t, NewTagSet("misc").Intersects(protected))
	assert.False(t, TagSet{}.Intersects(protected))
}

func TestTagSet_SliceIsCopy(t *testing.T) {
	tags := NewTagSet("a", "b")
	s := tags.Slice()
	s[0] = "mutated"

	assert.Equal(t, "a", tags.Slice()[0])
}

func TestTagSet_JSON(t *testing.T) {
	data, err := json.Marshal(NewTagSet("x", "y"))
	require.NoError(t, err)
	assert.JSONEq(t, `["x","y"]`, string(data))

	var decoded TagSet
	require.NoError(t, json.Unmarshal([]byte(`["x","X","z"]`), &decoded))
	assert.Equal(t, []string{"x", "z"}, decoded.Slice())
}
