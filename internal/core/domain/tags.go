package domain

import (
	"encoding/json"
	"strings"
)

// TagSet is an insertion-ordered set of tags. Membership is
// case-insensitive; the first spelling of a tag is the one kept.
type TagSet struct {
	tags []string
}

// NewTagSet builds a set from the given tags, trimming blanks and
// dropping duplicates.
func NewTagSet(tags ...string) TagSet {
	var s TagSet
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// ParseTagList splits a comma-separated tag list as typed by a user.
// It exists for the CLI, MCP and HTTP adapters only.
func ParseTagList(raw string) TagSet {
	if strings.TrimSpace(raw) == "" {
		return TagSet{}
	}
	return NewTagSet(strings.Split(raw, ",")...)
}

// Add inserts a tag. It returns false if the tag was blank or present.
func (s *TagSet) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || s.Has(tag) {
		return false
	}
	s.tags = append(s.tags, tag)
	return true
}

// Remove deletes a tag. It returns false if the tag was absent.
func (s *TagSet) Remove(tag string) bool {
	tag = strings.TrimSpace(tag)
	for i, t := range s.tags {
		if strings.EqualFold(t, tag) {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether tag is in the set, ignoring case.
func (s TagSet) Has(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range s.tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Intersects reports whether any tag of other is in s.
func (s TagSet) Intersects(other TagSet) bool {
	for _, t := range other.tags {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Len returns the number of tags.
func (s TagSet) Len() int {
	return len(s.tags)
}

// Slice returns a copy of the tags in insertion order.
func (s TagSet) Slice() []string {
	if len(s.tags) == 0 {
		return []string{}
	}
	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}

// Join concatenates the tags with sep.
func (s TagSet) Join(sep string) string {
	return strings.Join(s.tags, sep)
}

// MarshalJSON encodes the set as a JSON array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes a JSON array into the set.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// MarshalYAML encodes the set as a YAML sequence.
func (s TagSet) MarshalYAML() (any, error) {
	return s.Slice(), nil
}

// UnmarshalYAML decodes a YAML sequence into the set.
func (s *TagSet) UnmarshalYAML(unmarshal func(any) error) error {
	var tags []string
	if err := unmarshal(&tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}
