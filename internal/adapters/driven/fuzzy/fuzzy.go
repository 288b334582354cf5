// Package fuzzy provides driven.FuzzyMatcher implementations for grep.
package fuzzy

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

var (
	_ driven.FuzzyMatcher = Matcher{}
	_ driven.FuzzyMatcher = Substring{}
)

// maxScore is a perfect match.
const maxScore = 100

// Matcher scores lines with sahilm/fuzzy subsequence matching. The score is
// the density of the match: pattern length over the span of the matched
// characters, so a contiguous match scores 100 and a scattered one less.
type Matcher struct{}

// Name identifies the implementation.
func (Matcher) Name() string { return "sahilm" }

// Score returns 0..100.
func (Matcher) Score(pattern, line string) int {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return 0
	}
	lower := strings.ToLower(line)
	if strings.Contains(lower, pattern) {
		return maxScore
	}

	matches := fuzzy.Find(pattern, []string{lower})
	if len(matches) == 0 || len(matches[0].MatchedIndexes) == 0 {
		return 0
	}
	idx := matches[0].MatchedIndexes
	span := idx[len(idx)-1] - idx[0] + 1
	if span <= 0 {
		return 0
	}
	score := len([]rune(pattern)) * maxScore / span
	return min(score, maxScore)
}

// Substring is the null matcher: exact case-insensitive containment scores
// 100, anything else 0.
type Substring struct{}

// Name identifies the implementation.
func (Substring) Name() string { return "substring" }

// Score returns 100 or 0.
func (Substring) Score(pattern, line string) int {
	pattern = strings.TrimSpace(pattern)
	if pattern != "" && strings.Contains(strings.ToLower(line), strings.ToLower(pattern)) {
		return maxScore
	}
	return 0
}
