package services

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

// idMatcher filters chunk IDs by glob. The zero value matches everything.
type idMatcher struct {
	g glob.Glob
}

// compileIDGlob parses pattern; an empty pattern matches every ID.
// Only '*', '?', character classes and {a,b} alternatives are special.
func compileIDGlob(pattern string) (idMatcher, error) {
	if pattern == "" {
		return idMatcher{}, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return idMatcher{}, fmt.Errorf("%w: id glob %q: %v", domain.ErrInvalidInput, pattern, err)
	}
	return idMatcher{g: g}, nil
}

// Match reports whether id passes the filter.
func (m idMatcher) Match(id string) bool {
	return m.g == nil || m.g.Match(id)
}
