package services

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

const (
	summaryMaxLength = 100
	emptySummary     = "Empty content"

	// maxEntities caps the entities kept per chunk across all kinds.
	maxEntities = 50
)

// autoSummary returns the first non-empty line of content with any
// markdown heading marker removed, truncated to 100 characters.
func autoSummary(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
		if utf8.RuneCountInString(line) > summaryMaxLength {
			runes := []rune(line)
			return string(runes[:summaryMaxLength-3]) + "..."
		}
		return line
	}
	return emptySummary
}

var (
	fileEntityPattern = regexp.MustCompile(
		"(?m)(?:^|[\\s`\"'(,;|])(" +
			`(?:[\w./\\-]+/)?` +
			`[\w.-]+` +
			`\.(?:py|js|ts|jsx|tsx|go|md|xml|json|css|html|yml|yaml|toml|cfg|conf|sh|sql|csv)` +
			")(?:[\\s`\"'),:;|]|$)")

	versionEntityPattern = regexp.MustCompile(
		"(?m)(?:^|[\\s`\"'(,;|v])" +
			`(v?\d+\.\d+\.\d+(?:\.\d+)*)` +
			"(?:[\\s`\"'),:;|]|$)")

	dottedDatePattern = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

	moduleEntityPattern = regexp.MustCompile(
		`(?i)(?:pip\s+install|import|from|module|package|install)` +
			`(?:\s+(?:module|package))?` +
			`\s+([a-z][a-z0-9_]+(?:\.[a-z][a-z0-9_]+)*)`)

	ticketEntityPattern   = regexp.MustCompile(`\b([A-Z]{2,}-\d+)\b`)
	functionEntityPattern = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\(\)`)
)

// moduleStopwords are words the module pattern picks up after a keyword
// that never name a module.
var moduleStopwords = map[string]struct{}{
	"the": {}, "for": {}, "and": {}, "not": {}, "all": {}, "module": {},
	"install": {}, "package": {}, "import": {}, "from": {}, "pip": {},
	"with": {}, "this": {}, "that": {},
}

// extractEntities pulls file names, versions, modules, tickets and
// function names out of content. Each kind is sorted and deduplicated; at
// most maxEntities are kept, filling kinds in that order.
func extractEntities(content string) domain.Entities {
	if strings.TrimSpace(content) == "" {
		return domain.Entities{}
	}

	files := map[string]struct{}{}
	for _, m := range fileEntityPattern.FindAllStringSubmatch(content, -1) {
		files[m[1]] = struct{}{}
	}

	versions := map[string]struct{}{}
	for _, m := range versionEntityPattern.FindAllStringSubmatch(content, -1) {
		if dottedDatePattern.MatchString(m[1]) {
			continue
		}
		versions[m[1]] = struct{}{}
	}

	modules := map[string]struct{}{}
	for _, m := range moduleEntityPattern.FindAllStringSubmatch(content, -1) {
		mod := strings.ToLower(m[1])
		if _, skip := moduleStopwords[mod]; len(mod) > 2 && !skip {
			modules[mod] = struct{}{}
		}
	}

	tickets := map[string]struct{}{}
	for _, m := range ticketEntityPattern.FindAllStringSubmatch(content, -1) {
		tickets[m[1]] = struct{}{}
	}

	functions := map[string]struct{}{}
	for _, m := range functionEntityPattern.FindAllStringSubmatch(content, -1) {
		fn := m[1]
		if len(fn) > 1 && fn != "if" && fn != "for" && fn != "in" {
			functions[fn+"()"] = struct{}{}
		}
	}

	budget := maxEntities
	take := func(set map[string]struct{}) []string {
		if budget <= 0 || len(set) == 0 {
			return nil
		}
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		slices.Sort(vals)
		if len(vals) > budget {
			vals = vals[:budget]
		}
		budget -= len(vals)
		return vals
	}

	return domain.Entities{
		Files:     take(files),
		Versions:  take(versions),
		Modules:   take(modules),
		Tickets:   take(tickets),
		Functions: take(functions),
	}
}
