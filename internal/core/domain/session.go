package domain

import "time"

// Session groups chunks written in the same working context.
type Session struct {
	ID      string    `json:"id"`
	Project string    `json:"project,omitempty"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Ticket  string    `json:"ticket,omitempty"`
	Started time.Time `json:"started"`
	Chunks  []string  `json:"chunks,omitempty"`
	Tags    TagSet    `json:"tags,omitempty"`
}

// DomainSuggestion is one entry of the suggested domain list.
type DomainSuggestion struct {
	Name     string
	Category string
}

// DefaultDomains returns the built-in suggested domains, keyed by category.
func DefaultDomains() map[string][]string {
	return map[string][]string{
		"default": {
			"dev", "research", "planning", "debug", "test", "docs", "review",
			"deploy", "feature", "bugfix", "refactor", "meeting", "decision",
		},
	}
}
