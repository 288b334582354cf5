package driven

import "context"

// FuzzyMatcher scores approximate matches of a pattern inside a line.
type FuzzyMatcher interface {
	// Score returns 0..100; 0 means no match.
	Score(pattern, line string) int

	// Name identifies the implementation ("sahilm" or "substring").
	Name() string
}

// TokenCounter estimates the LLM token count of a text.
type TokenCounter interface {
	Count(text string) int
}

// ProjectDetector names the project new chunks belong to by default.
type ProjectDetector interface {
	// Detect never fails; it falls back to a generic name.
	Detect(ctx context.Context) string
}

// ChangeWatcher reports changes made to the chunk store by other processes.
type ChangeWatcher interface {
	// Watch calls onChange after each burst of changes until ctx is done.
	Watch(ctx context.Context, onChange func()) error
}
