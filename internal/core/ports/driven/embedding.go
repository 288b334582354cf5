package driven

import "context"

// EmbeddingService turns text into dense vectors. It is the single
// embedding abstraction: ollama, openai and the null provider all
// implement it, and the bbolt cache wraps any of them.
//
// Every vector returned by one service has Dimensions() elements. The
// vector index is sized from Dimensions() at startup and rejects vectors
// of any other length, so switching model means rebuilding the index.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping makes a cheap request so a misconfigured provider is found at
	// startup rather than on the first search.
	Ping(ctx context.Context) error

	Close() error
}
