package driving

import "context"

// BackfillService embeds chunks that have no stored vector.
type BackfillService interface {
	// Run embeds missing vectors, or every vector when force is set.
	Run(ctx context.Context, force bool) (*BackfillReport, error)
}

// BackfillReport counts the outcome of a backfill run.
type BackfillReport struct {
	Embedded int `json:"embedded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
