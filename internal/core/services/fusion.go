package services

import (
	"sort"

	"github.com/custodia-labs/rlm/internal/core/bm25"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

// scoredDoc holds an intermediate ranking entry before hydration.
type scoredDoc struct {
	id     string
	score  float64
	source string // "bm25", "semantic" or "hybrid"
}

// normalizeMinMax rescales BM25 scores into [0,1]. When every score is
// equal, each one becomes 1.0.
func normalizeMinMax(results []bm25.Result) []scoredDoc {
	out := make([]scoredDoc, len(results))
	if len(results) == 0 {
		return out
	}

	lo, hi := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		lo = min(lo, r.Score)
		hi = max(hi, r.Score)
	}
	span := hi - lo

	for i, r := range results {
		norm := 1.0
		if span > 0 {
			norm = (r.Score - lo) / span
		}
		out[i] = scoredDoc{id: r.ID, score: norm, source: "bm25"}
	}
	return out
}

// fuse merges lexical and semantic rankings with
// fused = (1-alpha)*bm25_norm + alpha*semantic, a missing side counting 0.
// A nil semantic slice means semantic search was unavailable and the
// normalized lexical ranking is returned unchanged. When the lexical side
// is empty the semantic hits are returned as they are.
func fuse(lexical []bm25.Result, semantic []driven.VectorHit, alpha float64) []scoredDoc {
	norm := normalizeMinMax(lexical)
	if semantic == nil {
		return norm
	}

	if len(lexical) == 0 {
		out := make([]scoredDoc, len(semantic))
		for i, hit := range semantic {
			out[i] = scoredDoc{id: hit.ID, score: hit.Similarity, source: "semantic"}
		}
		return out
	}

	sem := make(map[string]float64, len(semantic))
	for _, hit := range semantic {
		sem[hit.ID] = hit.Similarity
	}

	// Union in lexical order, then semantic-only ids in their own order,
	// so the stable sort breaks ties deterministically.
	out := make([]scoredDoc, 0, len(norm)+len(semantic))
	seen := make(map[string]struct{}, len(norm))
	for _, d := range norm {
		seen[d.id] = struct{}{}
		out = append(out, scoredDoc{
			id:     d.id,
			score:  (1-alpha)*d.score + alpha*sem[d.id],
			source: "hybrid",
		})
	}
	for _, hit := range semantic {
		if _, ok := seen[hit.ID]; ok {
			continue
		}
		out = append(out, scoredDoc{id: hit.ID, score: alpha * hit.Similarity, source: "hybrid"})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}
