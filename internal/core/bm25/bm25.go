// Package bm25 is an in-memory Okapi BM25 ranker.
//
// An Index is built once over a corpus of pre-tokenized documents and is
// immutable afterwards, so it is safe to share between goroutines. Rebuilding
// is the caller's job (see services.CorpusIndex).
package bm25

import (
	"math"
	"sort"
)

// Default parameters, matching the Lucene flavour of BM25.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Document is one entry of the corpus.
type Document struct {
	ID    string
	Terms []string
}

// Result is a scored document.
type Result struct {
	ID    string
	Score float64
}

// Option configures Build.
type Option func(*Index)

// WithParams overrides k1 and b.
func WithParams(k1, b float64) Option {
	return func(ix *Index) {
		ix.k1 = k1
		ix.b = b
	}
}

type posting struct {
	id     string
	tf     map[string]int
	length int
}

// Index holds term statistics for a corpus.
type Index struct {
	k1, b  float64
	docs   []posting
	df     map[string]int
	avgLen float64
}

// Build indexes docs in order. Documents without terms are skipped.
func Build(docs []Document, opts ...Option) *Index {
	ix := &Index{
		k1: DefaultK1,
		b:  DefaultB,
		df: make(map[string]int),
	}
	for _, opt := range opts {
		opt(ix)
	}

	total := 0
	for _, d := range docs {
		if len(d.Terms) == 0 {
			continue
		}
		tf := make(map[string]int, len(d.Terms))
		for _, term := range d.Terms {
			tf[term]++
		}
		for term := range tf {
			ix.df[term]++
		}
		ix.docs = append(ix.docs, posting{id: d.ID, tf: tf, length: len(d.Terms)})
		total += len(d.Terms)
	}
	if len(ix.docs) > 0 {
		ix.avgLen = float64(total) / float64(len(ix.docs))
	}
	return ix
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// IDF returns the inverse document frequency of term, or 0 for an unknown
// term.
func (ix *Index) IDF(term string) float64 {
	df, ok := ix.df[term]
	if !ok {
		return 0
	}
	n := float64(len(ix.docs))
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

// Score ranks every document against the query terms and returns at most
// topK results with a positive score, best first. Equal scores keep corpus
// order. Repeated query terms count once. topK <= 0 means no limit.
func (ix *Index) Score(query []string, topK int) []Result {
	results := []Result{}
	if len(query) == 0 || len(ix.docs) == 0 {
		return results
	}

	terms := uniqueKnown(query, ix.df)
	if len(terms) == 0 {
		return results
	}

	idf := make(map[string]float64, len(terms))
	for _, term := range terms {
		idf[term] = ix.IDF(term)
	}

	for _, d := range ix.docs {
		norm := ix.k1 * (1 - ix.b + ix.b*float64(d.length)/ix.avgLen)
		score := 0.0
		for _, term := range terms {
			tf := float64(d.tf[term])
			if tf == 0 {
				continue
			}
			score += idf[term] * tf * (ix.k1 + 1) / (tf + norm)
		}
		if score > 0 {
			results = append(results, Result{ID: d.id, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func uniqueKnown(query []string, df map[string]int) []string {
	seen := make(map[string]struct{}, len(query))
	out := make([]string, 0, len(query))
	for _, term := range query {
		if _, ok := df[term]; !ok {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}
