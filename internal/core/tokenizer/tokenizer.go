// Package tokenizer turns free text into the normalized terms used by the
// lexical ranker and by insight recall.
//
// Text is lowercased, accents are folded (réaliste becomes realiste),
// hyphenated runs are split into their parts, and terms shorter than two
// characters are dropped. French and English stopwords are removed unless
// the caller asks to keep them.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTermLength is the shortest term kept.
const MinTermLength = 2

var termPattern = regexp.MustCompile(`[a-z0-9]+(?:-[a-z0-9]+)*`)

// FoldAccents strips combining marks after canonical decomposition.
// A transform.Transformer carries state, so a fresh chain is built per call.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lowercases s and folds its accents.
func Normalize(s string) string {
	return FoldAccents(strings.ToLower(s))
}

// Tokenize returns the terms of text in order of appearance, duplicates
// included. Empty or whitespace-only input yields an empty slice.
func Tokenize(text string, removeStopwords bool) []string {
	terms := []string{}
	if strings.TrimSpace(text) == "" {
		return terms
	}

	for _, run := range termPattern.FindAllString(Normalize(text), -1) {
		for _, part := range strings.Split(run, "-") {
			if len(part) < MinTermLength {
				continue
			}
			if removeStopwords && IsStopword(part) {
				continue
			}
			terms = append(terms, part)
		}
	}
	return terms
}

// Terms is Tokenize with stopword removal, the form every ranker uses.
func Terms(text string) []string {
	return Tokenize(text, true)
}
