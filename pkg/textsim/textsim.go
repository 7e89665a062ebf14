// Package textsim provides cheap lexical similarity helpers used by the
// retrieval reranker to score textual redundancy.
package textsim

import "strings"

// Tokenize lowercases text and splits it on the space character into a set.
// Splitting on ' ' only (not full whitespace) keeps this hot path allocation
// light; tab/newline separated text under-tokenizes, which is acceptable for
// redundancy scoring.
func Tokenize(text string) map[string]struct{} {
	parts := strings.Split(strings.ToLower(text), " ")
	set := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}

// Jaccard returns the Jaccard similarity of the token sets of a and b,
// in [0,1]. Two empty inputs score 0.
func Jaccard(a, b string) float64 {
	return JaccardSets(Tokenize(a), Tokenize(b))
}

// JaccardSets computes Jaccard similarity over pre-tokenized sets. Callers
// that compare one text against many candidates should tokenize once and use
// this form.
func JaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
