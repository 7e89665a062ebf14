package memory

import (
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// The default semantic index embeds text with hashed character trigrams plus
// hashed word tokens. Deterministic, dependency free, and good enough to
// rank short memory texts; a real embedding model can replace the index
// wholesale through the SemanticIndex interface.

const embeddingDims = 256

var wordPattern = regexp.MustCompile(`[a-z0-9_\-]+`)

func embedWords(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

func embedText(text string) []float32 {
	vec := make([]float32, embeddingDims)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vec
	}
	padded := "#" + normalized + "#"
	for i := 0; i+3 <= len(padded); i++ {
		h := fnv.New64a()
		_, _ = h.Write([]byte(padded[i : i+3]))
		vec[int(h.Sum64()%embeddingDims)] += 1
	}
	for _, word := range embedWords(normalized) {
		h := fnv.New64a()
		_, _ = h.Write([]byte("w:" + word))
		vec[int(h.Sum64()%embeddingDims)] += 1.5
	}
	normalizeVector(vec)
	return vec
}

func normalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	inv := float32(1 / norm)
	for i := range vec {
		vec[i] *= inv
	}
}

// cosineSimilarity over unit vectors reduces to a dot product.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i] * b[i])
	}
	return dot
}
