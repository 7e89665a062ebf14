package textsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeLowercasesAndCollapses(t *testing.T) {
	set := Tokenize("The cat the CAT sat")
	assert.Len(t, set, 3)
	_, ok := set["the"]
	assert.True(t, ok)
	_, ok = set["cat"]
	assert.True(t, ok)
	_, ok = set["sat"]
	assert.True(t, ok)
}

func TestTokenizeSplitsOnSpaceOnly(t *testing.T) {
	// Tab and newline separated words stay glued together.
	set := Tokenize("alpha\tbeta gamma\ndelta")
	assert.Len(t, set, 2)
	_, ok := set["alpha\tbeta"]
	assert.True(t, ok)
	_, ok = set["gamma\ndelta"]
	assert.True(t, ok)
}

func TestTokenizeDropsEmptyTokens(t *testing.T) {
	set := Tokenize("  a   b ")
	assert.Len(t, set, 2)
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "cat sat mat", "cat sat mat", 1.0},
		{"disjoint", "cat sat", "dog ran", 0.0},
		{"both empty", "", "", 0.0},
		{"one empty", "cat", "", 0.0},
		{"half overlap", "a b", "b c", 1.0 / 3.0},
		{"case insensitive", "Cat SAT", "cat sat", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.a, tt.b), 1e-9)
		})
	}
}

func TestJaccardSetsMatchesJaccard(t *testing.T) {
	a, b := "cat sat on the mat", "the dog sat outside"
	got := JaccardSets(Tokenize(a), Tokenize(b))
	assert.InDelta(t, Jaccard(a, b), got, 1e-9)
}

func TestJaccardSymmetry(t *testing.T) {
	a, b := "one two three four", "three four five"
	assert.InDelta(t, Jaccard(a, b), Jaccard(b, a), 1e-9)
}
