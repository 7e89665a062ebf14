package memory

import "testing"

func pickTexts(cands []rerankCandidate, picked []int) []string {
	out := make([]string, 0, len(picked))
	for _, idx := range picked {
		out = append(out, cands[idx].text)
	}
	return out
}

func TestMMRFirstPickIsTopScore(t *testing.T) {
	cands := []rerankCandidate{
		{rawScore: 0.2, text: "low scoring text"},
		{rawScore: 0.9, text: "high scoring text"},
		{rawScore: 0.5, text: "middle scoring text"},
	}
	for _, lambda := range []float64{0, 0.25, 0.5, 0.75, 1} {
		picked := mmrSelect(cands, lambda, 2)
		if len(picked) == 0 {
			t.Fatalf("lambda=%v: no picks", lambda)
		}
		if picked[0] != 1 {
			t.Fatalf("lambda=%v: first pick was %d, want top-scoring candidate", lambda, picked[0])
		}
	}
}

func TestMMRPrefersDiversityOverNearDuplicate(t *testing.T) {
	// The duplicate pair has Jaccard 1.0; the dissimilar text scores lower
	// raw than the second duplicate but must still be selected.
	cands := []rerankCandidate{
		{rawScore: 0.95, text: "the quick brown fox jumps over the lazy dog"},
		{rawScore: 0.93, text: "the quick brown fox jumps over the lazy dog"},
		{rawScore: 0.80, text: "completely unrelated sentence about databases"},
	}
	picked := mmrSelect(cands, 0.5, 2)
	if len(picked) != 2 {
		t.Fatalf("expected 2 picks, got %d", len(picked))
	}
	found := false
	for _, idx := range picked {
		if idx == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("dissimilar candidate not selected: picked %v", pickTexts(cands, picked))
	}
}

func TestMMRInterleavesDuplicateClusters(t *testing.T) {
	cands := []rerankCandidate{
		{rawScore: 0.95, text: "cat sat on the mat"},
		{rawScore: 0.93, text: "cat sat on the mat"},
		{rawScore: 0.80, text: "dog ran in park"},
		{rawScore: 0.75, text: "sun is bright"},
		{rawScore: 0.70, text: "birds fly high"},
	}
	picked := mmrSelect(cands, 0.5, 3)
	if len(picked) != 3 {
		t.Fatalf("expected 3 picks, got %d", len(picked))
	}
	if picked[0] != 0 {
		t.Fatalf("first pick should be the top cat entry, got %v", pickTexts(cands, picked))
	}
	// The second near-duplicate cat entry must not follow immediately; a
	// dissimilar entry interleaves ahead of it.
	if picked[1] == 1 {
		t.Fatalf("near-duplicate selected consecutively: %v", pickTexts(cands, picked))
	}
}

func TestMMRSelectionOrderIsRanking(t *testing.T) {
	cands := []rerankCandidate{
		{rawScore: 0.3, text: "alpha beta"},
		{rawScore: 0.9, text: "gamma delta"},
	}
	picked := mmrSelect(cands, 1, 2)
	if len(picked) != 2 || picked[0] != 1 || picked[1] != 0 {
		t.Fatalf("unexpected selection order: %v", picked)
	}
}

func TestMMRFlatScoresNormalizeToOne(t *testing.T) {
	cands := []rerankCandidate{
		{rawScore: 0.5, text: "one two"},
		{rawScore: 0.5, text: "three four"},
		{rawScore: 0.5, text: "five six"},
	}
	picked := mmrSelect(cands, 0.9, 3)
	if len(picked) != 3 {
		t.Fatalf("expected all candidates selected, got %d", len(picked))
	}
	if picked[0] != 0 {
		t.Fatalf("ties should resolve first-seen, got %v", picked)
	}
}

func TestMMRBounds(t *testing.T) {
	if got := mmrSelect(nil, 0.5, 3); got != nil {
		t.Fatalf("nil candidates should select nothing, got %v", got)
	}
	cands := []rerankCandidate{{rawScore: 1, text: "a"}}
	if got := mmrSelect(cands, 0.5, 0); got != nil {
		t.Fatalf("topK=0 should select nothing, got %v", got)
	}
	if got := mmrSelect(cands, 0.5, 10); len(got) != 1 {
		t.Fatalf("topK beyond candidate count should select all, got %v", got)
	}
}
