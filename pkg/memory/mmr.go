package memory

import (
	"sort"

	"github.com/dotsetgreg/contextkit/pkg/textsim"
)

// rerankCandidate is one input to MMR reranking: a raw relevance score and
// the text used for redundancy comparison against already-selected picks.
type rerankCandidate struct {
	rawScore float64
	text     string
}

// mmrSelect runs Maximal Marginal Relevance over the candidates and returns
// the indices of the selected items in selection order, which is itself the
// diversified ranking. Each pick maximizes
//
//	lambda*normScore - (1-lambda)*maxJaccardToSelected
//
// with first-seen winning ties. Raw scores are min-max normalized to [0,1]
// (all 1.0 when the candidate set has a single score). Candidates are ordered
// by raw score first so the initial pick is always the top-scoring candidate
// for any lambda.
func mmrSelect(cands []rerankCandidate, lambda float64, topK int) []int {
	if len(cands) == 0 || topK <= 0 {
		return nil
	}
	if lambda < 0 {
		lambda = 0
	} else if lambda > 1 {
		lambda = 1
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cands[order[a]].rawScore > cands[order[b]].rawScore
	})

	minScore, maxScore := cands[0].rawScore, cands[0].rawScore
	for _, c := range cands[1:] {
		if c.rawScore < minScore {
			minScore = c.rawScore
		}
		if c.rawScore > maxScore {
			maxScore = c.rawScore
		}
	}
	norm := make([]float64, len(cands))
	for i, c := range cands {
		if maxScore == minScore {
			norm[i] = 1.0
		} else {
			norm[i] = (c.rawScore - minScore) / (maxScore - minScore)
		}
	}

	// Tokenize once; every MMR iteration compares token sets.
	tokens := make([]map[string]struct{}, len(cands))
	for i, c := range cands {
		tokens[i] = textsim.Tokenize(c.text)
	}

	// maxSim[i] tracks the highest similarity of candidate i to anything
	// selected so far, updated incrementally after each pick.
	maxSim := make([]float64, len(cands))
	selected := make([]int, 0, topK)
	remaining := order

	for len(selected) < topK && len(remaining) > 0 {
		bestPos, bestScore := -1, 0.0
		for pos, idx := range remaining {
			score := lambda*norm[idx] - (1-lambda)*maxSim[idx]
			if bestPos == -1 || score > bestScore {
				bestPos, bestScore = pos, score
			}
		}
		picked := remaining[bestPos]
		selected = append(selected, picked)
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)

		for _, idx := range remaining {
			if sim := textsim.JaccardSets(tokens[idx], tokens[picked]); sim > maxSim[idx] {
				maxSim[idx] = sim
			}
		}
	}
	return selected
}
