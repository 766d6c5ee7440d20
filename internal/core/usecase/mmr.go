package usecase

import (
	"strings"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// selectDiverse greedily picks up to targetCount candidates maximizing
// lambda*relevance + (1-lambda)*diversity, where diversity is one minus the
// maximum Jaccard word-set similarity to anything already selected. The
// input is assumed relevance-ordered; the top candidate always seeds the
// selection. Inputs at or under targetCount are returned unchanged — the
// short-circuit is part of the contract, not an optimization.
func selectDiverse(in []domain.Candidate, targetCount int, lambda float64) []domain.Candidate {
	if targetCount <= 0 || len(in) <= targetCount {
		return in
	}

	tokenSets := make([]map[string]struct{}, len(in))
	for i := range in {
		tokenSets[i] = wordSet(in[i].Content)
	}

	selected := make([]domain.Candidate, 0, targetCount)
	selectedSets := make([]map[string]struct{}, 0, targetCount)
	remaining := make([]int, 0, len(in)-1)
	for i := 1; i < len(in); i++ {
		remaining = append(remaining, i)
	}

	selected = append(selected, in[0])
	selectedSets = append(selectedSets, tokenSets[0])

	for len(selected) < targetCount && len(remaining) > 0 {
		bestPos := 0
		bestScore := mmrScore(in[remaining[0]], tokenSets[remaining[0]], selectedSets, lambda)
		for pos := 1; pos < len(remaining); pos++ {
			idx := remaining[pos]
			score := mmrScore(in[idx], tokenSets[idx], selectedSets, lambda)
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}

		idx := remaining[bestPos]
		selected = append(selected, in[idx])
		selectedSets = append(selectedSets, tokenSets[idx])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return selected
}

func mmrScore(c domain.Candidate, tokens map[string]struct{}, selected []map[string]struct{}, lambda float64) float64 {
	maxSim := 0.0
	for _, s := range selected {
		if sim := jaccard(tokens, s); sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*c.RerankScore + (1-lambda)*(1-maxSim)
}

// jaccard computes bag-of-words overlap; deliberately lexical, not semantic.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for token := range small {
		if _, ok := large[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
