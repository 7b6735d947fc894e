// Package suggest finds near matches for misspelled names, for "did you
// mean" hints in configuration diagnostics.
package suggest

import "github.com/agext/levenshtein"

// minSimilarity is the similarity score below which a candidate is not
// considered a plausible typo. The heuristic may change; callers should not
// rely on which candidate wins a near tie.
const minSimilarity = 0.7

// String returns the candidate most similar to want, or an empty string when
// no candidate is close enough. An exact match is returned as is.
func String(want string, candidates []string) string {
	best := ""
	score := minSimilarity
	for _, cand := range candidates {
		if cand == want {
			return cand
		}
		if s := levenshtein.Similarity(want, cand, nil); s >= score {
			best = cand
			score = s
		}
	}
	return best
}
