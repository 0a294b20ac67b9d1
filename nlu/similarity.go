package nlu

import "strings"

// DefaultThreshold is the similarity percent at and above which two
// utterances are considered to say the same thing.
const DefaultThreshold = 80

// Similarity is the outcome of matching one utterance against a candidate
// list: the best-scoring candidate and whether it clears the threshold.
type Similarity struct {
	Status  bool    // Percent >= threshold
	Index   int     // position of the winning candidate, -1 if none
	Percent float64 // best observed score, 0..100
	Text    string  // winning candidate verbatim
}

// TextSimilarity scores text against every candidate and keeps the best.
//
// An exact case-insensitive match short-circuits to 100. Otherwise the score
// is a normalized longest-common-subsequence ratio:
//
//	(2 * LCS(a, b) / (len(a) + len(b))) * 100
//
// On a tie the first candidate reaching the maximum wins (stable scan order).
func TextSimilarity(text string, candidates []string, threshold float64) Similarity {

	best := Similarity{Index: -1}

	norm := strings.ToLower(strings.TrimSpace(text))
	for i, origin := range candidates {
		cand := strings.ToLower(strings.TrimSpace(origin))
		if norm != "" && norm == cand {
			return Similarity{
				Status:  true,
				Index:   i,
				Percent: 100,
				Text:    origin,
			}
		}
		percent := lcsPercent(norm, cand)
		if percent > best.Percent {
			best.Index = i
			best.Percent = percent
			best.Text = origin
		}
	}

	best.Status = best.Index >= 0 && best.Percent >= threshold
	return best
}

func lcsPercent(a, b string) float64 {

	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// two-row LCS table
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(rb)]
	return float64(2*lcs) / float64(len(ra)+len(rb)) * 100
}
