package search

import (
	"sort"

	"github.com/risulab/cardsearch/internal/repository/character"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges ranked id lists via Reciprocal Rank Fusion. Only position
// matters: each id at 1-based rank r contributes 1/(k+r) from each list it
// appears in. Fusion is applied even for a single list so downstream scoring
// always operates on the same scale regardless of how many retrieval paths
// produced results.
func fuseRRF(rankings ...[]string) []character.RankedID {
	scores := make(map[string]float64)
	order := make([]string, 0)

	for _, ranking := range rankings {
		for rank, id := range ranking {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(rrfK+rank+1)
		}
	}

	fused := make([]character.RankedID, 0, len(order))
	for _, id := range order {
		fused = append(fused, character.RankedID{UUID: id, Score: scores[id]})
	}

	// Stable sort keeps first-seen order among exact ties.
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	return fused
}
