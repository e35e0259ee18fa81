package app

import (
	"sort"

	"topic-quiz-service/internal/domain"
)

// AssignRanks orders a topic's results by score descending, ties broken
// by earlier submission, and assigns dense 1-based ranks. The input is
// not modified; the returned slice carries the new rank positions.
//
// Both the postgres and the in-memory result stores run their full
// recompute through this function so the ordering rule lives in exactly
// one place. The assignment is deterministic for a fixed result set,
// which makes the recompute idempotent.
func AssignRanks(results []domain.Result) []domain.Result {
	ranked := make([]domain.Result, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		// Identical score and timestamp: fall back to insertion order.
		return ranked[i].ID < ranked[j].ID
	})

	for i := range ranked {
		ranked[i].RankPosition = i + 1
	}
	return ranked
}
