package retrieval

import (
	"sort"

	"github.com/campuskit/studyrag/internal/domain"
)

// mergeHits deduplicates hits from multiple search variants by document ID,
// keeping the highest score seen for each (first occurrence wins ties), and
// returns them ordered by score descending, ID ascending.
func mergeHits(batches [][]domain.ScoredHit) []domain.ScoredHit {
	best := make(map[string]domain.ScoredHit)
	for _, batch := range batches {
		for _, hit := range batch {
			if prev, ok := best[hit.ID]; !ok || hit.Score > prev.Score {
				best[hit.ID] = hit
			}
		}
	}

	merged := make([]domain.ScoredHit, 0, len(best))
	for _, hit := range best {
		merged = append(merged, hit)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})

	return merged
}

// meanDocScore is the average similarity of returned documents, 0 for an
// empty result.
func meanDocScore(docs []domain.Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range docs {
		sum += d.Score()
	}
	return sum / float64(len(docs))
}
