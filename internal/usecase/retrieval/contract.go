// Package retrieval implements the question-answering retrieval pipeline:
// query expansion, vector search fan-out, result merging, and contextual
// compression under a token budget.
package retrieval

import (
	"context"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/domain/filter"
)

// expander generates alternative phrasings of a query (consumer interface).
type expander interface {
	Expand(ctx context.Context, query string, count int) []string
}

// searcher runs one KNN query against a collection (consumer interface).
type searcher interface {
	Search(
		ctx context.Context, collection string,
		vector []float32, f filter.Filter,
		topK int, scoreThreshold float64,
	) ([]domain.ScoredHit, error)
}

// compressor shrinks documents to question-relevant extracts within a budget
// (consumer interface).
type compressor interface {
	Compress(ctx context.Context, query string, docs []domain.Document, budget int) []domain.Document
}
