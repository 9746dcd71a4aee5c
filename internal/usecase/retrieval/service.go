package retrieval

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/domain/filter"
	"github.com/campuskit/studyrag/internal/metrics"
)

// Config holds the retrieval pipeline settings.
type Config struct {
	Collection          string
	TopK                int
	ScoreThreshold      float64
	MaxQueryVariants    int
	CompressionEnabled  bool
	ContextBudgetTokens int
}

// Service is the retrieval pipeline facade.
type Service struct {
	expander   expander
	embedder   domain.BatchEmbedder
	searcher   searcher
	compressor compressor
	cfg        Config
	logger     *zap.Logger
}

// New creates the retrieval service. compressor may be nil when compression
// is disabled in the config.
func New(
	exp expander, emb domain.BatchEmbedder,
	s searcher, comp compressor,
	cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		expander:   exp,
		embedder:   emb,
		searcher:   s,
		compressor: comp,
		cfg:        cfg,
		logger:     logger,
	}
}

// Retrieve finds documents relevant to the query. With expandQuery the
// search fans out over several LLM paraphrases of the question; results are
// merged, best score per document. Partial variant failures degrade to the
// surviving variants; the call fails only when nothing can be searched.
func (s *Service) Retrieve(ctx context.Context, query string, expandQuery bool) ([]domain.Document, error) {
	return s.retrieve(ctx, query, expandQuery, filter.Filter{})
}

// RetrieveFiltered is Retrieve with a metadata pre-filter applied to every
// variant's search.
func (s *Service) RetrieveFiltered(ctx context.Context, query string, f filter.Filter, expandQuery bool) ([]domain.Document, error) {
	return s.retrieve(ctx, query, expandQuery, f)
}

// RetrieveByTopic restricts retrieval to documents tagged with the topic.
func (s *Service) RetrieveByTopic(ctx context.Context, query, topic string, expandQuery bool) ([]domain.Document, error) {
	f, err := filter.ByTopic(topic)
	if err != nil {
		return nil, domain.NewRetrievalError(query, s.cfg.Collection, err)
	}
	return s.retrieve(ctx, query, expandQuery, f)
}

func (s *Service) retrieve(ctx context.Context, query string, expandQuery bool, f filter.Filter) ([]domain.Document, error) {
	variants := []string{query}
	if expandQuery {
		variants = s.expander.Expand(ctx, query, s.cfg.MaxQueryVariants)
	}

	batch, err := s.embedder.BatchEmbed(ctx, variants)
	if err != nil {
		return nil, domain.NewRetrievalError(query, s.cfg.Collection, err)
	}
	if len(batch.Embeddings) != len(variants) {
		return nil, domain.NewRetrievalError(query, s.cfg.Collection,
			errors.New("embedding count does not match query variants"))
	}

	hits, err := s.searchFanOut(ctx, variants, batch.Embeddings, f)
	if err != nil {
		return nil, err
	}

	merged := mergeHits(hits)

	if len(merged) > s.cfg.TopK {
		merged = merged[:s.cfg.TopK]
	}

	docs := make([]domain.Document, 0, len(merged))
	for _, hit := range merged {
		docs = append(docs, domain.DocumentFromHit(hit))
	}

	s.logger.Debug("Retrieval completed",
		zap.Int("variants", len(variants)),
		zap.Int("documents", len(docs)))

	if s.cfg.CompressionEnabled && s.compressor != nil && len(docs) > 0 {
		docs = s.compressor.Compress(ctx, query, docs, s.cfg.ContextBudgetTokens)
	}

	// Quality signal over what the caller actually receives, after the
	// top-k cut and compression.
	metrics.RetrievalRelevanceScore.WithLabelValues(s.cfg.Collection).Observe(meanDocScore(docs))

	return docs, nil
}

// searchFanOut runs one search per variant concurrently. Searches are
// independent: one variant's failure does not cancel its siblings. A missing
// collection propagates immediately; anything short of total failure
// degrades to the variants that succeeded.
func (s *Service) searchFanOut(
	ctx context.Context, variants []string,
	vectors [][]float32, f filter.Filter,
) ([][]domain.ScoredHit, error) {
	results := make([][]domain.ScoredHit, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i := range variants {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.searcher.Search(
				ctx, s.cfg.Collection, vectors[i], f, s.cfg.TopK, s.cfg.ScoreThreshold)
		}(i)
	}
	wg.Wait()

	failed := 0
	var lastErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return nil, err
		}
		failed++
		lastErr = err
		s.logger.Warn("Search variant failed",
			zap.String("variant", variants[i]),
			zap.Error(err))
	}

	if failed == len(variants) {
		return nil, domain.NewRetrievalError(variants[0], s.cfg.Collection, lastErr)
	}

	return results, nil
}
