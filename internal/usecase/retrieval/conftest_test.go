package retrieval

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/domain/filter"
)

type mockExpander struct {
	variants []string
	calls    int
}

func (m *mockExpander) Expand(_ context.Context, query string, _ int) []string {
	m.calls++
	if m.variants != nil {
		return m.variants
	}
	return []string{query}
}

type mockBatchEmbedder struct {
	err   error
	dim   int
	calls int
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	dim := m.dim
	if dim == 0 {
		dim = 2
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = make([]float32, dim)
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

type mockSearcher struct {
	mu       sync.Mutex
	searchFn func(call int, f filter.Filter) ([]domain.ScoredHit, error)
	calls    int
	filters  []filter.Filter
}

func (m *mockSearcher) Search(
	_ context.Context, _ string,
	_ []float32, f filter.Filter,
	_ int, _ float64,
) ([]domain.ScoredHit, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.filters = append(m.filters, f)
	m.mu.Unlock()

	if m.searchFn != nil {
		return m.searchFn(call, f)
	}
	return nil, nil
}

type mockCompressor struct {
	compressFn func(query string, docs []domain.Document, budget int) []domain.Document
	calls      int
}

func (m *mockCompressor) Compress(_ context.Context, query string, docs []domain.Document, budget int) []domain.Document {
	m.calls++
	if m.compressFn != nil {
		return m.compressFn(query, docs, budget)
	}
	return docs
}

func hit(id string, score float64, content string) domain.ScoredHit {
	return domain.ScoredHit{
		ID:    id,
		Score: score,
		Payload: map[string]domain.Value{
			"page_content": domain.String(content),
		},
	}
}

func defaultConfig() Config {
	return Config{
		Collection:          "study_materials",
		TopK:                5,
		ScoreThreshold:      0.3,
		MaxQueryVariants:    3,
		CompressionEnabled:  false,
		ContextBudgetTokens: 2000,
	}
}

func newTestService(t *testing.T, cfg Config) (*Service, *mockExpander, *mockBatchEmbedder, *mockSearcher, *mockCompressor) {
	t.Helper()
	exp := &mockExpander{}
	emb := &mockBatchEmbedder{}
	src := &mockSearcher{}
	comp := &mockCompressor{}
	svc := New(exp, emb, src, comp, cfg, zap.NewNop())
	return svc, exp, emb, src, comp
}
