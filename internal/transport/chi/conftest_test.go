package chi

import (
	"context"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/domain/filter"
	healthuc "github.com/campuskit/studyrag/internal/usecase/health"
	"github.com/campuskit/studyrag/internal/usecase/ingest"
)

type mockRetriever struct {
	retrieveFn func(ctx context.Context, query string, expandQuery bool) ([]domain.Document, error)
	filteredFn func(ctx context.Context, query string, f filter.Filter, expandQuery bool) ([]domain.Document, error)
	byTopicFn  func(ctx context.Context, query, topic string, expandQuery bool) ([]domain.Document, error)
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, expandQuery bool) ([]domain.Document, error) {
	return m.retrieveFn(ctx, query, expandQuery)
}

func (m *mockRetriever) RetrieveFiltered(ctx context.Context, query string, f filter.Filter, expandQuery bool) ([]domain.Document, error) {
	return m.filteredFn(ctx, query, f, expandQuery)
}

func (m *mockRetriever) RetrieveByTopic(ctx context.Context, query, topic string, expandQuery bool) ([]domain.Document, error) {
	return m.byTopicFn(ctx, query, topic, expandQuery)
}

type mockIngestor struct {
	ensureFn func(ctx context.Context, collection string) error
	ingestFn func(ctx context.Context, collection string, chunks []ingest.Chunk) (int, error)
}

func (m *mockIngestor) EnsureCollection(ctx context.Context, collection string) error {
	return m.ensureFn(ctx, collection)
}

func (m *mockIngestor) Ingest(ctx context.Context, collection string, chunks []ingest.Chunk) (int, error) {
	return m.ingestFn(ctx, collection, chunks)
}

type mockHealth struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealth) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}
