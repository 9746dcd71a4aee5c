package studyrag

import (
	"context"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/domain/filter"
	healthuc "github.com/campuskit/studyrag/internal/usecase/health"
	ingestuc "github.com/campuskit/studyrag/internal/usecase/ingest"
)

type mockRetrievalUC struct {
	retrieveFn func(ctx context.Context, query string, expandQuery bool) ([]domain.Document, error)
	filteredFn func(ctx context.Context, query string, f filter.Filter, expandQuery bool) ([]domain.Document, error)
	byTopicFn  func(ctx context.Context, query, topic string, expandQuery bool) ([]domain.Document, error)
}

func (m *mockRetrievalUC) Retrieve(ctx context.Context, query string, expandQuery bool) ([]domain.Document, error) {
	return m.retrieveFn(ctx, query, expandQuery)
}

func (m *mockRetrievalUC) RetrieveFiltered(ctx context.Context, query string, f filter.Filter, expandQuery bool) ([]domain.Document, error) {
	return m.filteredFn(ctx, query, f, expandQuery)
}

func (m *mockRetrievalUC) RetrieveByTopic(ctx context.Context, query, topic string, expandQuery bool) ([]domain.Document, error) {
	return m.byTopicFn(ctx, query, topic, expandQuery)
}

type mockIngestUC struct {
	ensureFn func(ctx context.Context, collection string) error
	ingestFn func(ctx context.Context, collection string, chunks []ingestuc.Chunk) (int, error)
}

func (m *mockIngestUC) EnsureCollection(ctx context.Context, collection string) error {
	return m.ensureFn(ctx, collection)
}

func (m *mockIngestUC) Ingest(ctx context.Context, collection string, chunks []ingestuc.Chunk) (int, error) {
	return m.ingestFn(ctx, collection, chunks)
}

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}
