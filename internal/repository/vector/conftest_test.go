package vector

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/db"
	"github.com/campuskit/studyrag/internal/retry"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	listIndexesFn func(ctx context.Context) ([]string, error)
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error

	searchCalls int
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.searchCalls++
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func (m *mockStore) ListIndexes(ctx context.Context) ([]string, error) {
	if m.listIndexesFn != nil {
		return m.listIndexesFn(ctx)
	}
	return nil, nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func newTestClient(t *testing.T) (*Client, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	c := New(ms, &Config{
		KeyPrefix:       "studyrag:",
		Dimensions:      4,
		HNSWM:           32,
		HNSWEFConstruct: 400,
		Retry:           fastRetry(3),
		Logger:          zap.NewNop(),
	})
	return c, ms
}

// fastRetry keeps test retries sub-millisecond.
func fastRetry(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:     attempts,
		InitialInterval: 1,
		MaxInterval:     1,
		Multiplier:      1,
	}
}
