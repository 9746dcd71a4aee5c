package studyrag

import (
	"context"
	"errors"
	"testing"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/domain/filter"
	healthuc "github.com/campuskit/studyrag/internal/usecase/health"
	ingestuc "github.com/campuskit/studyrag/internal/usecase/ingest"
)

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error without database address")
	}
}

func TestRetrieve_ConvertsDocuments(t *testing.T) {
	c := &Client{
		retrieval: &mockRetrievalUC{
			retrieveFn: func(_ context.Context, query string, expand bool) ([]domain.Document, error) {
				if query != "photosynthesis" || !expand {
					t.Errorf("unexpected call: %q expand=%v", query, expand)
				}
				return []domain.Document{
					{
						Content: "Photosynthesis converts light to energy.",
						Metadata: map[string]domain.Value{
							"id":         domain.String("doc-3"),
							"score":      domain.Number(0.77),
							"topic":      domain.String("biology"),
							"compressed": domain.Bool(true),
						},
					},
				}, nil
			},
		},
	}

	docs, err := c.Retrieve(context.Background(), "photosynthesis", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	doc := docs[0]
	if doc.ID != "doc-3" {
		t.Errorf("id: got %q", doc.ID)
	}
	if doc.Score != 0.77 {
		t.Errorf("score: got %f", doc.Score)
	}
	if doc.Content != "Photosynthesis converts light to energy." {
		t.Errorf("content: got %q", doc.Content)
	}
	if doc.Metadata["topic"] != "biology" {
		t.Errorf("topic: got %v", doc.Metadata["topic"])
	}
	if doc.Metadata["compressed"] != true {
		t.Errorf("compressed: got %v", doc.Metadata["compressed"])
	}
}

func TestRetrieve_PropagatesError(t *testing.T) {
	wantErr := domain.NewRetrievalError("q", "c", domain.ErrEmbeddingProvider)
	c := &Client{
		retrieval: &mockRetrievalUC{
			retrieveFn: func(context.Context, string, bool) ([]domain.Document, error) {
				return nil, wantErr
			},
		},
	}

	_, err := c.Retrieve(context.Background(), "q", false)
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Errorf("expected retrieval error, got %v", err)
	}
}

func TestRetrieveByTopic_Delegates(t *testing.T) {
	var gotTopic string
	var gotExpand bool
	c := &Client{
		retrieval: &mockRetrievalUC{
			byTopicFn: func(_ context.Context, _, topic string, expand bool) ([]domain.Document, error) {
				gotTopic = topic
				gotExpand = expand
				return nil, nil
			},
		},
	}

	if _, err := c.RetrieveByTopic(context.Background(), "q", "genetics", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTopic != "genetics" {
		t.Errorf("topic: got %q", gotTopic)
	}
	if !gotExpand {
		t.Error("expand flag not passed through")
	}
}

func TestRetrieveFiltered_BuildsFilter(t *testing.T) {
	var gotFilter filter.Filter
	c := &Client{
		retrieval: &mockRetrievalUC{
			filteredFn: func(_ context.Context, _ string, f filter.Filter, _ bool) ([]domain.Document, error) {
				gotFilter = f
				return nil, nil
			},
		},
	}

	filters := map[string][]string{"topic": {"biology", "chemistry"}}
	if _, err := c.RetrieveFiltered(context.Background(), "q", filters, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conds := gotFilter.Conditions()
	if len(conds) != 1 || conds[0].Key() != "topic" || len(conds[0].Values()) != 2 {
		t.Errorf("unexpected filter: %+v", conds)
	}
}

func TestRetrieveFiltered_InvalidFilter(t *testing.T) {
	c := &Client{retrieval: &mockRetrievalUC{}}

	if _, err := c.RetrieveFiltered(context.Background(), "q", map[string][]string{"": {"x"}}, false); err == nil {
		t.Fatal("expected error for empty filter key")
	}
}

func TestIngest_ConvertsChunks(t *testing.T) {
	var got []ingestuc.Chunk
	c := &Client{
		ingest: &mockIngestUC{
			ingestFn: func(_ context.Context, collection string, chunks []ingestuc.Chunk) (int, error) {
				if collection != "study_materials" {
					t.Errorf("collection: got %q", collection)
				}
				got = chunks
				return len(chunks), nil
			},
		},
	}

	written, err := c.Ingest(context.Background(), "study_materials", []Chunk{
		{ID: "c1", Content: "First", Tags: map[string]string{"topic": "math"}},
		{ID: "c2", Content: "Second"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 2 {
		t.Errorf("written: got %d", written)
	}
	if len(got) != 2 || got[0].ID != "c1" || got[0].Tags["topic"] != "math" {
		t.Errorf("chunks: %+v", got)
	}
}

func TestHealth_ConvertsReport(t *testing.T) {
	c := &Client{
		health: &mockHealthUC{
			checkFn: func(context.Context) healthuc.Report {
				return healthuc.Report{
					Status: healthuc.Degraded,
					Checks: map[string]healthuc.CheckResult{
						"database":  healthuc.CheckOK,
						"embedding": healthuc.CheckError,
					},
					Collections: []string{"study_materials"},
				}
			},
		},
	}

	status := c.Health(context.Background())
	if status.Status != "degraded" {
		t.Errorf("status: got %q", status.Status)
	}
	if status.Checks["database"] != "ok" || status.Checks["embedding"] != "error" {
		t.Errorf("checks: %v", status.Checks)
	}
	if len(status.Collections) != 1 {
		t.Errorf("collections: %v", status.Collections)
	}
}
