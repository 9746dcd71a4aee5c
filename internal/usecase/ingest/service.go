// Package ingest loads study material chunks into a vector collection:
// validation, batch vectorization, and pipelined index writes.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/repository/vector"
)

// Chunk is one piece of study material to be indexed.
type Chunk struct {
	ID      string
	Content string
	Tags    map[string]string
}

// indexClient is the consumer interface for the vector index (ISP).
type indexClient interface {
	EnsureCollection(ctx context.Context, collection string) error
	Upsert(ctx context.Context, collection string, points []vector.Point) error
}

// Service ingests document chunks into vector collections.
type Service struct {
	embedder     domain.BatchEmbedder
	index        indexClient
	maxBatchSize int
	logger       *zap.Logger
}

// New creates an ingestion service. maxBatchSize bounds both the embedding
// request and the index write per round trip.
func New(embedder domain.BatchEmbedder, index indexClient, maxBatchSize int, logger *zap.Logger) *Service {
	return &Service{
		embedder:     embedder,
		index:        index,
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
}

// EnsureCollection provisions the collection's index if missing.
func (s *Service) EnsureCollection(ctx context.Context, collection string) error {
	return s.index.EnsureCollection(ctx, collection)
}

// Ingest validates, vectorizes, and indexes the chunks, returning how many
// were written. The whole call fails on the first bad chunk or failed batch;
// batches already written stay in the index (upserts are idempotent by ID).
func (s *Service) Ingest(ctx context.Context, collection string, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	for i := range chunks {
		if chunks[i].ID == "" {
			return 0, fmt.Errorf("chunk %d: id is required", i)
		}
		if strings.TrimSpace(chunks[i].Content) == "" {
			return 0, fmt.Errorf("chunk %q: %w", chunks[i].ID, domain.ErrEmptyText)
		}
	}

	if err := s.index.EnsureCollection(ctx, collection); err != nil {
		return 0, err
	}

	written := 0
	for start := 0; start < len(chunks); start += s.maxBatchSize {
		end := start + s.maxBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		n, err := s.ingestBatch(ctx, collection, chunks[start:end])
		written += n
		if err != nil {
			return written, err
		}
	}

	s.logger.Info("Ingestion completed",
		zap.String("collection", collection),
		zap.Int("chunks", written))
	return written, nil
}

func (s *Service) ingestBatch(ctx context.Context, collection string, batch []Chunk) (int, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Content
	}

	embedded, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("vectorize %d chunks: %w", len(batch), err)
	}
	if len(embedded.Embeddings) != len(batch) {
		return 0, fmt.Errorf("vectorize %d chunks: got %d vectors", len(batch), len(embedded.Embeddings))
	}

	points := make([]vector.Point, len(batch))
	for i := range batch {
		points[i] = vector.Point{
			ID:      batch[i].ID,
			Vector:  embedded.Embeddings[i],
			Content: batch[i].Content,
			Tags:    batch[i].Tags,
		}
	}

	if err := s.index.Upsert(ctx, collection, points); err != nil {
		return 0, err
	}
	return len(points), nil
}
