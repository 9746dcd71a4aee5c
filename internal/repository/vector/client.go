// Package vector adapts the FT index store to the retrieval pipeline:
// collection-addressed KNN search, index provisioning, and point upserts.
package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/db"
	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/domain/filter"
	"github.com/campuskit/studyrag/internal/metrics"
	"github.com/campuskit/studyrag/internal/retry"
)

// store is the consumer interface for vector index operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	ListIndexes(ctx context.Context) ([]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
}

// Point is one vectorized document chunk to be written into a collection.
type Point struct {
	ID      string
	Vector  []float32
	Content string
	Tags    map[string]string
}

// Config holds the vector client settings.
type Config struct {
	KeyPrefix       string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
	Retry           retry.Policy
	Logger          *zap.Logger
}

// Client implements collection-level vector index access on top of db.Store.
type Client struct {
	store           store
	keyPrefix       string
	dimensions      int
	hnswM           int
	hnswEFConstruct int
	retry           retry.Policy
	logger          *zap.Logger
}

// New creates a vector index client.
func New(s store, cfg *Config) *Client {
	return &Client{
		store:           s,
		keyPrefix:       cfg.KeyPrefix,
		dimensions:      cfg.Dimensions,
		hnswM:           cfg.HNSWM,
		hnswEFConstruct: cfg.HNSWEFConstruct,
		retry:           cfg.Retry,
		logger:          cfg.Logger,
	}
}

// ContentField is the hash field holding the chunk text.
const ContentField = "page_content"

// VectorField is the hash field holding the binary embedding.
const VectorField = "vector"

func (c *Client) indexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", c.keyPrefix, collection)
}

func (c *Client) docPrefix(collection string) string {
	return fmt.Sprintf("%s%s:", c.keyPrefix, collection)
}

// Search runs a KNN query against a collection. A missing collection fails
// immediately with domain.ErrCollectionNotFound; transient index errors are
// retried per the policy and surface as domain.QueryError once exhausted.
// Hits scoring below scoreThreshold are dropped.
func (c *Client) Search(
	ctx context.Context, collection string,
	vector []float32, f filter.Filter,
	topK int, scoreThreshold float64,
) ([]domain.ScoredHit, error) {
	exists, err := c.store.IndexExists(ctx, c.indexName(collection))
	if err != nil {
		return nil, domain.NewQueryError(collection, topK, err)
	}
	if !exists {
		return nil, fmt.Errorf("collection %q: %w", collection, domain.ErrCollectionNotFound)
	}

	q := &db.KNNQuery{
		IndexName: c.indexName(collection),
		Filters:   f,
		Vector:    vector,
		K:         topK,
	}

	start := time.Now()

	var sr *db.SearchResult
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		var searchErr error
		sr, searchErr = c.store.SearchKNN(ctx, q)
		return searchErr
	})
	if err != nil {
		metrics.SearchErrorsTotal.WithLabelValues(collection, "index_error").Inc()
		return nil, domain.NewQueryError(collection, topK, err)
	}

	metrics.SearchRequestDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())

	return c.parseHits(sr, collection, scoreThreshold), nil
}

// parseHits converts raw search entries into scored hits, dropping entries
// below the score threshold.
func (c *Client) parseHits(sr *db.SearchResult, collection string, scoreThreshold float64) []domain.ScoredHit {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	prefix := c.docPrefix(collection)
	hits := make([]domain.ScoredHit, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		if entry.Score < scoreThreshold {
			continue
		}

		payload := make(map[string]domain.Value, len(entry.Fields))
		for k, v := range entry.Fields {
			if k == VectorField {
				continue
			}
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				payload[k] = domain.Number(n)
			} else {
				payload[k] = domain.String(v)
			}
		}

		hits = append(hits, domain.ScoredHit{
			ID:      strings.TrimPrefix(entry.Key, prefix),
			Score:   entry.Score,
			Payload: payload,
		})
	}

	return hits
}

// Exists reports whether the collection's index is present.
func (c *Client) Exists(ctx context.Context, collection string) (bool, error) {
	exists, err := c.store.IndexExists(ctx, c.indexName(collection))
	if err != nil {
		return false, fmt.Errorf("check collection %q: %w", collection, err)
	}
	return exists, nil
}

// EnsureCollection creates the collection's HNSW index if it does not exist.
// Safe to call concurrently: a losing racer treats "index exists" as success.
func (c *Client) EnsureCollection(ctx context.Context, collection string) error {
	exists, err := c.store.IndexExists(ctx, c.indexName(collection))
	if err != nil {
		return fmt.Errorf("check collection %q: %w", collection, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     c.indexName(collection),
		Prefixes: []string{c.docPrefix(collection)},
		Fields: []db.IndexField{
			{Name: ContentField, Type: db.IndexFieldText},
			{Name: "topic", Type: db.IndexFieldTag},
			{Name: "source", Type: db.IndexFieldTag},
			{
				Name:              VectorField,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         c.dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           c.hnswM,
				VectorEFConstruct: c.hnswEFConstruct,
			},
		},
	}

	if err := c.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create collection %q: %w", collection, err)
	}

	c.logger.Info("Created vector collection",
		zap.String("collection", collection),
		zap.Int("dimensions", c.dimensions))
	return nil
}

// Upsert writes points into the collection in one pipelined call.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	prefix := c.docPrefix(collection)
	items := make([]db.HashSetItem, 0, len(points))

	for i := range points {
		p := &points[i]
		if p.ID == "" {
			return fmt.Errorf("point %d: id is required", i)
		}
		if len(p.Vector) != c.dimensions {
			return fmt.Errorf("point %q: vector has %d dimensions, index expects %d",
				p.ID, len(p.Vector), c.dimensions)
		}

		fields := make(map[string]string, len(p.Tags)+2)
		fields[ContentField] = p.Content
		fields[VectorField] = string(vectorToBytes(p.Vector))
		for k, v := range p.Tags {
			fields[k] = v
		}

		items = append(items, db.HashSetItem{Key: prefix + p.ID, Fields: fields})
	}

	if err := c.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points into %q: %w", len(points), collection, err)
	}
	return nil
}

// ListCollections returns the names of all collections under this client's
// key prefix.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	indexes, err := c.store.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	var collections []string
	for _, name := range indexes {
		if !strings.HasPrefix(name, c.keyPrefix) || !strings.HasSuffix(name, ":idx") {
			continue
		}
		collections = append(collections, strings.TrimSuffix(strings.TrimPrefix(name, c.keyPrefix), ":idx"))
	}
	return collections, nil
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
