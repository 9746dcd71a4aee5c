package studyrag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/db"
	dbMemory "github.com/campuskit/studyrag/internal/db/memory"
	dbRedis "github.com/campuskit/studyrag/internal/db/redis"
	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/domain/filter"
	"github.com/campuskit/studyrag/internal/metrics"
	"github.com/campuskit/studyrag/internal/repository/embcache"
	"github.com/campuskit/studyrag/internal/repository/vector"
	"github.com/campuskit/studyrag/internal/retry"
	openaiTransport "github.com/campuskit/studyrag/internal/transport/openai"
	compressuc "github.com/campuskit/studyrag/internal/usecase/compress"
	embeddinguc "github.com/campuskit/studyrag/internal/usecase/embedding"
	expanduc "github.com/campuskit/studyrag/internal/usecase/expand"
	healthuc "github.com/campuskit/studyrag/internal/usecase/health"
	ingestuc "github.com/campuskit/studyrag/internal/usecase/ingest"
	retrievaluc "github.com/campuskit/studyrag/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// retrievalUseCase is the internal interface for the retrieval pipeline.
type retrievalUseCase interface {
	Retrieve(ctx context.Context, query string, expandQuery bool) ([]domain.Document, error)
	RetrieveFiltered(ctx context.Context, query string, f filter.Filter, expandQuery bool) ([]domain.Document, error)
	RetrieveByTopic(ctx context.Context, query, topic string, expandQuery bool) ([]domain.Document, error)
}

// ingestUseCase is the internal interface for the write path.
type ingestUseCase interface {
	EnsureCollection(ctx context.Context, collection string) error
	Ingest(ctx context.Context, collection string, chunks []ingestuc.Chunk) (int, error)
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the studyrag SDK entry point.
type Client struct {
	store     *dbRedis.Store
	retrieval retrievalUseCase
	ingest    ingestUseCase
	health    healthUseCase
}

// New creates a studyrag Client and connects to the database.
// The provided context bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		embeddingModel:   "text-embedding-3-small",
		dimensions:       1536,
		generationModel:  "gpt-4o-mini",
		collection:       "study_materials",
		topK:             5,
		scoreThreshold:   0.3,
		maxQueryVariants: 3,
		keyPrefix:        "studyrag:",
		cacheCapacity:    dbMemory.DefaultCapacity,
		maxRetries:       3,
		logger:           zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("studyrag: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("studyrag: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("studyrag: database not ready: %w", err)
	}

	return wireClient(store, cfg)
}

func wireClient(store *dbRedis.Store, cfg *clientConfig) (*Client, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	cacheStore, err := dbMemory.NewStore(cfg.cacheCapacity)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("studyrag: create embedding cache: %w", err)
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.apiKey,
		BaseURL:    cfg.baseURL,
		Model:      cfg.embeddingModel,
		Dimensions: cfg.dimensions,
		Provider:   "openai",
		Logger:     cfg.logger,
	})
	queryEmbedder := buildEmbedder(base, cacheStore, cfg, cfg.queryInstruction)
	docEmbedder := buildEmbedder(base, cacheStore, cfg, cfg.documentInstruction)

	vecClient := vector.New(store, &vector.Config{
		KeyPrefix:  cfg.keyPrefix,
		Dimensions: cfg.dimensions,
		Retry:      retry.Default(cfg.maxRetries),
		Logger:     cfg.logger,
	})

	expander := expanduc.New(newGenerator(cfg, "expand"), cfg.logger)
	compressor := compressuc.New(newGenerator(cfg, "compress"), cfg.logger)

	retrievalSvc := retrievaluc.New(expander, queryEmbedder, vecClient, compressor, retrievaluc.Config{
		Collection:          cfg.collection,
		TopK:                cfg.topK,
		ScoreThreshold:      cfg.scoreThreshold,
		MaxQueryVariants:    cfg.maxQueryVariants,
		CompressionEnabled:  cfg.compressionEnabled,
		ContextBudgetTokens: cfg.contextBudgetTokens,
	}, cfg.logger)

	ingestSvc := ingestuc.New(docEmbedder, vecClient, 100, cfg.logger)
	healthSvc := healthuc.New(store, vecClient, base)

	return &Client{
		store:     store,
		retrieval: retrievalSvc,
		ingest:    ingestSvc,
		health:    healthSvc,
	}, nil
}

func buildEmbedder(
	base *openaiTransport.Embedder, cacheStore db.KVStore,
	cfg *clientConfig, instruction string,
) domain.BatchEmbedder {
	cached := embcache.New(base, cacheStore, cfg.keyPrefix, metrics.EmbeddingCacheTotal, cfg.logger)
	instrumented := embeddinguc.NewInstrumentedEmbedder(
		cached, "openai", cfg.embeddingModel,
		retry.Default(cfg.maxRetries), cfg.logger,
	)
	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction)
	}
	return instrumented
}

func newGenerator(cfg *clientConfig, purpose string) *openaiTransport.Generator {
	return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.apiKey,
		BaseURL: cfg.baseURL,
		Model:   cfg.generationModel,
		Purpose: purpose,
		Logger:  cfg.logger,
	})
}

// Close releases the database connection.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Retrieve finds passages relevant to the query in the default collection.
// With expand enabled the search fans out over LLM-generated paraphrases.
func (c *Client) Retrieve(ctx context.Context, query string, expand bool) ([]Document, error) {
	docs, err := c.retrieval.Retrieve(ctx, query, expand)
	if err != nil {
		return nil, err
	}
	return documentsFromDomain(docs), nil
}

// RetrieveFiltered is Retrieve with a metadata pre-filter: each key maps to
// one or more accepted values (one value = equality, several = any-of).
func (c *Client) RetrieveFiltered(ctx context.Context, query string, filters map[string][]string, expand bool) ([]Document, error) {
	conditions := make([]filter.Condition, 0, len(filters))
	for k, values := range filters {
		cond, err := filter.NewCondition(k, values...)
		if err != nil {
			return nil, fmt.Errorf("studyrag: invalid filter: %w", err)
		}
		conditions = append(conditions, cond)
	}
	f, err := filter.New(conditions...)
	if err != nil {
		return nil, fmt.Errorf("studyrag: invalid filter: %w", err)
	}

	docs, err := c.retrieval.RetrieveFiltered(ctx, query, f, expand)
	if err != nil {
		return nil, err
	}
	return documentsFromDomain(docs), nil
}

// RetrieveByTopic restricts retrieval to documents tagged with the topic.
func (c *Client) RetrieveByTopic(ctx context.Context, query, topic string, expand bool) ([]Document, error) {
	docs, err := c.retrieval.RetrieveByTopic(ctx, query, topic, expand)
	if err != nil {
		return nil, err
	}
	return documentsFromDomain(docs), nil
}

// EnsureCollection provisions the collection's vector index if missing.
func (c *Client) EnsureCollection(ctx context.Context, collection string) error {
	return c.ingest.EnsureCollection(ctx, collection)
}

// Ingest embeds and indexes the chunks, returning how many were written.
func (c *Client) Ingest(ctx context.Context, collection string, chunks []Chunk) (int, error) {
	internal := make([]ingestuc.Chunk, len(chunks))
	for i, ch := range chunks {
		internal[i] = ingestuc.Chunk{ID: ch.ID, Content: ch.Content, Tags: ch.Tags}
	}
	return c.ingest.Ingest(ctx, collection, internal)
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:      string(report.Status),
		Checks:      checks,
		Collections: report.Collections,
	}
}
