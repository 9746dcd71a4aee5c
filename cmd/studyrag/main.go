package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/config"
	"github.com/campuskit/studyrag/internal/db"
	dbMemory "github.com/campuskit/studyrag/internal/db/memory"
	dbRedis "github.com/campuskit/studyrag/internal/db/redis"
	"github.com/campuskit/studyrag/internal/domain"
	logpkg "github.com/campuskit/studyrag/internal/logger"
	"github.com/campuskit/studyrag/internal/metrics"
	"github.com/campuskit/studyrag/internal/repository/embcache"
	"github.com/campuskit/studyrag/internal/repository/vector"
	"github.com/campuskit/studyrag/internal/retry"
	chiTransport "github.com/campuskit/studyrag/internal/transport/chi"
	openaiTransport "github.com/campuskit/studyrag/internal/transport/openai"
	compressuc "github.com/campuskit/studyrag/internal/usecase/compress"
	embeddinguc "github.com/campuskit/studyrag/internal/usecase/embedding"
	expanduc "github.com/campuskit/studyrag/internal/usecase/expand"
	healthuc "github.com/campuskit/studyrag/internal/usecase/health"
	ingestuc "github.com/campuskit/studyrag/internal/usecase/ingest"
	retrievaluc "github.com/campuskit/studyrag/internal/usecase/retrieval"
	"github.com/campuskit/studyrag/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting studyrag retrieval server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Cache backend behind the embedding cache: process-local LRU by
	// default, shared Redis KV when configured.
	var cacheStore db.KVStore = store
	if cfg.Cache.Backend == "memory" {
		capacity := cfg.Cache.Capacity
		if capacity <= 0 {
			capacity = dbMemory.DefaultCapacity
		}
		cacheStore, err = dbMemory.NewStore(capacity)
		if err != nil {
			logger.Fatal("Failed to create embedding cache", zap.Error(err))
		}
	}

	// Base provider is shared; instruction decorators split query/document
	// chains so cache keys stay distinct per instruction.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	queryEmbedder := buildEmbedder(baseEmbedder, cacheStore, cfg, cfg.Embedding.QueryInstruction, logger)
	docEmbedder := buildEmbedder(baseEmbedder, cacheStore, cfg, cfg.Embedding.DocumentInstruction, logger)
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	vecClient := vector.New(store, &vector.Config{
		KeyPrefix:       cfg.Storage.KeyPrefix,
		Dimensions:      cfg.Embedding.Dimensions,
		HNSWM:           cfg.Retrieval.HNSWM,
		HNSWEFConstruct: cfg.Retrieval.HNSWEFConstruct,
		Retry:           retry.Default(cfg.Embedding.MaxRetries),
		Logger:          logger,
	})

	genTimeout := time.Duration(cfg.Generation.TimeoutSec) * time.Second
	expander := expanduc.New(openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     genTimeout,
		Purpose:     "expand",
		Logger:      logger,
	}), logger)

	// Always constructed; the compression_enabled flag gates its use.
	compressor := compressuc.New(openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     genTimeout,
		Purpose:     "compress",
		Logger:      logger,
	}), logger)

	retrievalSvc := retrievaluc.New(expander, queryEmbedder, vecClient, compressor, retrievaluc.Config{
		Collection:          cfg.Retrieval.Collection,
		TopK:                cfg.Retrieval.TopK,
		ScoreThreshold:      cfg.Retrieval.ScoreThreshold,
		MaxQueryVariants:    cfg.Retrieval.MaxQueryVariants,
		CompressionEnabled:  cfg.Retrieval.CompressionEnabled,
		ContextBudgetTokens: cfg.Retrieval.ContextBudgetTokens,
	}, logger)

	ingestSvc := ingestuc.New(docEmbedder, vecClient, cfg.Retrieval.MaxBatchSize, logger)

	healthSvc := healthuc.New(store, vecClient, baseEmbedder)

	server := chiTransport.NewServer(retrievalSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base *openaiTransport.Embedder,
	cacheStore db.KVStore,
	cfg config.Config,
	instruction string,
	logger *zap.Logger,
) domain.BatchEmbedder {
	cached := embcache.New(base, cacheStore, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger)

	instrumented := embeddinguc.NewInstrumentedEmbedder(
		cached, "openai", cfg.Embedding.Model,
		retry.Default(cfg.Embedding.MaxRetries), logger,
	)

	// Instruction prefix (outermost, so cache keys include the instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction)
	}

	return instrumented
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
