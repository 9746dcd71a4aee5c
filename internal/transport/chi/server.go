// Package chi exposes the retrieval pipeline over a small internal HTTP
// surface: retrieve, ingest, collection provisioning, and the operational
// endpoints (health, readiness, metrics).
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/domain/filter"
	healthuc "github.com/campuskit/studyrag/internal/usecase/health"
	"github.com/campuskit/studyrag/internal/usecase/ingest"
)

// Retriever is the consumer interface for the retrieval pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, query string, expandQuery bool) ([]domain.Document, error)
	RetrieveFiltered(ctx context.Context, query string, f filter.Filter, expandQuery bool) ([]domain.Document, error)
	RetrieveByTopic(ctx context.Context, query, topic string, expandQuery bool) ([]domain.Document, error)
}

// Ingestor is the consumer interface for the write path.
type Ingestor interface {
	EnsureCollection(ctx context.Context, collection string) error
	Ingest(ctx context.Context, collection string, chunks []ingest.Chunk) (int, error)
}

// HealthChecker aggregates component readiness.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorCode identifies an error class in the JSON error envelope.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeValidationFailed   errorCode = "validation_failed"
	codeUnauthorized       errorCode = "unauthorized"
	codeCollectionNotFound errorCode = "collection_not_found"
	codeEmbeddingProvider  errorCode = "embedding_provider_error"
	codeSearchFailed       errorCode = "search_failed"
	codeRetrievalFailed    errorCode = "retrieval_failed"
	codeInternalError      errorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// RetrieveRequest is the body of POST /v1/retrieve. Filters maps a metadata
// field to accepted values (one value = equality, several = any-of); Topic is
// shorthand for a single-field topic filter.
type RetrieveRequest struct {
	Query   string              `json:"query"`
	Expand  bool                `json:"expand"`
	Topic   string              `json:"topic,omitempty"`
	Filters map[string][]string `json:"filters,omitempty"`
}

// DocumentResponse is one retrieved passage.
type DocumentResponse struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// RetrieveResponse is the body of a successful retrieve call.
type RetrieveResponse struct {
	Items []DocumentResponse `json:"items"`
	Total int                `json:"total"`
}

// ChunkRequest is one study material chunk to index.
type ChunkRequest struct {
	ID      string            `json:"id"`
	Content string            `json:"content"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// IngestRequest is the body of POST /v1/collections/{collection}/documents.
type IngestRequest struct {
	Chunks []ChunkRequest `json:"chunks"`
}

// IngestResponse reports how many chunks were written.
type IngestResponse struct {
	Written int `json:"written"`
}

// HealthResponse is the readiness report body.
type HealthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	Collections []string          `json:"collections,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the internal API.
type Server struct {
	retrieval     Retriever
	ingest        Ingestor
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(retrieval Retriever, ing Ingestor, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		retrieval: retrieval,
		ingest:    ing,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, codeCollectionNotFound),
		sentinelHandler(domain.ErrEmptyText, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrIndexQuery, http.StatusBadGateway, codeSearchFailed),
		sentinelHandler(domain.ErrRetrieval, http.StatusBadGateway, codeRetrievalFailed),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chirouter.Router) {
	r.Get("/healthz", s.Liveness)
	r.Get("/readyz", s.Readiness)
	r.Get("/metrics", s.Metrics)

	r.Post("/v1/retrieve", s.Retrieve)
	r.Put("/v1/collections/{collection}", s.CreateCollection)
	r.Post("/v1/collections/{collection}/documents", s.IngestDocuments)
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	var docs []domain.Document
	var err error
	switch {
	case len(req.Filters) > 0:
		f, ferr := buildRequestFilter(req)
		if ferr != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, ferr.Error())
			return
		}
		docs, err = s.retrieval.RetrieveFiltered(r.Context(), req.Query, f, req.Expand)
	case req.Topic != "":
		docs, err = s.retrieval.RetrieveByTopic(r.Context(), req.Query, req.Topic, req.Expand)
	default:
		docs, err = s.retrieval.Retrieve(r.Context(), req.Query, req.Expand)
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DocumentResponse, len(docs))
	for i := range docs {
		items[i] = documentToResponse(docs[i])
	}

	writeJSON(w, http.StatusOK, RetrieveResponse{
		Items: items,
		Total: len(items),
	})
}

// CreateCollection handles PUT /v1/collections/{collection}. Idempotent:
// an existing collection is left untouched.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	collection := chirouter.URLParam(r, "collection")
	if collection == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "collection name is required")
		return
	}

	if err := s.ingest.EnsureCollection(r.Context(), collection); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"collection": collection})
}

// IngestDocuments handles POST /v1/collections/{collection}/documents.
func (s *Server) IngestDocuments(w http.ResponseWriter, r *http.Request) {
	collection := chirouter.URLParam(r, "collection")
	if collection == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "collection name is required")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	chunks := make([]ingest.Chunk, len(req.Chunks))
	for i, c := range req.Chunks {
		chunks[i] = ingest.Chunk{ID: c.ID, Content: c.Content, Tags: c.Tags}
	}

	written, err := s.ingest.Ingest(r.Context(), collection, chunks)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{Written: written})
}

// Liveness handles GET /healthz. Process-up only, no dependency checks.
func (s *Server) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness handles GET /readyz.
func (s *Server) Readiness(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:      string(report.Status),
		Checks:      checks,
		Collections: report.Collections,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// buildRequestFilter translates the request's filter map (plus the topic
// shorthand, if both are set) into a domain filter. Keys are sorted so the
// resulting search expression is deterministic.
func buildRequestFilter(req RetrieveRequest) (filter.Filter, error) {
	keys := make([]string, 0, len(req.Filters))
	for k := range req.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]filter.Condition, 0, len(keys)+1)
	for _, k := range keys {
		c, err := filter.NewCondition(k, req.Filters[k]...)
		if err != nil {
			return filter.Filter{}, err
		}
		conditions = append(conditions, c)
	}

	if req.Topic != "" {
		c, err := filter.NewCondition("topic", req.Topic)
		if err != nil {
			return filter.Filter{}, err
		}
		conditions = append(conditions, c)
	}

	return filter.New(conditions...)
}

func documentToResponse(d domain.Document) DocumentResponse {
	meta := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		switch v.Kind() {
		case domain.KindNumber:
			meta[k] = v.Num()
		case domain.KindBool:
			meta[k] = v.IsTrue()
		default:
			meta[k] = v.Str()
		}
	}
	return DocumentResponse{Content: d.Content, Metadata: meta}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrCollectionNotFound,
		domain.ErrEmptyText,
		domain.ErrEmbeddingProvider,
		domain.ErrIndexQuery,
		domain.ErrRetrieval,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
