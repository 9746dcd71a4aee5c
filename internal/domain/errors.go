package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText signals an attempt to embed empty or whitespace-only text.
	ErrEmptyText = errors.New("text is empty")
	// ErrCollectionNotFound signals a missing vector collection. Non-retryable.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationProvider signals a text-generation provider failure.
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrGenerationUnavailable signals that the generation provider cannot be
	// reached at all (connection or auth failure, not a per-request error).
	ErrGenerationUnavailable = errors.New("generation provider unavailable")
	// ErrIndexQuery signals a vector index query failure after retry exhaustion.
	ErrIndexQuery = errors.New("vector index query failed")
	// ErrRetrieval signals a total retrieval pipeline failure.
	ErrRetrieval = errors.New("retrieval failed")
)

// EmbeddingError wraps ErrEmbeddingProvider with the length of the failing
// text. The text itself is deliberately omitted so user content never leaks
// into logs or error chains.
type EmbeddingError struct {
	TextLen int
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for text of %d chars: %v", e.TextLen, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// NewEmbeddingError creates an EmbeddingError, wrapping ErrEmbeddingProvider
// when the cause does not already carry it.
func NewEmbeddingError(textLen int, cause error) error {
	if !errors.Is(cause, ErrEmbeddingProvider) {
		cause = fmt.Errorf("%w: %w", ErrEmbeddingProvider, cause)
	}
	return &EmbeddingError{TextLen: textLen, Err: cause}
}

// QueryError wraps ErrIndexQuery with the collection name and requested limit.
type QueryError struct {
	Collection string
	Limit      int
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("search failed in collection %q (limit %d): %v", e.Collection, e.Limit, e.Err)
}

// Unwrap exposes both the sentinel and the cause, so callers can match
// ErrIndexQuery as well as whatever actually failed underneath.
func (e *QueryError) Unwrap() []error { return []error{ErrIndexQuery, e.Err} }

// NewQueryError creates a QueryError.
func NewQueryError(collection string, limit int, cause error) error {
	return &QueryError{Collection: collection, Limit: limit, Err: cause}
}

// RetrievalError is the single caller-visible pipeline failure. It carries
// the query and the target collection, never a raw transport error.
type RetrievalError struct {
	Query      string
	Collection string
	Err        error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed for query %q in collection %q: %v", e.Query, e.Collection, e.Err)
}

// Unwrap exposes both the sentinel and the cause. Validation failures deep
// in the pipeline (an empty text reaching the embedder, say) stay matchable
// through the wrapper.
func (e *RetrievalError) Unwrap() []error { return []error{ErrRetrieval, e.Err} }

// NewRetrievalError creates a RetrievalError.
func NewRetrievalError(query, collection string, cause error) error {
	return &RetrievalError{Query: query, Collection: collection, Err: cause}
}
