package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestQueryError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewQueryError("study_materials", 5, cause)

	if !errors.Is(err, ErrIndexQuery) {
		t.Error("expected ErrIndexQuery in chain")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}

	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatal("expected *QueryError")
	}
	if qe.Collection != "study_materials" || qe.Limit != 5 {
		t.Errorf("got collection %q limit %d", qe.Collection, qe.Limit)
	}
}

func TestRetrievalError_MatchesSentinelAndCause(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  error
	}{
		{"empty text", fmt.Errorf("embed: %w", ErrEmptyText), ErrEmptyText},
		{"embedding provider", NewEmbeddingError(12, errors.New("boom")), ErrEmbeddingProvider},
		{"index query", NewQueryError("c", 3, errors.New("timeout")), ErrIndexQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRetrievalError("q", "c", tt.cause)
			if !errors.Is(err, ErrRetrieval) {
				t.Error("expected ErrRetrieval in chain")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v in chain", tt.want)
			}
		})
	}
}

func TestEmbeddingError_WrapsProviderSentinelOnce(t *testing.T) {
	inner := NewEmbeddingError(4, errors.New("boom"))
	outer := NewEmbeddingError(4, inner)

	if !errors.Is(outer, ErrEmbeddingProvider) {
		t.Error("expected ErrEmbeddingProvider in chain")
	}

	var ee *EmbeddingError
	if !errors.As(outer, &ee) {
		t.Fatal("expected *EmbeddingError")
	}
	// Already carrying the sentinel, the cause must not be re-wrapped.
	if ee.Err != inner {
		t.Errorf("cause re-wrapped: %v", ee.Err)
	}
}
