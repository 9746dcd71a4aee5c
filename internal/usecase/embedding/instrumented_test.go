package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/retry"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	errs       []error // consumed per call; nil entry means success
	calls      int
	batchCalls int
}

func (m *mockEmbedder) nextErr(call int) error {
	if call <= len(m.errs) {
		return m.errs[call-1]
	}
	return nil
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if err := m.nextErr(m.calls); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return m.result, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if err := m.nextErr(m.batchCalls); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:     attempts,
		InitialInterval: 1,
		MaxInterval:     1,
		Multiplier:      1,
	}
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", fastRetry(3), zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}

func TestInstrumentedEmbedder_RetriesTransient(t *testing.T) {
	inner := &mockEmbedder{
		result: domain.EmbeddingResult{Embedding: []float32{0.1}},
		errs:   []error{errors.New("timeout"), errors.New("timeout")},
	}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", fastRetry(3), zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
	if len(result.Embedding) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInstrumentedEmbedder_ExhaustionWrapsEmbeddingError(t *testing.T) {
	inner := &mockEmbedder{
		errs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", fastRetry(3), zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}

	var embErr *domain.EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatalf("expected *domain.EmbeddingError, got %T: %v", err, err)
	}
	if embErr.TextLen != len("hello") {
		t.Errorf("TextLen = %d, want %d", embErr.TextLen, len("hello"))
	}
}

func TestInstrumentedEmbedder_EmptyTextNotRetried(t *testing.T) {
	inner := &mockEmbedder{
		errs: []error{domain.ErrEmptyText, domain.ErrEmptyText, domain.ErrEmptyText},
	}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", fastRetry(3), zap.NewNop())

	_, err := p.Embed(context.Background(), "   ")
	if !errors.Is(err, domain.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("validation errors must not be retried, got %d calls", inner.calls)
	}
}

func TestInstrumentedEmbedder_BatchRetries(t *testing.T) {
	inner := &mockEmbedder{
		result: domain.EmbeddingResult{Embedding: []float32{0.5}},
		errs:   []error{errors.New("timeout")},
	}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", fastRetry(2), zap.NewNop())

	result, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 2 {
		t.Errorf("expected 2 batch calls, got %d", inner.batchCalls)
	}
	if len(result.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result.Embeddings))
	}
}
