// Package embedding wraps the embedding provider chain with retry and
// logging. Transport metrics (requests, duration, tokens) are recorded in
// transport/openai; this layer owns retries and slow-call visibility.
package embedding

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/retry"
)

// embedder is what the decorator requires from the wrapped chain.
type embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// InstrumentedEmbedder retries transient embedding failures and logs outcomes.
type InstrumentedEmbedder struct {
	inner    embedder
	provider string
	model    string
	retry    retry.Policy
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with retry and observability.
func NewInstrumentedEmbedder(
	inner embedder, provider, model string,
	policy retry.Policy, logger *zap.Logger,
) *InstrumentedEmbedder {
	if policy.Retryable == nil {
		policy.Retryable = retryableEmbedding
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		retry:    policy,
		logger:   logger,
	}
}

// retryableEmbedding excludes input validation failures from retry: an empty
// text stays empty no matter how often it is sent.
func retryableEmbedding(err error) bool {
	return !errors.Is(err, domain.ErrEmptyText)
}

// Embed delegates to the inner embedder under the retry policy.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	var result domain.EmbeddingResult
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		result, embedErr = p.inner.Embed(ctx, text)
		return embedErr
	})

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, domain.NewEmbeddingError(len(text), err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed delegates to the inner embedder under the retry policy.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	start := time.Now()

	var result domain.BatchEmbeddingResult
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		result, embedErr = p.inner.BatchEmbed(ctx, texts)
		return embedErr
	})

	duration := time.Since(start)

	if err != nil {
		totalLen := 0
		for _, t := range texts {
			totalLen += len(t)
		}
		p.logger.Error("Batch embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("batch_size", len(texts)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.BatchEmbeddingResult{}, domain.NewEmbeddingError(totalLen, err)
	}

	p.logger.Debug("Batch embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Int("batch_size", len(texts)),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
