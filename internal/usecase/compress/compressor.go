// Package compress shrinks retrieved documents to the parts relevant to the
// question, under a total token budget. The LLM is asked to extract relevant
// passages; irrelevant documents are dropped entirely.
package compress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/metrics"
)

// notRelevantSentinel is the exact reply the model must give for documents
// that contain nothing related to the question.
const notRelevantSentinel = "NOT_RELEVANT"

const systemPrompt = `Given a question and a document, extract only the parts of the document
that are relevant to answering the question. Keep the extracted text verbatim,
do not paraphrase or summarize. If nothing in the document is relevant,
reply with exactly ` + notRelevantSentinel + ` and nothing else.`

// Compressor reduces documents to question-relevant extracts within a budget.
type Compressor struct {
	generator domain.Generator
	logger    *zap.Logger
}

// New creates a contextual compressor.
func New(generator domain.Generator, logger *zap.Logger) *Compressor {
	return &Compressor{generator: generator, logger: logger}
}

// estimateTokens approximates token count as length/4, the usual
// characters-per-token heuristic for English and similar languages.
func estimateTokens(text string) int {
	return len(text) / 4
}

// Compress processes documents in order until the budget is exhausted.
// Documents whose original content would overflow the remaining budget stop
// the loop. Per-document generation failures keep the original content; a
// provider-level outage aborts compression and falls back to truncation.
func (c *Compressor) Compress(ctx context.Context, query string, docs []domain.Document, budget int) []domain.Document {
	if len(docs) == 0 {
		return nil
	}

	out := make([]domain.Document, 0, len(docs))
	running := 0

	for i := range docs {
		doc := docs[i]

		if running+estimateTokens(doc.Content) > budget {
			c.logger.Debug("Context budget reached, dropping remaining documents",
				zap.Int("kept", len(out)),
				zap.Int("dropped", len(docs)-i))
			metrics.CompressionDroppedTotal.WithLabelValues("budget").Add(float64(len(docs) - i))
			break
		}

		compressed, err := c.compressOne(ctx, query, doc.Content)
		if err != nil {
			if errors.Is(err, domain.ErrGenerationUnavailable) {
				c.logger.Warn("Compression provider unavailable, falling back to truncation",
					zap.Error(err))
				return truncateFallback(docs, budget)
			}
			c.logger.Warn("Document compression failed, keeping original content",
				zap.String("id", doc.ID()),
				zap.Error(err))
			out = append(out, doc)
			running += estimateTokens(doc.Content)
			continue
		}

		if compressed == notRelevantSentinel {
			metrics.CompressionDroppedTotal.WithLabelValues("not_relevant").Inc()
			continue
		}

		meta := doc.CloneMetadata(4)
		meta["compressed"] = domain.Bool(true)
		meta["original_length"] = domain.Number(float64(len(doc.Content)))
		meta["compressed_length"] = domain.Number(float64(len(compressed)))
		meta["compression_ratio"] = domain.Number(compressionRatio(len(doc.Content), len(compressed)))

		metrics.CompressionRatio.Observe(compressionRatio(len(doc.Content), len(compressed)))

		out = append(out, domain.Document{Content: compressed, Metadata: meta})
		running += estimateTokens(compressed)
	}

	return out
}

func (c *Compressor) compressOne(ctx context.Context, query, content string) (string, error) {
	userMessage := fmt.Sprintf("Question: %s\n\nDocument:\n%s", query, content)

	reply, err := c.generator.Generate(ctx, systemPrompt, userMessage)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func compressionRatio(originalLen, compressedLen int) float64 {
	if originalLen == 0 {
		return 0
	}
	return float64(compressedLen) / float64(originalLen)
}

// truncateFallback keeps whole documents up to the budget, truncating the
// first overflowing one and dropping the rest. Used when the compression
// stage cannot run at all.
func truncateFallback(docs []domain.Document, budget int) []domain.Document {
	out := make([]domain.Document, 0, len(docs))
	running := 0

	for i := range docs {
		doc := docs[i]
		tokens := estimateTokens(doc.Content)

		if running+tokens <= budget {
			out = append(out, doc)
			running += tokens
			continue
		}

		remaining := budget - running
		if remaining > 0 {
			// Back off to a rune boundary so the cut never splits a
			// multi-byte character.
			cut := remaining * 4
			for cut > 0 && !utf8.RuneStart(doc.Content[cut]) {
				cut--
			}
			meta := doc.CloneMetadata(1)
			meta["truncated"] = domain.Bool(true)
			out = append(out, domain.Document{
				Content:  doc.Content[:cut] + "...",
				Metadata: meta,
			})
		}
		break
	}

	return out
}
