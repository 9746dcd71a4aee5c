// Package expand turns one user question into several search-friendly
// paraphrases via an LLM. Expansion is best-effort: any failure degrades to
// the original query alone.
package expand

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/domain"
)

const systemPrompt = `You are an AI assistant helping a student search their study materials.
Generate %d different rephrasings of the user's question so that a vector
similarity search can match relevant passages from multiple angles. Use the
same language as the question. Return one rephrasing per line, without
numbering or any extra text.`

// leadingNumbering strips list markers like "1." or "2)" the model sometimes
// prepends despite instructions.
var leadingNumbering = regexp.MustCompile(`^\d{1,2}[.)]\s*`)

// Expander generates alternative phrasings of a query.
type Expander struct {
	generator domain.Generator
	logger    *zap.Logger
}

// New creates a query expander.
func New(generator domain.Generator, logger *zap.Logger) *Expander {
	return &Expander{generator: generator, logger: logger}
}

// Expand returns the original query followed by up to count paraphrases.
// The original is always first; duplicates are dropped. On any generation
// failure the original query alone is returned, never an error.
func (e *Expander) Expand(ctx context.Context, query string, count int) []string {
	if count <= 0 {
		return []string{query}
	}

	raw, err := e.generator.Generate(ctx, fmt.Sprintf(systemPrompt, count), query)
	if err != nil {
		e.logger.Warn("Query expansion failed, using original query only",
			zap.Error(err))
		return []string{query}
	}

	variants := []string{query}
	seen := map[string]bool{query: true}

	for _, line := range strings.Split(raw, "\n") {
		variant := leadingNumbering.ReplaceAllString(strings.TrimSpace(line), "")
		if variant == "" || seen[variant] {
			continue
		}
		seen[variant] = true
		variants = append(variants, variant)

		if len(variants) == count+1 {
			break
		}
	}

	return variants
}
