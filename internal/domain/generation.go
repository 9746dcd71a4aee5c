package domain

import "context"

// Generator is the text-generation collaborator used by query expansion and
// contextual compression. The provider may retry or fall back internally;
// this layer only sees the final text or an error.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
