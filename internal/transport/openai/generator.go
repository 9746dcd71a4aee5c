package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/campuskit/studyrag/internal/domain"
	"github.com/campuskit/studyrag/internal/metrics"
)

// Generator is a chat-completion text generator using the OpenAI-compatible API.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	purpose     string
	logger      *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Purpose     string // metrics label: "expand" / "compress"
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion client.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		purpose:     cfg.Purpose,
		logger:      cfg.Logger,
	}
}

// Generate implements domain.Generator. Sends one system plus one user
// message and returns the first choice's content.
func (g *Generator) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, g.purpose, "error").Inc()
		return "", classifyGenerationError(err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, g.purpose, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model, g.purpose).Observe(duration.Seconds())

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationProvider)
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyGenerationError separates provider-level outages (unreachable host,
// bad credentials) from per-request failures. Outages wrap
// domain.ErrGenerationUnavailable so callers can abort a whole stage instead
// of retrying document by document.
func classifyGenerationError(err error) error {
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return fmt.Errorf("generation provider unreachable: %w", domain.ErrGenerationUnavailable)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden {
			return fmt.Errorf("generation API auth error %d: %s: %w",
				apiErr.HTTPStatusCode, apiErr.Message, domain.ErrGenerationUnavailable)
		}
		return fmt.Errorf("generation API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrGenerationProvider)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden {
			return fmt.Errorf("generation API auth error %d: %w",
				reqErr.HTTPStatusCode, domain.ErrGenerationUnavailable)
		}
		return fmt.Errorf("generation API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrGenerationProvider)
	}

	return fmt.Errorf("generation request failed: %w", domain.ErrGenerationProvider)
}
