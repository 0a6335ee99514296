package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rajibrjb/AiResumeParserApi/internal/config"
	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicProvider implements Provider for the Anthropic messages API.
type AnthropicProvider struct {
	httpClient     *http.Client
	baseURL        string
	config         *config.AIConfig
	circuitBreaker *CompletionBreaker
	logger         *errors.Logger
}

var _ Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider(cfg *config.AIConfig, logger *errors.Logger) (*AnthropicProvider, error) {
	if !looksConfigured(cfg.APIKey) {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"anthropic API key is missing or too short", nil)
	}

	baseURL := anthropicBaseURL
	if cfg.Endpoint != "" {
		baseURL = strings.TrimRight(cfg.Endpoint, "/")
	}

	return &AnthropicProvider{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        baseURL,
		config:         cfg,
		circuitBreaker: NewCompletionBreaker("anthropic", cfg.CircuitBreaker, logger),
		logger:         logger,
	}, nil
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) IsConfigured() bool { return looksConfigured(a.config.APIKey) }

func (a *AnthropicProvider) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// ParseResume extracts structured resume data via the messages API.
func (a *AnthropicProvider) ParseResume(ctx context.Context, text string, template map[string]any) (map[string]any, error) {
	tracer := otel.Tracer("resumeparser.ai.anthropic")
	ctx, span := tracer.Start(ctx, "anthropic.parse_resume")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "anthropic"),
		attribute.String("ai.model", a.config.Model),
		attribute.Int("input.text_length", len(text)),
		attribute.Bool("input.has_template", template != nil),
	)

	var prompt string
	if template != nil {
		prompt = buildTemplatePrompt(text, template)
	} else {
		prompt = buildOpenPrompt(text)
	}

	raw, err := a.circuitBreaker.Execute(func() (string, error) {
		return a.complete(ctx, prompt)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := finishParse("anthropic", raw, template)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("success", true))
	return result, nil
}

// TestConnection issues a minimal round trip. Diagnostic only, all failures
// collapse to false.
func (a *AnthropicProvider) TestConnection(ctx context.Context) bool {
	raw, err := a.complete(ctx, connectionTestPrompt)
	if err != nil {
		a.logger.Debug("Anthropic connection test failed", "error", err.Error())
		return false
	}
	return strings.TrimSpace(raw) != ""
}

func (a *AnthropicProvider) complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":       a.config.Model,
		"max_tokens":  a.config.MaxOutputTokens,
		"temperature": a.config.Temperature,
		"system":      systemPrompt,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}

	headers := map[string]string{
		"x-api-key":         a.config.APIKey,
		"anthropic-version": anthropicAPIVersion,
	}

	status, raw, err := postJSON(ctx, a.httpClient, a.baseURL+"/messages", headers, body)
	if err != nil {
		return "", errors.NewAIError(errors.ErrCodeAIParseFailed,
			fmt.Sprintf("anthropic request failed: %v", err), err)
	}
	if status < 200 || status >= 300 {
		return "", classifyAPIError("anthropic", status, string(raw))
	}

	var envelope struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", errors.NewAIError(errors.ErrCodeAIBadResponse,
			"anthropic returned an unreadable response envelope", err)
	}
	for _, block := range envelope.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.NewAIError(errors.ErrCodeAIBadResponse,
		"anthropic returned no text content", nil)
}
