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

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements Provider for the OpenAI chat completions API and
// any OpenAI-compatible endpoint configured via ai.endpoint.
type OpenAIProvider struct {
	httpClient     *http.Client
	baseURL        string
	config         *config.AIConfig
	circuitBreaker *CompletionBreaker
	logger         *errors.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(cfg *config.AIConfig, logger *errors.Logger) (*OpenAIProvider, error) {
	if !looksConfigured(cfg.APIKey) {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"openai API key is missing or too short", nil)
	}

	baseURL := openAIDefaultBaseURL
	if cfg.Endpoint != "" {
		baseURL = strings.TrimRight(cfg.Endpoint, "/")
	}

	return &OpenAIProvider{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        baseURL,
		config:         cfg,
		circuitBreaker: NewCompletionBreaker("openai", cfg.CircuitBreaker, logger),
		logger:         logger,
	}, nil
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) IsConfigured() bool { return looksConfigured(o.config.APIKey) }

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// ParseResume extracts structured resume data via chat completions.
func (o *OpenAIProvider) ParseResume(ctx context.Context, text string, template map[string]any) (map[string]any, error) {
	tracer := otel.Tracer("resumeparser.ai.openai")
	ctx, span := tracer.Start(ctx, "openai.parse_resume")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", o.config.Model),
		attribute.Int("input.text_length", len(text)),
		attribute.Bool("input.has_template", template != nil),
	)

	var prompt string
	if template != nil {
		prompt = buildTemplatePrompt(text, template)
	} else {
		prompt = buildOpenPrompt(text)
	}

	raw, err := o.circuitBreaker.Execute(func() (string, error) {
		return o.complete(ctx, prompt)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := finishParse("openai", raw, template)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("success", true))
	return result, nil
}

// TestConnection issues a minimal round trip. Diagnostic only, all failures
// collapse to false.
func (o *OpenAIProvider) TestConnection(ctx context.Context) bool {
	raw, err := o.complete(ctx, connectionTestPrompt)
	if err != nil {
		o.logger.Debug("OpenAI connection test failed", "error", err.Error())
		return false
	}
	return strings.TrimSpace(raw) != ""
}

func (o *OpenAIProvider) complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":           o.config.Model,
		"temperature":     o.config.Temperature,
		"max_tokens":      o.config.MaxOutputTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}

	headers := map[string]string{
		"Authorization": "Bearer " + o.config.APIKey,
	}
	if o.config.Organization != "" {
		headers["OpenAI-Organization"] = o.config.Organization
	}

	status, raw, err := postJSON(ctx, o.httpClient, o.baseURL+"/chat/completions", headers, body)
	if err != nil {
		return "", errors.NewAIError(errors.ErrCodeAIParseFailed,
			fmt.Sprintf("openai request failed: %v", err), err)
	}
	if status < 200 || status >= 300 {
		return "", classifyAPIError("openai", status, string(raw))
	}

	var envelope struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", errors.NewAIError(errors.ErrCodeAIBadResponse,
			"openai returned an unreadable response envelope", err)
	}
	if len(envelope.Choices) == 0 {
		return "", errors.NewAIError(errors.ErrCodeAIBadResponse,
			"openai returned no choices", nil)
	}
	return envelope.Choices[0].Message.Content, nil
}
