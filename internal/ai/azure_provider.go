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

// AzureProvider implements Provider for Azure OpenAI deployments. The
// configured model name doubles as the deployment name and the endpoint is
// the resource URL, e.g. https://myresource.openai.azure.com.
type AzureProvider struct {
	httpClient     *http.Client
	config         *config.AIConfig
	circuitBreaker *CompletionBreaker
	logger         *errors.Logger
}

var _ Provider = (*AzureProvider)(nil)

// NewAzureProvider creates a new Azure OpenAI provider instance
func NewAzureProvider(cfg *config.AIConfig, logger *errors.Logger) (*AzureProvider, error) {
	if !looksConfigured(cfg.APIKey) {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"azure API key is missing or too short", nil)
	}
	if cfg.Endpoint == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"azure provider requires an endpoint", nil)
	}

	return &AzureProvider{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		config:         cfg,
		circuitBreaker: NewCompletionBreaker("azure", cfg.CircuitBreaker, logger),
		logger:         logger,
	}, nil
}

func (az *AzureProvider) Name() string { return "azure" }

func (az *AzureProvider) IsConfigured() bool {
	return looksConfigured(az.config.APIKey) && az.config.Endpoint != ""
}

func (az *AzureProvider) Close() error {
	az.httpClient.CloseIdleConnections()
	return nil
}

// ParseResume extracts structured resume data via an Azure OpenAI deployment.
func (az *AzureProvider) ParseResume(ctx context.Context, text string, template map[string]any) (map[string]any, error) {
	tracer := otel.Tracer("resumeparser.ai.azure")
	ctx, span := tracer.Start(ctx, "azure.parse_resume")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "azure"),
		attribute.String("ai.model", az.config.Model),
		attribute.Int("input.text_length", len(text)),
		attribute.Bool("input.has_template", template != nil),
	)

	var prompt string
	if template != nil {
		prompt = buildTemplatePrompt(text, template)
	} else {
		prompt = buildOpenPrompt(text)
	}

	raw, err := az.circuitBreaker.Execute(func() (string, error) {
		return az.complete(ctx, prompt)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := finishParse("azure", raw, template)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("success", true))
	return result, nil
}

// TestConnection issues a minimal round trip. Diagnostic only, all failures
// collapse to false.
func (az *AzureProvider) TestConnection(ctx context.Context) bool {
	raw, err := az.complete(ctx, connectionTestPrompt)
	if err != nil {
		az.logger.Debug("Azure connection test failed", "error", err.Error())
		return false
	}
	return strings.TrimSpace(raw) != ""
}

func (az *AzureProvider) complete(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(az.config.Endpoint, "/"), az.config.Model, az.config.APIVersion)

	body := map[string]any{
		"temperature":     az.config.Temperature,
		"max_tokens":      az.config.MaxOutputTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}

	headers := map[string]string{
		"api-key": az.config.APIKey,
	}

	status, raw, err := postJSON(ctx, az.httpClient, url, headers, body)
	if err != nil {
		return "", errors.NewAIError(errors.ErrCodeAIParseFailed,
			fmt.Sprintf("azure request failed: %v", err), err)
	}
	if status < 200 || status >= 300 {
		return "", classifyAPIError("azure", status, string(raw))
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
			"azure returned an unreadable response envelope", err)
	}
	if len(envelope.Choices) == 0 {
		return "", errors.NewAIError(errors.ErrCodeAIBadResponse,
			"azure returned no choices", nil)
	}
	return envelope.Choices[0].Message.Content, nil
}
