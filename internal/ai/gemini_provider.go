package ai

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/rajibrjb/AiResumeParserApi/internal/config"
	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
)

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         *config.AIConfig
	circuitBreaker *CompletionBreaker
	logger         *errors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(cfg *config.AIConfig, logger *errors.Logger) (*GeminiProvider, error) {
	if !looksConfigured(cfg.APIKey) {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"gemini API key is missing or too short", nil)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewCompletionBreaker("gemini", cfg.CircuitBreaker, logger),
		logger:         logger,
	}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) IsConfigured() bool { return looksConfigured(g.config.APIKey) }

func (g *GeminiProvider) Close() error { return nil }

// ParseResume extracts structured resume data. The configured model is tried
// first, then each fallback model in order. A fallback is attempted only when
// the call itself failed; a reply that decodes badly is returned as an error
// without trying further models.
func (g *GeminiProvider) ParseResume(ctx context.Context, text string, template map[string]any) (map[string]any, error) {
	tracer := otel.Tracer("resumeparser.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.parse_resume")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Int("input.text_length", len(text)),
		attribute.Bool("input.has_template", template != nil),
	)

	var prompt string
	if template != nil {
		prompt = buildTemplatePrompt(text, template)
	} else {
		prompt = buildOpenPrompt(text)
	}

	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   g.config.MaxOutputTokens,
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if g.config.Temperature >= 0 {
		genCfg.Temperature = genai.Ptr(g.config.Temperature)
	}

	var (
		raw     string
		lastErr error
	)
	for _, model := range g.candidateModels() {
		raw, lastErr = g.circuitBreaker.Execute(func() (string, error) {
			resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), genCfg)
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		})
		if lastErr == nil {
			span.SetAttributes(attribute.String("ai.model.used", model))
			break
		}
		g.logger.Warn("Gemini model call failed",
			"model", model,
			"error", lastErr.Error())
	}
	if lastErr != nil {
		span.RecordError(lastErr)
		return nil, g.classifyError(lastErr)
	}

	result, err := finishParse("gemini", raw, template)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("success", true))
	return result, nil
}

// TestConnection issues a minimal round trip. Diagnostic only, all failures
// collapse to false.
func (g *GeminiProvider) TestConnection(ctx context.Context) bool {
	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model,
		genai.Text(connectionTestPrompt), &genai.GenerateContentConfig{})
	if err != nil {
		g.logger.Debug("Gemini connection test failed", "error", err.Error())
		return false
	}
	return strings.TrimSpace(resp.Text()) != ""
}

// candidateModels returns the configured model followed by the fallbacks,
// skipping duplicates.
func (g *GeminiProvider) candidateModels() []string {
	models := []string{g.config.Model}
	for _, m := range g.config.FallbackModels {
		if m != "" && m != g.config.Model {
			models = append(models, m)
		}
	}
	return models
}

func (g *GeminiProvider) classifyError(err error) error {
	var apiErr *googleapi.Error
	if goerrors.As(err, &apiErr) {
		return classifyAPIError("gemini", apiErr.Code, apiErr.Message)
	}
	return errors.NewAIError(errors.ErrCodeAIParseFailed,
		fmt.Sprintf("gemini request failed: %v", err), err)
}
