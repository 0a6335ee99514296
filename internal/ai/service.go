package ai

import (
	"fmt"

	"github.com/rajibrjb/AiResumeParserApi/internal/config"
	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
)

// Service holds the provider selected at startup.
type Service struct {
	Provider Provider // Exported for access from server package
	config   *config.AIConfig
	logger   *errors.Logger
}

// NewService creates the AI service, constructing the provider named by the
// configuration. Unknown provider tags and missing credentials fail fast.
func NewService(cfg *config.AIConfig, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature,
		"timeout", cfg.Timeout)

	var (
		provider Provider
		err      error
	)
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, logger)
	case "openai":
		provider, err = NewOpenAIProvider(cfg, logger)
	case "anthropic":
		provider, err = NewAnthropicProvider(cfg, logger)
	case "azure":
		provider, err = NewAzureProvider(cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}

	return &Service{
		Provider: provider,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Close releases provider resources.
func (s *Service) Close() error {
	return s.Provider.Close()
}
