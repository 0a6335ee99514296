// Package parser sequences one resume upload through text extraction, the
// model gateway and template reconciliation.
package parser

import (
	"context"
	"strings"

	"github.com/rajibrjb/AiResumeParserApi/internal/ai"
	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
	"github.com/rajibrjb/AiResumeParserApi/internal/extract"
	"github.com/rajibrjb/AiResumeParserApi/internal/types"
)

// Service orchestrates one parse request end to end. Exactly one attempt per
// request, no retries.
type Service struct {
	provider ai.Provider
	logger   *errors.Logger
}

// NewService creates a parsing service on top of a constructed provider.
func NewService(provider ai.Provider, logger *errors.Logger) *Service {
	return &Service{
		provider: provider,
		logger:   logger,
	}
}

// Parse validates the gateway, extracts text from the uploaded document and
// asks the provider for structured resume data.
func (s *Service) Parse(ctx context.Context, input types.ParseResumeInput) (*types.ParseResumeOutput, error) {
	if !s.provider.IsConfigured() {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"AI provider is not configured", nil).
			WithContext("provider", s.provider.Name())
	}

	text, err := extract.Text(input.FileData, input.MimeType, input.Filename)
	if err != nil {
		return nil, s.rewrap(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeEmptyDocument,
			"document contains no extractable text", nil).
			WithContext("filename", input.Filename)
	}

	s.logger.Debug("Parsing resume",
		"provider", s.provider.Name(),
		"filename", input.Filename,
		"text_length", len(text),
		"has_template", input.Template != nil)

	data, err := s.provider.ParseResume(ctx, text, input.Template)
	if err != nil {
		return nil, s.rewrap(err)
	}

	return &types.ParseResumeOutput{
		Data:     data,
		Provider: s.provider.Name(),
		Filename: input.Filename,
	}, nil
}

// ProviderName returns the configured gateway's name.
func (s *Service) ProviderName() string { return s.provider.Name() }

// ProviderConfigured reports whether the gateway holds a plausible credential.
func (s *Service) ProviderConfigured() bool { return s.provider.IsConfigured() }

// ProviderConnected performs a live round trip to the provider.
func (s *Service) ProviderConnected(ctx context.Context) bool {
	return s.provider.TestConnection(ctx)
}

// rewrap classifies lower-level failures. Provider, extraction and validation
// errors carry a useful message and pass through unchanged; everything else
// becomes a generic parsing failure with the cause attached.
func (s *Service) rewrap(err error) error {
	if appErr, ok := err.(*errors.AppError); ok {
		switch appErr.Type {
		case errors.ErrorTypeAI, errors.ErrorTypeExtraction, errors.ErrorTypeValidation, errors.ErrorTypeConfig:
			return appErr
		}
	}
	return errors.NewInternalError(errors.ErrCodeParsingFailed,
		"resume parsing failed", err)
}
