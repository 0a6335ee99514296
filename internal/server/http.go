// Package server exposes the parsing service over HTTP: a multipart upload
// endpoint, health and stats endpoints, and quota administration, behind
// API-key auth, a per-minute limiter and the daily quota gate.
package server

import (
	"net/http"

	"github.com/rajibrjb/AiResumeParserApi/internal/config"
	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
	"github.com/rajibrjb/AiResumeParserApi/internal/observability"
	"github.com/rajibrjb/AiResumeParserApi/internal/parser"
	"github.com/rajibrjb/AiResumeParserApi/internal/quota"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// QuotaResetRequest is the request body for the quota reset endpoint.
type QuotaResetRequest struct {
	Identity string `json:"identity"`
}

// Server holds the HTTP server and everything the handlers need.
type Server struct {
	Version string

	AppConfig *config.Config

	Parser    *parser.Service
	Quota     *quota.Counter
	Templates *config.TemplateStore
	Obs       *observability.Manager

	// API keys as a set for O(1) lookup
	APIKeys map[string]bool

	MaxRequestSize int64

	RateLimiter *LimiterManager

	Logger *errors.Logger
}

// Dependencies carries the constructed services a Server runs on. Quota may be
// nil when the daily quota is disabled.
type Dependencies struct {
	Version   string
	Parser    *parser.Service
	Quota     *quota.Counter
	Templates *config.TemplateStore
	Obs       *observability.Manager
}

// NewServer wires a Server from configuration and constructed dependencies.
func NewServer(cfg *config.Config, deps Dependencies, logger *errors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.Server.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *LimiterManager
	if cfg.Server.RateLimit.Enabled {
		rateLimiter = NewLimiterManager(
			cfg.Server.RateLimit.RequestsPerMin,
			cfg.Server.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Version:        deps.Version,
		AppConfig:      cfg,
		Parser:         deps.Parser,
		Quota:          deps.Quota,
		Templates:      deps.Templates,
		Obs:            deps.Obs,
		APIKeys:        apiKeyMap,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}

// statusForError maps the error taxonomy to HTTP status codes.
func statusForError(err error) int {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case errors.ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation, errors.ErrorTypeExtraction:
		return http.StatusBadRequest
	case errors.ErrorTypeConfig:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeAI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
