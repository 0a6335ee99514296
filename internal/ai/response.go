package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
	"github.com/rajibrjb/AiResumeParserApi/internal/reconcile"
)

// extractJSON recovers the JSON object from a model's text reply. Models
// frequently wrap the body in Markdown fences or surround it with prose, so
// fences are stripped and the text is sliced from the first '{' to the last
// '}' before decoding.
func extractJSON(provider, raw string) (map[string]any, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, errors.NewAIError(errors.ErrCodeAIBadResponse,
			fmt.Sprintf("%s returned no JSON object", provider), nil).
			WithContext("response_length", len(raw))
	}
	cleaned = cleaned[start : end+1]

	var candidate map[string]any
	if err := json.Unmarshal([]byte(cleaned), &candidate); err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIBadResponse,
			fmt.Sprintf("%s returned malformed JSON", provider), err).
			WithContext("response_length", len(raw))
	}
	return candidate, nil
}

// finishParse turns a raw completion into the final result: decode the JSON
// body, then coerce it into the template's shape when one was supplied.
func finishParse(provider, raw string, template map[string]any) (map[string]any, error) {
	candidate, err := extractJSON(provider, raw)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return candidate, nil
	}
	return reconcile.Reconcile(template, candidate).(map[string]any), nil
}

// classifyAPIError maps a non-2xx provider response to a human-readable error.
// Classification is by status code plus message-substring sniffing, since the
// providers disagree on error envelopes.
func classifyAPIError(provider string, statusCode int, body string) error {
	lower := strings.ToLower(body)

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden ||
		strings.Contains(lower, "invalid api key") || strings.Contains(lower, "invalid x-api-key") ||
		strings.Contains(lower, "authentication") || strings.Contains(lower, "unauthorized"):
		return errors.NewAIError(errors.ErrCodeAIParseFailed,
			fmt.Sprintf("%s rejected the API key, check the configured credential", provider), nil)
	case strings.Contains(lower, "insufficient_quota") || strings.Contains(lower, "quota") ||
		strings.Contains(lower, "billing"):
		return errors.NewAIError(errors.ErrCodeAIParseFailed,
			fmt.Sprintf("%s quota or billing limit reached", provider), nil)
	case statusCode == http.StatusTooManyRequests || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate_limit"):
		return errors.NewAIError(errors.ErrCodeAIParseFailed,
			fmt.Sprintf("%s rate limit exceeded, retry later", provider), nil)
	default:
		return errors.NewAIError(errors.ErrCodeAIParseFailed,
			fmt.Sprintf("%s request failed with status %d", provider, statusCode), nil).
			WithContext("response_body", truncate(body, 512))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// minKeyLength is the cheapest possible credential sanity check.
const minKeyLength = 8

func looksConfigured(apiKey string) bool {
	return len(strings.TrimSpace(apiKey)) >= minKeyLength
}
