package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rajibrjb/AiResumeParserApi/internal/config"
	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
)

func testLogger(t *testing.T) *errors.Logger {
	t.Helper()
	logger, err := errors.New("error")
	if err != nil {
		t.Fatal(err)
	}
	return logger
}

func baseAIConfig(provider string) *config.AIConfig {
	return &config.AIConfig{
		Provider:        provider,
		Model:           "test-model",
		APIKey:          "test-key-1234567890",
		Timeout:         5 * time.Second,
		Temperature:     0.1,
		MaxOutputTokens: 1024,
	}
}

func TestNewServiceUnknownProvider(t *testing.T) {
	cfg := baseAIConfig("watson")
	if _, err := NewService(cfg, testLogger(t)); err == nil {
		t.Fatal("unknown provider tag must fail fast")
	}
}

func TestNewServiceMissingKey(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic"} {
		cfg := baseAIConfig(provider)
		cfg.APIKey = ""
		if _, err := NewService(cfg, testLogger(t)); err == nil {
			t.Errorf("%s: missing API key must fail fast", provider)
		}
	}
}

func TestNewServiceAzureRequiresEndpoint(t *testing.T) {
	cfg := baseAIConfig("azure")
	if _, err := NewService(cfg, testLogger(t)); err == nil {
		t.Fatal("azure without an endpoint must fail fast")
	}
}

func TestNewServiceBuildsConfiguredProvider(t *testing.T) {
	cfg := baseAIConfig("openai")
	svc, err := NewService(cfg, testLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	if svc.Provider.Name() != "openai" {
		t.Errorf("provider = %q, want openai", svc.Provider.Name())
	}
	if !svc.Provider.IsConfigured() {
		t.Error("provider with a plausible key should report configured")
	}
}

// chatCompletionStub serves an OpenAI-style chat completions endpoint that
// replies with content.
func chatCompletionStub(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key-1234567890" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(content))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
}

func TestOpenAIProviderParseResume(t *testing.T) {
	srv := chatCompletionStub(t, "```json\n{\"full_name\":\"Jane Doe\",\"skills\":[\"Go\"]}\n```", http.StatusOK)
	defer srv.Close()

	cfg := baseAIConfig("openai")
	cfg.Endpoint = srv.URL
	provider, err := NewOpenAIProvider(cfg, testLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	template := map[string]any{"fullName": "", "skills": []any{}}
	got, err := provider.ParseResume(context.Background(), "Jane Doe. Go developer.", template)
	if err != nil {
		t.Fatal(err)
	}
	if got["fullName"] != "Jane Doe" {
		t.Errorf("fuzzy name recovery failed: %#v", got)
	}
	skills, ok := got["skills"].([]any)
	if !ok || len(skills) != 1 || skills[0] != "Go" {
		t.Errorf("skills = %#v", got["skills"])
	}
}

func TestOpenAIProviderAuthFailure(t *testing.T) {
	srv := chatCompletionStub(t, `{"error":{"message":"Incorrect API key provided"}}`, http.StatusUnauthorized)
	defer srv.Close()

	cfg := baseAIConfig("openai")
	cfg.Endpoint = srv.URL
	cfg.CircuitBreaker = config.CircuitBreakerConfig{Enabled: false}
	provider, err := NewOpenAIProvider(cfg, testLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.ParseResume(context.Background(), "text", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Type != errors.ErrorTypeAI {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOpenAIProviderTestConnection(t *testing.T) {
	srv := chatCompletionStub(t, "OK", http.StatusOK)
	defer srv.Close()

	cfg := baseAIConfig("openai")
	cfg.Endpoint = srv.URL
	provider, err := NewOpenAIProvider(cfg, testLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if !provider.TestConnection(context.Background()) {
		t.Error("healthy stub should pass the connection test")
	}

	srv.Close()
	if provider.TestConnection(context.Background()) {
		t.Error("unreachable endpoint should fail the connection test")
	}
}
