package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.AI.Provider = "gemini"
	cfg.AI.APIKey = "test-key-1234567890"
	cfg.AI.Timeout = 90 * time.Second
	cfg.Server.Port = "8080"
	cfg.App.MaxFileSize = 10 * 1024 * 1024
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown provider", func(c *Config) { c.AI.Provider = "watson" }, true},
		{"missing api key", func(c *Config) { c.AI.APIKey = "" }, true},
		{"azure without endpoint", func(c *Config) { c.AI.Provider = "azure" }, true},
		{"azure with endpoint", func(c *Config) {
			c.AI.Provider = "azure"
			c.AI.Endpoint = "https://example.openai.azure.com"
		}, false},
		{"zero timeout", func(c *Config) { c.AI.Timeout = 0 }, true},
		{"missing port", func(c *Config) { c.Server.Port = "" }, true},
		{"tls without files", func(c *Config) { c.Server.TLS.Enabled = true }, true},
		{"quota without addr", func(c *Config) {
			c.Quota.Enabled = true
			c.Quota.DailyMax = 100
		}, true},
		{"quota zero max", func(c *Config) {
			c.Quota.Enabled = true
			c.Quota.Redis.Addr = "localhost:6379"
		}, true},
		{"quota valid", func(c *Config) {
			c.Quota.Enabled = true
			c.Quota.DailyMax = 100
			c.Quota.Redis.Addr = "localhost:6379"
		}, false},
		{"zero max file size", func(c *Config) { c.App.MaxFileSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyFallbacksProviderKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-gemini-key")

	cfg := validConfig()
	cfg.AI.APIKey = ""
	cfg.applyFallbacks()

	if cfg.AI.APIKey != "env-gemini-key" {
		t.Errorf("APIKey = %q", cfg.AI.APIKey)
	}
}

func TestApplyFallbacksKeepsConfiguredKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-gemini-key")

	cfg := validConfig()
	cfg.applyFallbacks()

	if cfg.AI.APIKey != "test-key-1234567890" {
		t.Errorf("config key must win over env, got %q", cfg.AI.APIKey)
	}
}

func TestApplyFallbacksDefaultModel(t *testing.T) {
	for provider, want := range defaultModels {
		cfg := validConfig()
		cfg.AI.Provider = provider
		cfg.applyFallbacks()
		if cfg.AI.Model != want {
			t.Errorf("%s: model = %q, want %q", provider, cfg.AI.Model, want)
		}
	}

	cfg := validConfig()
	cfg.AI.Model = "my-model"
	cfg.applyFallbacks()
	if cfg.AI.Model != "my-model" {
		t.Error("configured model must not be overridden")
	}
}

func TestApplyFallbacksServerAPIKeys(t *testing.T) {
	t.Setenv("RESUMEPARSER_SERVER_APIKEYS", "key-one, key-two ,key-three")

	cfg := validConfig()
	cfg.applyFallbacks()

	want := []string{"key-one", "key-two", "key-three"}
	if len(cfg.Server.APIKeys) != len(want) {
		t.Fatalf("APIKeys = %#v", cfg.Server.APIKeys)
	}
	for i, key := range want {
		if cfg.Server.APIKeys[i] != key {
			t.Errorf("APIKeys[%d] = %q, want %q", i, cfg.Server.APIKeys[i], key)
		}
	}
}

func TestApplyFallbacksDebugEnablesConsole(t *testing.T) {
	cfg := validConfig()
	cfg.App.LogLevel = "debug"
	cfg.applyFallbacks()

	if !cfg.Observability.ConsoleOutput {
		t.Error("debug log level should enable console trace output")
	}
}

func TestApplyFallbacksServiceInstance(t *testing.T) {
	cfg := validConfig()
	cfg.Observability.ServiceName = "resumeparser"
	cfg.applyFallbacks()

	if cfg.Observability.ServiceInstance == "" {
		t.Error("service instance must be derived when unset")
	}
}
