package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "GO_ENV", "LOG_FILE_PATH", "CORS_ALLOWED_ORIGINS", "JWT_SECRET",
		"AI_PROVIDER", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model",
		"ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS", "ARK_STREAM", "AI_TIMEOUT_SECONDS",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"STORE_BACKEND", "SQLITE_PATH", "DB_CONNECTION_STRING", "REDIS_URL", "PROFILE_CACHE_TTL_SECONDS",
		"CHAT_HISTORY_LIMIT", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Server.IsProduction() {
		t.Fatalf("expected development env by default")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if cfg.AI.Provider != ProviderArk || cfg.AI.Timeout != 30*time.Second || !cfg.AI.StreamResponse {
		t.Fatalf("unexpected AI defaults %+v", cfg.AI)
	}
	if cfg.AI.OpenAI.Model != "gemini-1.5-flash" {
		t.Fatalf("unexpected openai model %q", cfg.AI.OpenAI.Model)
	}
	if cfg.AI.Enabled() {
		t.Fatalf("AI must be disabled without credentials")
	}
	if cfg.Store.Backend != BackendMemory || cfg.Store.ProfileCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected store defaults %+v", cfg.Store)
	}
	if cfg.Session.HistoryLimit != 10 {
		t.Fatalf("expected history limit 10, got %d", cfg.Session.HistoryLimit)
	}
	if cfg.Tracing.Enabled {
		t.Fatalf("tracing must be off by default")
	}
}

func TestLoadServerAddr(t *testing.T) {
	tests := []struct {
		port    string
		want    string
		wantErr bool
	}{
		{port: "9090", want: ":9090"},
		{port: ":7000", want: ":7000"},
		{port: "127.0.0.1:8081", want: "127.0.0.1:8081"},
		{port: "80 80", wantErr: true},
	}

	for _, tt := range tests {
		clearEnv(t)
		t.Setenv("PORT", tt.port)
		cfg, err := loadServerConfig()
		if tt.wantErr {
			if err == nil {
				t.Fatalf("PORT=%q: expected error", tt.port)
			}
			continue
		}
		if err != nil {
			t.Fatalf("PORT=%q: unexpected error %v", tt.port, err)
		}
		if cfg.Addr != tt.want {
			t.Fatalf("PORT=%q: got %q want %q", tt.port, cfg.Addr, tt.want)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GO_ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("AI_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "key")
	t.Setenv("AI_TIMEOUT_SECONDS", "5")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("PROFILE_CACHE_TTL_SECONDS", "0")
	t.Setenv("CHAT_HISTORY_LIMIT", "0")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.Server.IsProduction() {
		t.Fatalf("expected production env")
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if cfg.AI.Provider != ProviderOpenAI || !cfg.AI.Enabled() || cfg.AI.Timeout != 5*time.Second {
		t.Fatalf("unexpected AI config %+v", cfg.AI)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.ProfileCacheTTL != 0 {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Session.HistoryLimit != 1 {
		t.Fatalf("history limit must be clamped to 1, got %d", cfg.Session.HistoryLimit)
	}
	if !cfg.Tracing.Enabled {
		t.Fatalf("expected tracing enabled")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"provider":      {"AI_PROVIDER": "gemini"},
		"backend":       {"STORE_BACKEND": "mongo"},
		"postgres dsn":  {"STORE_BACKEND": "postgres"},
		"redis url":     {"STORE_BACKEND": "redis"},
		"bool":          {"ARK_STREAM": "maybe"},
		"history limit": {"CHAT_HISTORY_LIMIT": "ten"},
		"temperature":   {"ARK_TEMPERATURE": "warm"},
	}

	for name, env := range cases {
		clearEnv(t)
		for k, v := range env {
			t.Setenv(k, v)
		}
		if _, err := Load(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestArkEnabled(t *testing.T) {
	cfg := AIConfig{Provider: ProviderArk, Model: "ep-123", AccessKey: "ak"}
	if cfg.Enabled() {
		t.Fatalf("AK without SK must not enable Ark")
	}
	cfg.SecretKey = "sk"
	if !cfg.Enabled() {
		t.Fatalf("AK/SK pair should enable Ark")
	}
}
