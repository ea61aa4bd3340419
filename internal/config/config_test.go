package config

import (
	"bytes"
	"errors"
	"go/format"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("AGRIBOT_LLM_API_KEY", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}

	if cfg.LLM.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("Unexpected default base URL %q", cfg.LLM.BaseURL)
	}

	if cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Unexpected default model %q", cfg.LLM.Model)
	}

	if cfg.LLM.Retries != 2 {
		t.Errorf("Expected 2 retries, got %d", cfg.LLM.Retries)
	}

	if cfg.LLM.Timeout != 40*time.Second {
		t.Errorf("Expected 40s timeout, got %v", cfg.LLM.Timeout)
	}

	if cfg.Weather.CacheTTL != 300*time.Second {
		t.Errorf("Expected 300s weather cache, got %v", cfg.Weather.CacheTTL)
	}

	if cfg.Language.Canonical != "en" || cfg.Language.Secondary != "kn" {
		t.Errorf("Unexpected languages %+v", cfg.Language)
	}

	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
}

func TestLoadLegacyEnvironment(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("OPENAI_API_BASE", "http://localhost:9999/v1")
	t.Setenv("OPENAI_MODEL", "llama-3.1-8b-instant")
	t.Setenv("API_RETRIES", "4")
	t.Setenv("OPENWEATHER_API_KEY", "weather-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.APIKey != "gsk-test" {
		t.Errorf("Expected api key from GROQ_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "http://localhost:9999/v1" {
		t.Errorf("Expected base URL from OPENAI_API_BASE, got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("Expected model from OPENAI_MODEL, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.Retries != 4 {
		t.Errorf("Expected retries from API_RETRIES, got %d", cfg.LLM.Retries)
	}
	if cfg.Weather.APIKey != "weather-key" {
		t.Errorf("Expected weather key, got %q", cfg.Weather.APIKey)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "legacy")
	t.Setenv("AGRIBOT_LLM_API_KEY", "prefixed")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.APIKey != "prefixed" {
		t.Errorf("Expected prefixed variable to take precedence, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("AGRIBOT_LLM_API_KEY", "")

	path := filepath.Join(t.TempDir(), "agribot.yaml")
	content := []byte("llm:\n  api_key: from-file\n  retries: 3\ntts:\n  backend: elevenlabs\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.APIKey != "from-file" || cfg.LLM.Retries != 3 {
		t.Errorf("Expected values from file, got %+v", cfg.LLM)
	}
	if cfg.TTS.Backend != "elevenlabs" {
		t.Errorf("Expected tts backend elevenlabs, got %q", cfg.TTS.Backend)
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Expected default model to survive partial file, got %q", cfg.LLM.Model)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:        LLMConfig{Provider: "openai", APIKey: "key", Retries: 2},
			Language:   LanguageConfig{Canonical: "en", Secondary: "kn"},
			Translator: TranslatorConfig{Backend: "google"},
			TTS:        TTSConfig{Backend: "gtts"},
			STT:        STTConfig{Backend: "whisper"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing key", func(c *Config) { c.LLM.APIKey = " " }, true},
		{"gemini without key", func(c *Config) { c.LLM.Provider = "gemini" }, true},
		{"gemini with key", func(c *Config) {
			c.LLM.Provider = "gemini"
			c.LLM.Gemini.APIKey = "g"
		}, false},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "claude" }, true},
		{"zero retries", func(c *Config) { c.LLM.Retries = 0 }, true},
		{"same languages", func(c *Config) { c.Language.Secondary = "en" }, true},
		{"same language by name", func(c *Config) { c.Language.Secondary = "English" }, true},
		{"names for both languages", func(c *Config) {
			c.Language.Canonical = "English"
			c.Language.Secondary = "Kannada"
		}, false},
		{"unsupported language", func(c *Config) { c.Language.Secondary = "ta" }, true},
		{"llm translator", func(c *Config) { c.Translator.Backend = "llm" }, false},
		{"unknown translator", func(c *Config) { c.Translator.Backend = "deepl" }, true},
		{"unknown tts", func(c *Config) { c.TTS.Backend = "piper" }, true},
		{"unknown stt", func(c *Config) { c.STT.Backend = "vosk" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger(LoggingConfig{Level: "debug", Development: true}); err != nil {
		t.Errorf("Expected logger, got %v", err)
	}

	if _, err := NewLogger(LoggingConfig{Level: "loud"}); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestSourceFormatting(t *testing.T) {
	src, err := os.ReadFile("config.go")
	if err != nil {
		t.Fatalf("Failed to read source: %v", err)
	}
	formatted, err := format.Source(src)
	if err != nil {
		t.Fatalf("Failed to format source: %v", err)
	}
	if !bytes.Equal(src, formatted) {
		t.Error("config.go is not gofmt formatted")
	}
}
