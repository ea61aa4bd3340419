// Package config loads the agribot server configuration from defaults,
// an optional agribot.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
)

// ErrMissingAPIKey is returned when no completion API key is configured
var ErrMissingAPIKey = errors.New("completion API key is not set (GROQ_API_KEY, AGRIBOT_LLM_API_KEY or GEMINI_API_KEY for the gemini provider)")

// Config is the root configuration for the agribot server.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Language   LanguageConfig   `mapstructure:"language"`
	Translator TranslatorConfig `mapstructure:"translator"`
	TTS        TTSConfig        `mapstructure:"tts"`
	STT        STTConfig        `mapstructure:"stt"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Session    SessionConfig    `mapstructure:"session"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LLMConfig configures the completion provider. Provider "openai" talks to any
// OpenAI-compatible endpoint (Groq by default), "gemini" uses the Gemini API.
type LLMConfig struct {
	Provider       string        `mapstructure:"provider"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	Retries        int           `mapstructure:"retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Gemini         GeminiConfig  `mapstructure:"gemini"`
}

// LanguageConfig names the language the model works in and the one users may speak instead.
type LanguageConfig struct {
	Canonical string `mapstructure:"canonical"`
	Secondary string `mapstructure:"secondary"`
}

type TranslatorConfig struct {
	Backend string       `mapstructure:"backend"` // "google" or "llm"
	Google  GoogleConfig `mapstructure:"google"`
}

type GoogleConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type TTSConfig struct {
	Backend    string           `mapstructure:"backend"` // "gtts" or "elevenlabs"
	GTTS       GoogleConfig     `mapstructure:"gtts"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
}

type ElevenLabsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	VoiceID string `mapstructure:"voice_id"`
	ModelID string `mapstructure:"model_id"`
	BaseURL string `mapstructure:"base_url"`
}

type STTConfig struct {
	Backend string        `mapstructure:"backend"` // "whisper" or "google"
	Whisper WhisperConfig `mapstructure:"whisper"`
}

// WhisperConfig configures an OpenAI-compatible transcription endpoint.
// Empty APIKey and BaseURL reuse the llm settings.
type WhisperConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type WeatherConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ClassifierConfig points at a TensorFlow Serving REST endpoint hosting the disease model.
type ClassifierConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Model          string        `mapstructure:"model"`
	ClassOutput    string        `mapstructure:"class_output"`
	SeverityOutput string        `mapstructure:"severity_output"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type SessionConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is empty the search order is ./agribot.yaml, ./configs/agribot.yaml, /etc/agribot/agribot.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("agribot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/agribot")
	}

	// AGRIBOT_LLM_API_KEY, AGRIBOT_SERVER_PORT, ...
	v.SetEnvPrefix("AGRIBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.retries", 2)
	v.SetDefault("llm.timeout", 40*time.Second)
	v.SetDefault("llm.retry_base_delay", time.Second)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 700)
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")

	v.SetDefault("language.canonical", "en")
	v.SetDefault("language.secondary", "kn")

	v.SetDefault("translator.backend", "google")
	v.SetDefault("translator.google.base_url", "https://translate.googleapis.com")
	v.SetDefault("translator.google.timeout", 10*time.Second)

	v.SetDefault("tts.backend", "gtts")
	v.SetDefault("tts.gtts.base_url", "https://translate.google.com")
	v.SetDefault("tts.gtts.timeout", 15*time.Second)
	v.SetDefault("tts.elevenlabs.api_key", "")
	v.SetDefault("tts.elevenlabs.voice_id", "")
	v.SetDefault("tts.elevenlabs.model_id", "eleven_multilingual_v2")
	v.SetDefault("tts.elevenlabs.base_url", "https://api.elevenlabs.io/v1")

	v.SetDefault("stt.backend", "whisper")
	v.SetDefault("stt.whisper.api_key", "")
	v.SetDefault("stt.whisper.base_url", "")
	v.SetDefault("stt.whisper.model", "whisper-large-v3")

	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.cache_ttl", 300*time.Second)
	v.SetDefault("weather.timeout", 10*time.Second)

	v.SetDefault("classifier.endpoint", "http://localhost:8501")
	v.SetDefault("classifier.model", "paddy_disease")
	v.SetDefault("classifier.class_output", "class_output")
	v.SetDefault("classifier.severity_output", "severity_output")
	v.SetDefault("classifier.timeout", 30*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("session.idle_ttl", 2*time.Hour)
	v.SetDefault("session.cleanup_interval", 10*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// bindLegacyEnv maps the unprefixed variables used by existing .env files.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":             {"AGRIBOT_SERVER_PORT", "PORT"},
		"llm.api_key":             {"AGRIBOT_LLM_API_KEY", "GROQ_API_KEY"},
		"llm.base_url":            {"AGRIBOT_LLM_BASE_URL", "OPENAI_API_BASE"},
		"llm.model":               {"AGRIBOT_LLM_MODEL", "OPENAI_MODEL"},
		"llm.retries":             {"AGRIBOT_LLM_RETRIES", "API_RETRIES"},
		"weather.api_key":         {"AGRIBOT_WEATHER_API_KEY", "OPENWEATHER_API_KEY"},
		"llm.gemini.api_key":      {"AGRIBOT_LLM_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"tts.elevenlabs.api_key":  {"AGRIBOT_TTS_ELEVENLABS_API_KEY", "ELEVEN_LABS_API_KEY"},
		"tts.elevenlabs.voice_id": {"AGRIBOT_TTS_ELEVENLABS_VOICE_ID", "ELEVEN_LABS_VOICE_ID"},
		"auth.jwt_secret":         {"AGRIBOT_AUTH_JWT_SECRET", "JWT_SECRET"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("binding env for %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai":
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			return ErrMissingAPIKey
		}
	case "gemini":
		if strings.TrimSpace(c.LLM.Gemini.APIKey) == "" {
			return ErrMissingAPIKey
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Retries < 1 {
		return fmt.Errorf("llm.retries must be at least 1, got %d", c.LLM.Retries)
	}
	canonical, err := entities.ParseLanguageTag(c.Language.Canonical)
	if err != nil {
		return fmt.Errorf("language.canonical: %w", err)
	}
	secondary, err := entities.ParseLanguageTag(c.Language.Secondary)
	if err != nil {
		return fmt.Errorf("language.secondary: %w", err)
	}
	if canonical == secondary {
		return fmt.Errorf("language.canonical and language.secondary must differ, both are %q", canonical)
	}
	switch c.Translator.Backend {
	case "google", "llm":
	default:
		return fmt.Errorf("unknown translator backend %q", c.Translator.Backend)
	}
	switch c.TTS.Backend {
	case "gtts", "elevenlabs":
	default:
		return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
	}
	switch c.STT.Backend {
	case "whisper", "google":
	default:
		return fmt.Errorf("unknown stt backend %q", c.STT.Backend)
	}
	return nil
}

// NewLogger builds the process logger
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
