package tts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultOutputFormat = "mp3_44100_128"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75
	defaultTimeout      = 60 * time.Second
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - VoiceID: The voice ID to use (default: "21m00Tcm4TlvDq8ikWAM" - Rachel voice)
// - ModelID: The model ID to use (default: "eleven_multilingual_v2")
// - OutputFormat: An mp3 output format (default: "mp3_44100_128")
// - Stability: Voice stability value between 0 and 1 (default: 0.5)
// - Clarity: Voice clarity/similarity boost value between 0 and 1 (default: 0.75)
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Stability    float64
	Clarity      float64
	Timeout      time.Duration
}

// ElevenLabsTTS implements TextToSpeech interface using Eleven Labs API
type ElevenLabsTTS struct {
	client       *resty.Client
	voiceID      string
	modelID      string
	outputFormat string
	stability    float64
	clarity      float64
	logger       *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	LanguageCode           string                  `json:"language_code,omitempty"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.OutputFormat != "" && !strings.HasPrefix(config.OutputFormat, "mp3") {
		return fmt.Errorf("output format must be mp3, got %s", config.OutputFormat)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", voiceID))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", modelID))
	}

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
		logger.Info("Using default output format", zap.String("outputFormat", outputFormat))
	}

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
		logger.Info("Using default stability", zap.Float64("stability", stability))
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
		logger.Info("Using default clarity", zap.Float64("clarity", clarity))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(apiBaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("xi-api-key", config.APIKey).
		SetHeader("Accept", "audio/mpeg")

	return &ElevenLabsTTS{
		client:       client,
		voiceID:      voiceID,
		modelID:      modelID,
		outputFormat: outputFormat,
		stability:    stability,
		clarity:      clarity,
		logger:       logger,
	}, nil
}

// Synthesize converts text to mp3 speech using Eleven Labs API
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, lang entities.LanguageTag) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	e.logger.Info("Converting text to speech",
		zap.Int("textLength", len(text)),
		zap.String("language", string(lang)),
		zap.String("voiceID", e.voiceID),
		zap.String("modelID", e.modelID))

	request := ElevenLabsRequest{
		Text:                   text,
		ModelID:                e.modelID,
		LanguageCode:           string(lang),
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetPathParam("voiceID", e.voiceID).
		SetQueryParam("output_format", e.outputFormat).
		SetQueryParam("enable_logging", "false").
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post("/text-to-speech/{voiceID}")
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		e.logger.Error("Eleven Labs API returned error",
			zap.Int("statusCode", resp.StatusCode()),
			zap.String("response", resp.String()))
		return nil, fmt.Errorf("eleven labs API returned %d", resp.StatusCode())
	}

	audio := resp.Body()
	if len(audio) == 0 {
		return nil, fmt.Errorf("eleven labs API returned no audio")
	}

	e.logger.Info("Received audio from Eleven Labs API",
		zap.String("contentType", resp.Header().Get("Content-Type")),
		zap.Int("totalBytes", len(audio)))
	return audio, nil
}
