package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/repositories"
)

const defaultWhisperModel = "whisper-large-v3"

// WhisperConfig configures an OpenAI-compatible /audio/transcriptions endpoint
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// WhisperSpeechToText transcribes voice clips through the Whisper API. Groq and
// OpenAI both serve it under the same path.
type WhisperSpeechToText struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*WhisperSpeechToText)(nil)

func NewWhisperSpeechToText(config WhisperConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("whisper API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}

	model := config.Model
	if model == "" {
		model = defaultWhisperModel
		logger.Info("Using default transcription model", zap.String("model", model))
	}

	return &WhisperSpeechToText{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

func (w *WhisperSpeechToText) Recognize(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "voice" + fileExtension(config.Encoding),
		Reader:   bytes.NewReader(audioData),
		Language: isoLanguage(config.Language),
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("no speech detected in audio")
	}

	w.logger.Debug("Transcribed voice clip",
		zap.String("model", w.model),
		zap.Int("audioBytes", len(audioData)),
		zap.Int("transcriptLength", len(text)))
	return text, nil
}

// isoLanguage turns a locale such as kn-IN into the ISO-639-1 code Whisper expects
func isoLanguage(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(lang)
}

func fileExtension(encoding string) string {
	switch strings.ToUpper(encoding) {
	case "FLAC":
		return ".flac"
	case "OGG_OPUS":
		return ".ogg"
	case "WEBM_OPUS":
		return ".webm"
	case "MP3":
		return ".mp3"
	default:
		return ".wav"
	}
}
