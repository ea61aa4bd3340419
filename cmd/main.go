package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/adapters"
	"github.com/satriahrh/agribot/adapters/classifier"
	"github.com/satriahrh/agribot/adapters/llm"
	"github.com/satriahrh/agribot/adapters/stt"
	"github.com/satriahrh/agribot/adapters/translate"
	"github.com/satriahrh/agribot/adapters/tts"
	"github.com/satriahrh/agribot/adapters/weather"
	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
	"github.com/satriahrh/agribot/internal/api"
	"github.com/satriahrh/agribot/internal/auth"
	"github.com/satriahrh/agribot/internal/config"
	"github.com/satriahrh/agribot/internal/websocket"
	"github.com/satriahrh/agribot/usecase"
)

// @title                       AgriBot API
// @version                     1.0
// @description                 Bilingual (English/Kannada) farming assistant.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	configFile := flag.String("config", "", "path to agribot.yaml")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	canonical, err := entities.ParseLanguageTag(cfg.Language.Canonical)
	if err != nil {
		logger.Fatal("Invalid canonical language", zap.Error(err))
	}
	secondary, err := entities.ParseLanguageTag(cfg.Language.Secondary)
	if err != nil {
		logger.Fatal("Invalid secondary language", zap.Error(err))
	}

	// Initialize adapters
	transport, err := newTransport(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create completion transport", zap.Error(err))
	}
	completer := llm.NewResilientCaller(transport, llm.ResilientConfig{
		Retries:   cfg.LLM.Retries,
		BaseDelay: cfg.LLM.RetryBaseDelay,
	}, logger)

	var translator repositories.Translator
	switch cfg.Translator.Backend {
	case "llm":
		translator = translate.NewLLMTranslator(completer, logger)
	default:
		translator = translate.NewGoogleTranslator(translate.GoogleConfig{
			BaseURL: cfg.Translator.Google.BaseURL,
			Timeout: cfg.Translator.Google.Timeout,
		}, logger)
	}
	detector := translate.NewWhatlangDetector(canonical, secondary)

	textToSpeech, err := newTextToSpeech(cfg.TTS, logger)
	if err != nil {
		logger.Warn("Text to speech disabled", zap.Error(err))
	}

	speechToText, closeSTT, err := newSpeechToText(ctx, cfg, logger)
	if err != nil {
		logger.Warn("Speech recognition disabled", zap.Error(err))
	}
	defer closeSTT()

	var weatherProvider repositories.WeatherProvider
	if cfg.Weather.APIKey != "" {
		weatherProvider = weather.NewOpenWeather(weather.Config{
			APIKey:   cfg.Weather.APIKey,
			BaseURL:  cfg.Weather.BaseURL,
			CacheTTL: cfg.Weather.CacheTTL,
			Timeout:  cfg.Weather.Timeout,
		}, logger)
	} else {
		logger.Info("OPENWEATHER_API_KEY not set, serving default weather")
	}

	diseaseModel := classifier.NewTFServing(classifier.Config{
		Endpoint:       cfg.Classifier.Endpoint,
		Model:          cfg.Classifier.Model,
		ClassOutput:    cfg.Classifier.ClassOutput,
		SeverityOutput: cfg.Classifier.SeverityOutput,
		Timeout:        cfg.Classifier.Timeout,
	}, logger)

	sessionRepo := adapters.NewMemorySessionRepository()

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}
	tokens, err := auth.NewTokenIssuer(secret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("Failed to create token issuer", zap.Error(err))
	}

	// Initialize usecase services
	bridge := usecase.NewLanguageBridge(detector, translator, canonical, secondary, logger)
	narrator := usecase.NewNarrator(textToSpeech, secondary, logger)
	chat := usecase.NewChatOrchestrator(bridge, completer, usecase.NewAudioCache(narrator, logger), speechToText, logger)
	recommendation := usecase.NewRecommendationService(completer, bridge, narrator, logger)
	disease := usecase.NewDiseaseService(diseaseModel, completer, bridge, narrator, logger)
	weatherService := usecase.NewWeatherService(weatherProvider, logger)

	readyCtx, cancelReady := context.WithTimeout(ctx, 10*time.Second)
	_ = disease.CheckReady(readyCtx)
	cancelReady()

	// Initialize WebSocket hub
	hub := websocket.NewHub(chat, logger)
	go hub.Run()

	cleanup := websocket.NewSessionCleanupService(sessionRepo, cfg.Session.IdleTTL, cfg.Session.CleanupInterval, logger)
	cleanup.Start()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("30M")) // largest body is a voice clip

	// Initialize API routes
	handler := api.NewHandler(sessionRepo, tokens, chat, recommendation, disease, weatherService, logger)
	api.InitRoutes(e, handler, hub)

	port := fmt.Sprintf("%d", cfg.Server.Port)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", port),
		zap.String("llmProvider", cfg.LLM.Provider),
		zap.String("translator", cfg.Translator.Backend),
		zap.String("tts", cfg.TTS.Backend),
		zap.String("stt", cfg.STT.Backend),
		zap.Bool("diseaseModel", disease.Available() == nil))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cleanup.Stop()
	hub.CloseAll()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newTransport(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (llm.Transport, error) {
	switch cfg.Provider {
	case "gemini":
		return llm.NewGeminiTransport(ctx, llm.GeminiConfig{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}, logger)
	default:
		return llm.NewChatCompletionsTransport(llm.ChatCompletionsConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}, logger)
	}
}

// newTextToSpeech returns nil with an error when the backend cannot be used;
// narration is then skipped.
func newTextToSpeech(cfg config.TTSConfig, logger *zap.Logger) (repositories.TextToSpeech, error) {
	switch cfg.Backend {
	case "elevenlabs":
		elevenLabs, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabs.APIKey,
			APIBaseURL: cfg.ElevenLabs.BaseURL,
			VoiceID:    cfg.ElevenLabs.VoiceID,
			ModelID:    cfg.ElevenLabs.ModelID,
		}, logger)
		if err != nil {
			return nil, err
		}
		return elevenLabs, nil
	default:
		return tts.NewGoogleTTS(tts.GoogleTTSConfig{
			BaseURL: cfg.GTTS.BaseURL,
			Timeout: cfg.GTTS.Timeout,
		}, logger), nil
	}
}

// newSpeechToText returns the recognizer and a func releasing it
func newSpeechToText(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	noop := func() {}

	switch cfg.STT.Backend {
	case "google":
		recognizer, err := stt.NewGoogleSpeechToText(ctx, logger)
		if err != nil {
			return nil, noop, err
		}
		return recognizer, func() { recognizer.Close() }, nil
	default:
		whisper := cfg.STT.Whisper
		if whisper.APIKey == "" {
			whisper.APIKey = cfg.LLM.APIKey
		}
		if whisper.BaseURL == "" {
			whisper.BaseURL = cfg.LLM.BaseURL
		}
		recognizer, err := stt.NewWhisperSpeechToText(stt.WhisperConfig{
			APIKey:  whisper.APIKey,
			BaseURL: whisper.BaseURL,
			Model:   whisper.Model,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return recognizer, noop, nil
	}
}
