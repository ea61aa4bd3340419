package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/adapters/tts"
	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
	"github.com/satriahrh/agribot/internal/config"
)

func main() {
	text := flag.String("text", "ನಿಮ್ಮ ಭತ್ತದ ಗದ್ದೆಗೆ ಇಂದು ನೀರು ಹಾಯಿಸುವ ಅಗತ್ಯವಿಲ್ಲ.", "text to narrate")
	language := flag.String("lang", "kn", "language of the text")
	outputFile := flag.String("out", "example_output.mp3", "where the clip is written")
	flag.Parse()

	godotenv.Load()

	// Create logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	lang, err := entities.ParseLanguageTag(*language)
	if err != nil {
		logger.Fatal("Invalid language", zap.Error(err))
	}

	var ttsService repositories.TextToSpeech
	switch cfg.TTS.Backend {
	case "elevenlabs":
		elevenLabs, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:     cfg.TTS.ElevenLabs.APIKey,
			APIBaseURL: cfg.TTS.ElevenLabs.BaseURL,
			VoiceID:    cfg.TTS.ElevenLabs.VoiceID,
			ModelID:    cfg.TTS.ElevenLabs.ModelID,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create TTS service", zap.Error(err))
		}
		ttsService = elevenLabs
	default:
		ttsService = tts.NewGoogleTTS(tts.GoogleTTSConfig{
			BaseURL: cfg.TTS.GTTS.BaseURL,
			Timeout: cfg.TTS.GTTS.Timeout,
		}, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Converting text to speech",
		zap.String("backend", cfg.TTS.Backend),
		zap.String("text", *text))

	audio, err := ttsService.Synthesize(ctx, *text, lang)
	if err != nil {
		logger.Fatal("Failed to convert text to speech", zap.Error(err))
	}

	if err := os.WriteFile(*outputFile, audio, 0644); err != nil {
		logger.Fatal("Failed to write output file", zap.Error(err))
	}

	logger.Info("Audio conversion completed",
		zap.Int("totalBytes", len(audio)),
		zap.String("outputFile", *outputFile))

	if os.Getenv("NO_AUTOPLAY") == "true" {
		fmt.Printf("Audio saved to %s\n", *outputFile)
		return
	}

	if err := playAudioFile(*outputFile, logger); err != nil {
		logger.Warn("Failed to play audio automatically", zap.Error(err))
		fmt.Printf("Could not auto-play audio, open %s with any mp3 player\n", *outputFile)
	}
}

// audioPlayer represents an audio player command and its arguments
type audioPlayer struct {
	command string
	args    []string
}

// playAudioFile tries the mp3 players found on PATH in order
func playAudioFile(filename string, logger *zap.Logger) error {
	players := []audioPlayer{
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		{"mpg123", []string{"-q"}},
		{"afplay", nil},
	}

	for _, player := range players {
		if _, err := exec.LookPath(player.command); err != nil {
			continue
		}
		args := append(player.args, filename)
		logger.Info("Attempting to play audio",
			zap.String("player", player.command),
			zap.Strings("args", args))

		if err := exec.Command(player.command, args...).Run(); err != nil {
			logger.Debug("Player failed", zap.String("player", player.command), zap.Error(err))
			continue
		}
		return nil
	}

	return fmt.Errorf("no suitable audio player found")
}
