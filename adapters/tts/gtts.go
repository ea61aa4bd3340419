package tts

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

const (
	defaultGoogleTTSBaseURL = "https://translate.google.com"
	// maxChunkRunes is the longest text the translate_tts endpoint accepts per request
	maxChunkRunes = 200
)

// GoogleTTSConfig configures the translate_tts endpoint used by gTTS
type GoogleTTSConfig struct {
	BaseURL string
	Timeout time.Duration
}

// GoogleTTS synthesizes mp3 speech through Google Translate's speech endpoint.
// Long text is split into chunks and the mp3 frames are concatenated.
type GoogleTTS struct {
	client *resty.Client
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*GoogleTTS)(nil)

func NewGoogleTTS(config GoogleTTSConfig, logger *zap.Logger) *GoogleTTS {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultGoogleTTSBaseURL
		logger.Info("Using default TTS base URL", zap.String("baseURL", baseURL))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetHeader("Referer", "https://translate.google.com/")

	return &GoogleTTS{client: client, logger: logger}
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text string, lang entities.LanguageTag) ([]byte, error) {
	chunks := SplitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("text cannot be empty")
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		resp, err := g.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ie":       "UTF-8",
				"client":   "tw-ob",
				"tl":       string(lang),
				"q":        chunk,
				"ttsspeed": "1",
				"total":    strconv.Itoa(len(chunks)),
				"idx":      strconv.Itoa(i),
				"textlen":  strconv.Itoa(utf8.RuneCountInString(chunk)),
			}).
			Get("/translate_tts")
		if err != nil {
			return nil, fmt.Errorf("tts request %d/%d failed: %w", i+1, len(chunks), err)
		}

		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("tts endpoint returned %d for chunk %d/%d", resp.StatusCode(), i+1, len(chunks))
		}
		audio.Write(resp.Body())
	}

	if audio.Len() == 0 {
		return nil, fmt.Errorf("tts endpoint returned no audio")
	}

	g.logger.Debug("Synthesized speech",
		zap.String("language", string(lang)),
		zap.Int("chunks", len(chunks)),
		zap.Int("totalBytes", audio.Len()))
	return audio.Bytes(), nil
}

// SplitText breaks text into pieces of at most limit runes, preferring sentence
// and word boundaries. Whitespace-only pieces are dropped.
func SplitText(text string, limit int) []string {
	var chunks []string
	var current []rune

	flush := func() {
		if s := strings.TrimSpace(string(current)); s != "" {
			chunks = append(chunks, s)
		}
		current = current[:0]
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			current = append(current, w[:limit]...)
			flush()
			w = w[limit:]
		}

		if len(current) > 0 && len(current)+1+len(w) > limit {
			flush()
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, w...)

		// Prefer ending a chunk on sentence punctuation once it is reasonably full
		if last := w[len(w)-1]; len(current) > limit/2 && isSentenceEnd(last) {
			flush()
		}
	}
	flush()
	return chunks
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '।'
}
