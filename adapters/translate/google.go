package translate

import (
	"context"
	"encoding/json"
	"errors"
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
	defaultGoogleBaseURL = "https://translate.googleapis.com"
	defaultGoogleTimeout = 10 * time.Second
)

// GoogleConfig configures the public Google Translate endpoint
type GoogleConfig struct {
	BaseURL string
	Timeout time.Duration
}

// GoogleTranslator calls the keyless translate_a/single endpoint
type GoogleTranslator struct {
	client *resty.Client
	logger *zap.Logger
}

var _ repositories.Translator = (*GoogleTranslator)(nil)

func NewGoogleTranslator(config GoogleConfig, logger *zap.Logger) *GoogleTranslator {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultGoogleBaseURL
		logger.Info("Using default translate base URL", zap.String("baseURL", baseURL))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultGoogleTimeout
		logger.Info("Using default translate timeout", zap.Duration("timeout", timeout))
	}

	return &GoogleTranslator{
		client: resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(timeout),
		logger: logger,
	}
}

// Translate translates text from source to target. An empty source lets the service detect it.
func (g *GoogleTranslator) Translate(ctx context.Context, text string, source, target entities.LanguageTag) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	sl := string(source)
	if sl == "" {
		sl = "auto"
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     sl,
			"tl":     string(target),
			"dt":     "t",
		}).
		SetQueryParam("q", text).
		Get("/translate_a/single")
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("translate endpoint returned %d", resp.StatusCode())
	}

	translated, err := parseGoogleResponse(resp.Body())
	if err != nil {
		return "", err
	}

	g.logger.Debug("Translated text",
		zap.String("source", sl),
		zap.String("target", string(target)),
		zap.Int("length", len(translated)))
	return translated, nil
}

// parseGoogleResponse joins the translated segments of [[["seg","orig",...],...],...]
func parseGoogleResponse(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("decoding translate response: %w", err)
	}
	if len(raw) == 0 {
		return "", errors.New("empty translate response")
	}

	var segments [][]any
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", fmt.Errorf("decoding translate segments: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}

	if b.Len() == 0 {
		return "", errors.New("translate response has no translated text")
	}
	return b.String(), nil
}
