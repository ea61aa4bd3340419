package llm

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
	defaultBaseURL     = "https://api.groq.com/openai/v1"
	defaultModel       = "llama-3.3-70b-versatile"
	defaultTemperature = 0.3
	defaultMaxTokens   = 700
	defaultTimeout     = 40 * time.Second

	// HistoryWindow is the number of most recent messages sent with each request
	HistoryWindow = 10
)

// ChatCompletionsConfig holds configuration for an OpenAI-compatible endpoint
type ChatCompletionsConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// ValidateChatCompletionsConfig validates the ChatCompletionsConfig
func ValidateChatCompletionsConfig(config ChatCompletionsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("completion API key is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens must be positive, got %d", config.MaxTokens)
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %v", config.Timeout)
	}
	return nil
}

// ChatCompletionsTransport performs single attempts against {base}/chat/completions
type ChatCompletionsTransport struct {
	client      *resty.Client
	logger      *zap.Logger
	model       string
	temperature float64
	maxTokens   int
}

var _ Transport = (*ChatCompletionsTransport)(nil)

// NewChatCompletionsTransport creates a new transport with config
func NewChatCompletionsTransport(config ChatCompletionsConfig, logger *zap.Logger) (*ChatCompletionsTransport, error) {
	if err := ValidateChatCompletionsConfig(config); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
		logger.Info("Using default completion base URL", zap.String("baseURL", baseURL))
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
		logger.Info("Using default temperature", zap.Float64("temperature", temperature))
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
		logger.Info("Using default maxTokens", zap.Int("maxTokens", maxTokens))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
		logger.Info("Using default timeout", zap.Duration("timeout", timeout))
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(config.APIKey).
		SetHeader("Content-Type", "application/json")

	return &ChatCompletionsTransport{
		client:      client,
		logger:      logger,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

type completionPayload struct {
	Model       string                     `json:"model"`
	Messages    []repositories.ChatMessage `json:"messages"`
	Temperature float64                    `json:"temperature"`
	MaxTokens   int                        `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Attempt issues exactly one request and classifies the outcome
func (t *ChatCompletionsTransport) Attempt(ctx context.Context, req repositories.CompletionRequest) AttemptResult {
	payload := completionPayload{
		Model:       t.model,
		Messages:    BuildMessages(req.SystemPrompt, req.History),
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
	}
	if req.Temperature > 0 {
		payload.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		payload.MaxTokens = req.MaxTokens
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/chat/completions")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Terminal(ctxErr)
		}
		return Retryable(fmt.Errorf("completion request failed: %w", err))
	}

	if resp.StatusCode() != http.StatusOK {
		return Retryable(fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode(), preview(resp.String(), 200)))
	}

	var body completionResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Retryable(fmt.Errorf("decoding completion response: %w", err))
	}

	if len(body.Choices) == 0 || body.Choices[0].Message.Content == nil {
		return Retryable(errors.New("completion response has no choices[0].message.content"))
	}

	return OK(strings.TrimSpace(*body.Choices[0].Message.Content))
}

// BuildMessages prepends the system prompt, when set, to the last HistoryWindow messages
func BuildMessages(systemPrompt string, history []repositories.ChatMessage) []repositories.ChatMessage {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	messages := make([]repositories.ChatMessage, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, repositories.ChatMessage{Role: entities.RoleSystem, Content: systemPrompt})
	}
	return append(messages, history...)
}

// preview keeps the first n runes of s for logging
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
