package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig holds configuration for the Gemini completion transport
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// GeminiTransport performs single completion attempts against the Gemini API
type GeminiTransport struct {
	client      *genai.Client
	logger      *zap.Logger
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

var _ Transport = (*GeminiTransport)(nil)

// NewGeminiTransport creates a new Gemini transport
func NewGeminiTransport(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiTransport, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
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

	return &GeminiTransport{
		client:      client,
		logger:      logger,
		model:       model,
		temperature: float32(temperature),
		maxTokens:   maxTokens,
		timeout:     timeout,
	}, nil
}

// Attempt issues exactly one GenerateContent call
func (g *GeminiTransport) Attempt(ctx context.Context, req repositories.CompletionRequest) AttemptResult {
	temperature := g.temperature
	if req.Temperature > 0 {
		temperature = float32(req.Temperature)
	}
	maxTokens := g.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	history := BuildMessages("", req.History)
	response, err := g.client.Models.GenerateContent(attemptCtx, g.model, toGeminiContents(history), config)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Terminal(ctxErr)
		}
		return Retryable(fmt.Errorf("gemini generate content: %w", err))
	}

	text := responseText(response)
	if text == "" {
		return Retryable(errors.New("gemini returned no text content"))
	}
	return OK(text)
}

func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// toGeminiContents converts payload messages to Gemini contents
func toGeminiContents(messages []repositories.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		var role genai.Role
		switch msg.Role {
		case entities.RoleAssistant:
			role = genai.RoleModel
		default:
			role = genai.RoleUser // Gemini has no system role inside contents
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}
