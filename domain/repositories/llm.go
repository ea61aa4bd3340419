package repositories

import (
	"context"

	"github.com/satriahrh/agribot/domain/entities"
)

// ChatCompleter abstracts any OpenAI-compatible chat completion provider
type ChatCompleter interface {
	// Complete sends the system prompt plus history and returns the model's reply
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is a single completion call
type CompletionRequest struct {
	SystemPrompt string
	History      []ChatMessage
	// MaxTokens and Temperature fall back to the provider defaults when zero
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a single message in a completion payload
type ChatMessage struct {
	Role    entities.Role `json:"role"`
	Content string        `json:"content"`
}

// ToChatMessages converts conversation messages into their canonical payload form
func ToChatMessages(messages []entities.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ChatMessage{Role: m.Role, Content: m.ModelContent()})
	}
	return out
}
