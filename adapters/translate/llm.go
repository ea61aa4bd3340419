package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

const translationTemperature = 0.1

// LLMTranslator asks the completion model to translate
type LLMTranslator struct {
	completer repositories.ChatCompleter
	logger    *zap.Logger
}

var _ repositories.Translator = (*LLMTranslator)(nil)

func NewLLMTranslator(completer repositories.ChatCompleter, logger *zap.Logger) *LLMTranslator {
	return &LLMTranslator{completer: completer, logger: logger}
}

func (l *LLMTranslator) Translate(ctx context.Context, text string, source, target entities.LanguageTag) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	from := "the detected language"
	if source != "" {
		from = source.Name()
	}
	prompt := fmt.Sprintf("You are a translator. Translate the user's message from %s to %s. "+
		"Reply with the translation only, without quotes or explanations.", from, target.Name())

	translated, err := l.completer.Complete(ctx, repositories.CompletionRequest{
		SystemPrompt: prompt,
		History:      []repositories.ChatMessage{{Role: entities.RoleUser, Content: text}},
		Temperature:  translationTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm translation: %w", err)
	}

	translated = strings.TrimSpace(translated)
	if translated == "" {
		return "", errors.New("llm translation returned empty text")
	}
	return translated, nil
}
