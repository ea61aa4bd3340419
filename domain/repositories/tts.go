package repositories

import (
	"context"

	"github.com/satriahrh/agribot/domain/entities"
)

// TextToSpeech returns mp3-compatible audio for text spoken in lang
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string, lang entities.LanguageTag) ([]byte, error)
}
