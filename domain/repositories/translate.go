package repositories

import (
	"context"

	"github.com/satriahrh/agribot/domain/entities"
)

// Translator abstracts machine translation services
type Translator interface {
	Translate(ctx context.Context, text string, source, target entities.LanguageTag) (string, error)
}

// LanguageDetector identifies the language of a piece of text
type LanguageDetector interface {
	Detect(text string) (entities.LanguageTag, error)
}
