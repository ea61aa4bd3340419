package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

// LanguageBridge moves text between the user's language and the canonical
// language the completion model works in. Both directions are total: any
// failure degrades to the best text available.
type LanguageBridge struct {
	detector   repositories.LanguageDetector
	translator repositories.Translator
	canonical  entities.LanguageTag
	fallback   entities.LanguageTag
	logger     *zap.Logger
}

// NewLanguageBridge creates a bridge. fallback is assumed whenever detection
// fails; it is the secondary language, since undetectable input is almost
// always a short Kannada voice transcript.
func NewLanguageBridge(
	detector repositories.LanguageDetector,
	translator repositories.Translator,
	canonical, fallback entities.LanguageTag,
	logger *zap.Logger,
) *LanguageBridge {
	return &LanguageBridge{
		detector:   detector,
		translator: translator,
		canonical:  canonical,
		fallback:   fallback,
		logger:     logger,
	}
}

func (b *LanguageBridge) Canonical() entities.LanguageTag {
	return b.canonical
}

func (b *LanguageBridge) Secondary() entities.LanguageTag {
	return b.fallback
}

// ToCanonical detects the language of text and translates it to the
// canonical language. Original is the detected (or assumed) language.
func (b *LanguageBridge) ToCanonical(ctx context.Context, text string) entities.TranslationResult {
	lang := b.detect(text)
	if lang == b.canonical {
		return entities.TranslationResult{Text: text, Original: lang}
	}

	translated, err := b.translator.Translate(ctx, text, lang, b.canonical)
	if err != nil || strings.TrimSpace(translated) == "" {
		b.logger.Warn("Inbound translation failed, using original text",
			zap.String("source", string(lang)),
			zap.Error(err))
		return entities.TranslationResult{Text: text, Original: lang}
	}

	return entities.TranslationResult{Text: translated, Original: lang}
}

// FromCanonical translates canonical-language text into target. Canonical
// targets are returned untouched without a translator call.
func (b *LanguageBridge) FromCanonical(ctx context.Context, text string, target entities.LanguageTag) string {
	if target == b.canonical || target == "" || strings.TrimSpace(text) == "" {
		return text
	}

	translated, err := b.translator.Translate(ctx, text, b.canonical, target)
	if err != nil || strings.TrimSpace(translated) == "" {
		b.logger.Warn("Outbound translation failed, using canonical text",
			zap.String("target", string(target)),
			zap.Error(err))
		return text
	}
	return translated
}

func (b *LanguageBridge) detect(text string) entities.LanguageTag {
	lang, err := b.detector.Detect(text)
	if err != nil || !lang.Valid() {
		b.logger.Debug("Language detection failed, assuming fallback",
			zap.String("fallback", string(b.fallback)),
			zap.Error(err))
		return b.fallback
	}
	return lang
}
