package entities

import (
	"fmt"
	"strings"
)

// LanguageTag is an ISO 639-1 language code
type LanguageTag string

const (
	English LanguageTag = "en"
	Kannada LanguageTag = "kn"
)

// ParseLanguageTag accepts either a code ("kn") or a display name ("Kannada")
func ParseLanguageTag(s string) (LanguageTag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english", "en-us", "en-in":
		return English, nil
	case "kn", "kannada", "kn-in":
		return Kannada, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// Valid reports whether the tag is one of the supported languages
func (l LanguageTag) Valid() bool {
	return l == English || l == Kannada
}

// Name returns the English display name used in prompts
func (l LanguageTag) Name() string {
	switch l {
	case English:
		return "English"
	case Kannada:
		return "Kannada"
	}
	return string(l)
}

// Locale returns the BCP-47 locale used by speech services
func (l LanguageTag) Locale() string {
	switch l {
	case English:
		return "en-IN"
	case Kannada:
		return "kn-IN"
	}
	return string(l)
}

// TranslationResult pairs translated text with the language it was detected in
type TranslationResult struct {
	Text     string      `json:"text"`
	Original LanguageTag `json:"original_language"`
}
