package translate

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

// ErrUndetectable is returned when no supported language matches the text
var ErrUndetectable = errors.New("language could not be detected")

var supportedLangs = map[entities.LanguageTag]whatlanggo.Lang{
	entities.English: whatlanggo.Eng,
	entities.Kannada: whatlanggo.Kan,
}

// WhatlangDetector identifies text language with trigram and script analysis,
// restricted to the supported languages.
type WhatlangDetector struct {
	options whatlanggo.Options
}

var _ repositories.LanguageDetector = (*WhatlangDetector)(nil)

// NewWhatlangDetector restricts detection to tags. Unknown tags are ignored.
func NewWhatlangDetector(tags ...entities.LanguageTag) *WhatlangDetector {
	whitelist := make(map[whatlanggo.Lang]bool, len(tags))
	for _, tag := range tags {
		if lang, ok := supportedLangs[tag]; ok {
			whitelist[lang] = true
		}
	}
	return &WhatlangDetector{options: whatlanggo.Options{Whitelist: whitelist}}
}

func (d *WhatlangDetector) Detect(text string) (entities.LanguageTag, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetectable
	}

	info := whatlanggo.DetectWithOptions(text, d.options)
	if info.Lang < 0 {
		return "", ErrUndetectable
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetectable
	}
	return entities.LanguageTag(code), nil
}
