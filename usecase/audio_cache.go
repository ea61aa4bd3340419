package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

// Narrator speaks secondary-language text. Audio is a convenience: failures
// are logged and reported as nil audio, never as errors.
type Narrator struct {
	tts       repositories.TextToSpeech
	secondary entities.LanguageTag
	logger    *zap.Logger
}

func NewNarrator(tts repositories.TextToSpeech, secondary entities.LanguageTag, logger *zap.Logger) *Narrator {
	return &Narrator{tts: tts, secondary: secondary, logger: logger}
}

// Narrate returns speech for text, or nil when lang is not the secondary
// language or synthesis fails
func (n *Narrator) Narrate(ctx context.Context, text string, lang entities.LanguageTag) []byte {
	if n == nil || n.tts == nil || lang != n.secondary || strings.TrimSpace(text) == "" {
		return nil
	}

	audio, err := n.tts.Synthesize(ctx, text, lang)
	if err != nil || len(audio) == 0 {
		n.logger.Warn("Speech synthesis failed, continuing without audio",
			zap.String("language", string(lang)),
			zap.Error(err))
		return nil
	}
	return audio
}

// AudioCache keeps synthesized speech per message identity so replaying a
// message never synthesizes it twice
type AudioCache struct {
	narrator *Narrator
	logger   *zap.Logger
}

func NewAudioCache(narrator *Narrator, logger *zap.Logger) *AudioCache {
	return &AudioCache{narrator: narrator, logger: logger}
}

// GetOrSynthesize returns the clip cached for id, synthesizing and storing it
// on a miss. Nil means no audio is available; nothing is stored in that case.
func (c *AudioCache) GetOrSynthesize(ctx context.Context, clips *entities.AudioClips, id entities.MessageID, text string, lang entities.LanguageTag) []byte {
	if clip, ok := clips.Get(id); ok {
		return clip
	}

	audio := c.narrator.Narrate(ctx, text, lang)
	if audio == nil {
		return nil
	}

	clips.Put(id, audio)
	c.logger.Debug("Cached message audio",
		zap.String("messageID", string(id)),
		zap.Int("audioBytes", len(audio)))
	return audio
}

// Lookup returns a cached clip without synthesizing
func (c *AudioCache) Lookup(clips *entities.AudioClips, id entities.MessageID) ([]byte, bool) {
	return clips.Get(id)
}
