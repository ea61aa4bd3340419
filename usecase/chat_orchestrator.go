package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain"
	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
	"github.com/satriahrh/agribot/internal/turn"
)

// SystemPrompt is the persona prepended to every chat completion
const SystemPrompt = "You are an expert agriculture and farming assistant for Indian farmers. Answer concisely and helpfully. If asked in Kannada, answer in Kannada."

// ChatHistoryWindow is how many recent messages accompany each completion
const ChatHistoryWindow = 10

var (
	ErrEmptyInput          = errors.New("input is empty")
	ErrDuplicateVoice      = errors.New("voice clip already processed")
	ErrSpeechNotRecognised = errors.New("could not understand the audio")
)

// TurnResult is the outcome of one user turn. On failure UserMessage is set
// (the user's message is kept) and AssistantMessage is nil.
type TurnResult struct {
	UserMessage      entities.Message     `json:"user_message"`
	AssistantMessage *entities.Message    `json:"assistant_message,omitempty"`
	OriginalLanguage entities.LanguageTag `json:"original_language"`
	CanonicalInput   string               `json:"canonical_input"`
	Audio            []byte               `json:"-"`
	Trace            *turn.Trace          `json:"trace,omitempty"`
}

// ChatOrchestrator runs the chat pipeline for a session: translate in, append,
// complete, translate out and cache audio. Turns on one session never overlap.
type ChatOrchestrator struct {
	bridge    *LanguageBridge
	completer repositories.ChatCompleter
	audio     *AudioCache
	stt       repositories.SpeechToText
	runner    *turn.Runner
	logger    *zap.Logger
}

func NewChatOrchestrator(
	bridge *LanguageBridge,
	completer repositories.ChatCompleter,
	audio *AudioCache,
	stt repositories.SpeechToText,
	logger *zap.Logger,
) *ChatOrchestrator {
	return &ChatOrchestrator{
		bridge:    bridge,
		completer: completer,
		audio:     audio,
		stt:       stt,
		runner:    turn.NewRunner(logger),
		logger:    logger,
	}
}

// HandleText runs one turn for typed input. Identical text submitted twice is
// two turns.
func (o *ChatOrchestrator) HandleText(ctx context.Context, session *entities.Session, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	end := session.BeginTurn()
	defer end()

	return o.runTurn(ctx, session, text)
}

// HandleVoice transcribes a voice clip and runs a turn for it. A clip equal to
// the session's last processed clip is rejected with ErrDuplicateVoice before
// any remote call.
func (o *ChatOrchestrator) HandleVoice(ctx context.Context, session *entities.Session, audio []byte, config repositories.AudioConfig) (*TurnResult, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyInput
	}

	end := session.BeginTurn()
	defer end()

	if !session.SwapVoiceFingerprint(fingerprint(audio)) {
		o.logger.Info("Ignoring duplicate voice clip", zap.String("sessionID", session.ID))
		return nil, ErrDuplicateVoice
	}

	if o.stt == nil {
		return nil, fmt.Errorf("%w: speech recognition is not configured", ErrSpeechNotRecognised)
	}

	if config.Language == "" {
		config.Language = o.bridge.Secondary().Locale()
	}

	text, err := o.stt.Recognize(ctx, audio, config)
	if err != nil {
		o.logger.Warn("Speech recognition failed",
			zap.String("sessionID", session.ID),
			zap.Int("audioBytes", len(audio)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSpeechNotRecognised, err)
	}
	if strings.TrimSpace(text) == "" {
		o.logger.Warn("Speech recognition returned no text",
			zap.String("sessionID", session.ID),
			zap.Int("audioBytes", len(audio)))
		return nil, fmt.Errorf("%w: empty transcript", ErrSpeechNotRecognised)
	}

	o.logger.Info("Voice clip transcribed",
		zap.String("sessionID", session.ID),
		zap.Int("transcriptLength", len(text)))
	return o.runTurn(ctx, session, strings.TrimSpace(text))
}

// Clear drops the session's history, audio and voice fingerprint
func (o *ChatOrchestrator) Clear(session *entities.Session) {
	end := session.BeginTurn()
	defer end()

	session.Clear()
	o.logger.Info("Chat history cleared", zap.String("sessionID", session.ID))
}

func (o *ChatOrchestrator) runTurn(ctx context.Context, session *entities.Session, text string) (*TurnResult, error) {
	result := &TurnResult{}

	var translated entities.TranslationResult
	var answer string

	steps := []turn.Step{
		{State: turn.StateTranslatingIn, Run: func(ctx context.Context) error {
			translated = o.bridge.ToCanonical(ctx, text)
			result.OriginalLanguage = translated.Original
			result.CanonicalInput = translated.Text
			return nil
		}},
		{State: turn.StateAppending, Run: func(ctx context.Context) error {
			msg := entities.Message{
				Role:     entities.RoleUser,
				Content:  text,
				Language: translated.Original,
			}
			if translated.Text != text {
				msg.Canonical = translated.Text
			}
			result.UserMessage = session.Conversation.Append(msg)
			return nil
		}},
		{State: turn.StateCompleting, Run: func(ctx context.Context) error {
			history := repositories.ToChatMessages(session.Conversation.Window(ChatHistoryWindow))
			reply, err := o.completer.Complete(ctx, repositories.CompletionRequest{
				SystemPrompt: SystemPrompt,
				History:      history,
			})
			if err != nil {
				return err
			}
			answer = reply
			return nil
		}},
		{State: turn.StateTranslatingOut, Run: func(ctx context.Context) error {
			final := o.bridge.FromCanonical(ctx, answer, translated.Original)
			msg := entities.Message{
				Role:     entities.RoleAssistant,
				Content:  final,
				Language: translated.Original,
			}
			if final != answer {
				msg.Canonical = answer
			}
			stored := session.Conversation.Append(msg)
			result.AssistantMessage = &stored
			return nil
		}},
		{State: turn.StateAudioPopulating, Run: func(ctx context.Context) error {
			if translated.Original != o.bridge.Secondary() {
				return nil
			}
			msg := result.AssistantMessage
			result.Audio = o.audio.GetOrSynthesize(ctx, session.Audio, msg.ID, msg.Content, translated.Original)
			return nil
		}},
	}

	trace, err := o.runner.Run(ctx, uuid.NewString(), steps)
	result.Trace = trace
	if err != nil {
		o.logger.Error("Chat turn failed",
			zap.String("sessionID", session.ID),
			zap.String("failedAt", string(trace.FailedAt())),
			zap.Error(err))
		return result, err
	}

	o.logger.Info("Chat turn completed",
		zap.String("sessionID", session.ID),
		zap.String("language", string(translated.Original)),
		zap.Bool("hasAudio", result.Audio != nil))
	return result, nil
}

// Reply converts the result into the client DTO. Audio bytes are only
// included when withAudio is set.
func (r *TurnResult) Reply(sessionID string, withAudio bool) domain.ChatReply {
	reply := domain.ChatReply{
		SessionID:        sessionID,
		UserMessage:      r.UserMessage,
		AssistantMessage: r.AssistantMessage,
		OriginalLanguage: r.OriginalLanguage,
		HasAudio:         len(r.Audio) > 0,
	}
	if withAudio {
		reply.Audio = r.Audio
	}
	return reply
}

func fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
