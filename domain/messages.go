package domain

import (
	"github.com/satriahrh/agribot/domain/entities"
)

// ChatReply is the result of one chat turn as sent to REST and websocket clients
type ChatReply struct {
	SessionID        string               `json:"session_id"`
	UserMessage      entities.Message     `json:"user_message"`
	AssistantMessage *entities.Message    `json:"assistant_message,omitempty"`
	OriginalLanguage entities.LanguageTag `json:"original_language"`
	HasAudio         bool                 `json:"has_audio"`
	// Audio is the mp3 narration, base64 in JSON. REST clients fetch it by message id instead.
	Audio []byte `json:"audio,omitempty"`
	Error string `json:"error,omitempty"`
}

// ConversationMessage is one entry of a conversation listing
type ConversationMessage struct {
	entities.Message
	HasAudio bool `json:"has_audio"`
}
