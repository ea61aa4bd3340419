package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/agribot/domain"
	"github.com/satriahrh/agribot/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Client to server
const (
	MessageTypeChat        MessageType = "chat"
	MessageTypeClear       MessageType = "clear"
	MessageTypeLanguage    MessageType = "language"
	MessageTypeAudioConfig MessageType = "audio_config"
	MessageTypePing        MessageType = "ping"
)

// Server to client
const (
	MessageTypeAssistantReply MessageType = "assistant_reply"
	MessageTypeCleared        MessageType = "cleared"
	MessageTypeLanguageSet    MessageType = "language_set"
	MessageTypePong           MessageType = "pong"
	MessageTypeError          MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

// ChatMessage is a typed chat turn
type ChatMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// LanguageMessage changes the session's display language
type LanguageMessage struct {
	BaseMessage
	Language string `json:"language"`
}

// AudioConfigMessage describes the voice clips sent as binary frames after it
type AudioConfigMessage struct {
	BaseMessage
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Language   string `json:"language,omitempty"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ClearMessage drops the session's history
type ClearMessage struct {
	BaseMessage
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// AssistantReplyMessage carries the outcome of one chat turn, narration included
type AssistantReplyMessage struct {
	BaseMessage
	Reply domain.ChatReply `json:"reply"`
}

type ClearedMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
}

type LanguageSetMessage struct {
	BaseMessage
	SessionID string               `json:"session_id"`
	Language  entities.LanguageTag `json:"language"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming text frame
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	// First parse as base message to get type
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeChat:
		var msg ChatMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid chat message: %w", err)
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, fmt.Errorf("text is required")
		}
		return &msg, nil

	case MessageTypeLanguage:
		var msg LanguageMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid language message: %w", err)
		}
		if _, err := entities.ParseLanguageTag(msg.Language); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeAudioConfig:
		var msg AudioConfigMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid audio config message: %w", err)
		}
		if err := v.validateAudioConfig(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case MessageTypeClear:
		return &ClearMessage{BaseMessage: base}, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// validateAudioConfig validates audio config message fields
func (v *MessageValidator) validateAudioConfig(msg *AudioConfigMessage) error {
	if msg.SampleRate != 0 && (msg.SampleRate < 8000 || msg.SampleRate > 48000) {
		return fmt.Errorf("sample_rate must be between 8000 and 48000")
	}

	validEncodings := map[string]bool{
		"": true, "WAV": true, "LINEAR16": true, "FLAC": true, "OGG_OPUS": true, "WEBM_OPUS": true, "MP3": true,
	}
	if !validEncodings[strings.ToUpper(msg.Encoding)] {
		return fmt.Errorf("encoding must be one of: wav, linear16, flac, ogg_opus, webm_opus, mp3")
	}

	return nil
}

func newBase(t MessageType, messageID string) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: messageID,
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(messageID, code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError, messageID),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(messageID, data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBase(MessageTypePong, messageID),
		Data:        data,
	}
}

func CreateAssistantReplyMessage(messageID string, reply domain.ChatReply) *AssistantReplyMessage {
	return &AssistantReplyMessage{
		BaseMessage: newBase(MessageTypeAssistantReply, messageID),
		Reply:       reply,
	}
}
