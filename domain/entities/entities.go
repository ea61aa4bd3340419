package entities

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageID is the stable identity of a conversation turn. Audio clips are keyed by it.
type MessageID string

// NewMessageID returns a fresh random message identity
func NewMessageID() MessageID {
	return MessageID(uuid.NewString())
}

// Message represents a single message in a conversation
type Message struct {
	ID            MessageID   `json:"id"`
	Role          Role        `json:"role"`
	Content       string      `json:"content"`
	Canonical     string      `json:"canonical_content,omitempty"`
	Language      LanguageTag `json:"language,omitempty"`
	SequenceIndex int         `json:"sequence_index"`
	Timestamp     time.Time   `json:"timestamp"`
}

// ModelContent returns the text forwarded to the completion model.
func (m Message) ModelContent() string {
	if m.Canonical != "" {
		return m.Canonical
	}
	return m.Content
}

// Conversation is an ordered, append-only log of messages
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
}

// NewConversation creates an empty conversation
func NewConversation() *Conversation {
	return &Conversation{messages: make([]Message, 0)}
}

// Append stores msg at the end of the log. ID, SequenceIndex and Timestamp are
// assigned here; the stored copy is returned.
func (c *Conversation) Append(msg Message) Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.ID == "" {
		msg.ID = NewMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.SequenceIndex = len(c.messages)
	c.messages = append(c.messages, msg)
	return msg
}

// Window returns a copy of the last n messages in order
func (c *Conversation) Window(n int) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 {
		return []Message{}
	}
	start := 0
	if len(c.messages) > n {
		start = len(c.messages) - n
	}
	window := make([]Message, len(c.messages)-start)
	copy(window, c.messages[start:])
	return window
}

// Messages returns a copy of the whole log
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make([]Message, len(c.messages))
	copy(all, c.messages)
	return all
}

// Find looks up a message by identity
func (c *Conversation) Find(id MessageID) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clear resets the conversation to empty
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]Message, 0)
}
