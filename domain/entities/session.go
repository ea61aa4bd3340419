package entities

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the per-user context passed to every orchestrator call.
// Nothing in it is shared with other sessions and nothing outlives it.
type Session struct {
	ID           string
	CreatedAt    time.Time
	Conversation *Conversation
	Audio        *AudioClips

	mu                   sync.Mutex
	turn                 sync.Mutex
	language             LanguageTag
	lastActiveAt         time.Time
	lastVoiceFingerprint string
}

// NewSession creates a new session with the given display language
func NewSession(language LanguageTag) *Session {
	now := time.Now()
	if language == "" {
		language = English
	}
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		Conversation: NewConversation(),
		Audio:        NewAudioClips(),
		language:     language,
		lastActiveAt: now,
	}
}

// BeginTurn blocks until no other turn is running on this session.
// The returned func ends the turn.
func (s *Session) BeginTurn() func() {
	s.turn.Lock()
	s.Touch()
	return s.turn.Unlock
}

// Language returns the session's display language preference
func (s *Session) Language() LanguageTag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) SetLanguage(language LanguageTag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = language
	s.lastActiveAt = time.Now()
}

// Touch updates the last active timestamp
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}

func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// IsIdle reports whether the session has been inactive for longer than ttl
func (s *Session) IsIdle(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastActiveAt()) > ttl
}

// SwapVoiceFingerprint records fp as the last processed voice clip and
// reports whether it differs from the previous one.
func (s *Session) SwapVoiceFingerprint(fp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fp == s.lastVoiceFingerprint {
		return false
	}
	s.lastVoiceFingerprint = fp
	return true
}

// Clear drops the conversation, its audio clips and the voice fingerprint
func (s *Session) Clear() {
	s.Conversation.Clear()
	s.Audio.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastVoiceFingerprint = ""
	s.lastActiveAt = time.Now()
}
