package entities

import (
	"fmt"
	"testing"
	"time"
)

func TestSessionCreation(t *testing.T) {
	session := NewSession(Kannada)

	if session.ID == "" {
		t.Error("Expected session ID to be set")
	}

	if session.Language() != Kannada {
		t.Errorf("Expected language %s, got %s", Kannada, session.Language())
	}

	if session.Conversation.Len() != 0 {
		t.Errorf("Expected empty conversation, got %d messages", session.Conversation.Len())
	}

	if NewSession("").Language() != English {
		t.Error("Expected empty language to default to English")
	}
}

func TestConversationAppend(t *testing.T) {
	conv := NewConversation()

	first := conv.Append(Message{Role: RoleUser, Content: "ಅಕ್ಕಿ ಬೆಳೆಯುವುದು ಹೇಗೆ", Canonical: "How to grow rice"})
	second := conv.Append(Message{Role: RoleAssistant, Content: "Plant in June"})

	if first.SequenceIndex != 0 || second.SequenceIndex != 1 {
		t.Errorf("Expected sequence 0 and 1, got %d and %d", first.SequenceIndex, second.SequenceIndex)
	}

	if first.ID == "" || first.ID == second.ID {
		t.Errorf("Expected distinct message identities, got %q and %q", first.ID, second.ID)
	}

	if first.ModelContent() != "How to grow rice" {
		t.Errorf("Expected canonical content for the model, got %q", first.ModelContent())
	}

	if second.ModelContent() != "Plant in June" {
		t.Errorf("Expected display content when canonical is empty, got %q", second.ModelContent())
	}

	found, ok := conv.Find(second.ID)
	if !ok || found.Content != "Plant in June" {
		t.Errorf("Expected to find second message, got %+v (found=%v)", found, ok)
	}
}

func TestConversationWindow(t *testing.T) {
	conv := NewConversation()
	for i := 1; i <= 15; i++ {
		conv.Append(Message{Role: RoleUser, Content: fmt.Sprintf("message %d", i)})
	}

	window := conv.Window(10)
	if len(window) != 10 {
		t.Fatalf("Expected 10 messages, got %d", len(window))
	}

	for i, m := range window {
		expected := fmt.Sprintf("message %d", i+6)
		if m.Content != expected {
			t.Errorf("window[%d]: expected %q, got %q", i, expected, m.Content)
		}
	}

	// Window must not alias the underlying store
	window[0].Content = "mutated"
	if conv.Window(10)[0].Content != "message 6" {
		t.Error("Window should return a copy")
	}

	if conv.Len() != 15 {
		t.Errorf("Expected store to keep 15 messages, got %d", conv.Len())
	}
}

func TestConversationWindowBounds(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		n        int
		expected int
	}{
		{"empty", 0, 10, 0},
		{"shorter than window", 3, 10, 3},
		{"exactly window", 10, 10, 10},
		{"longer than window", 25, 10, 10},
		{"zero window", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConversation()
			for i := 0; i < tt.total; i++ {
				conv.Append(Message{Role: RoleUser, Content: "x"})
			}
			if got := len(conv.Window(tt.n)); got != tt.expected {
				t.Errorf("Expected %d messages, got %d", tt.expected, got)
			}
		})
	}
}

func TestSessionClear(t *testing.T) {
	session := NewSession(Kannada)
	msg := session.Conversation.Append(Message{Role: RoleAssistant, Content: "ನಮಸ್ಕಾರ"})
	session.Audio.Put(msg.ID, []byte("mp3"))
	session.SwapVoiceFingerprint("abc")

	session.Clear()

	if session.Conversation.Len() != 0 {
		t.Errorf("Expected empty conversation after clear, got %d", session.Conversation.Len())
	}

	if session.Audio.Len() != 0 {
		t.Errorf("Expected no audio clips after clear, got %d", session.Audio.Len())
	}

	if !session.SwapVoiceFingerprint("abc") {
		t.Error("Expected voice fingerprint to be reset by clear")
	}
}

func TestSwapVoiceFingerprint(t *testing.T) {
	session := NewSession(English)

	if !session.SwapVoiceFingerprint("one") {
		t.Error("First fingerprint should be new")
	}

	if session.SwapVoiceFingerprint("one") {
		t.Error("Repeated fingerprint should be reported as duplicate")
	}

	if !session.SwapVoiceFingerprint("two") {
		t.Error("Different fingerprint should be new")
	}
}

func TestSessionIdle(t *testing.T) {
	session := NewSession(English)

	if session.IsIdle(time.Minute, time.Now()) {
		t.Error("Session should not be idle initially")
	}

	if !session.IsIdle(time.Minute, time.Now().Add(2*time.Minute)) {
		t.Error("Session should be idle after ttl has passed")
	}
}

func TestAudioClipsIgnoresEmpty(t *testing.T) {
	clips := NewAudioClips()
	clips.Put("m1", nil)

	if _, ok := clips.Get("m1"); ok {
		t.Error("Empty clip should not be stored")
	}
}

func TestParseLanguageTag(t *testing.T) {
	tests := []struct {
		input    string
		expected LanguageTag
		wantErr  bool
	}{
		{"en", English, false},
		{"English", English, false},
		{"kn", Kannada, false},
		{" Kannada ", Kannada, false},
		{"kn-IN", Kannada, false},
		{"fr", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLanguageTag(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
