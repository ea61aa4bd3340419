package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

func TestGoogleTranslator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate_a/single" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("client") != "gtx" || q.Get("sl") != "kn" || q.Get("tl") != "en" || q.Get("dt") != "t" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("q") != "ಅಕ್ಕಿ ಬೆಳೆಯುವುದು ಹೇಗೆ" {
			t.Errorf("Unexpected text %q", q.Get("q"))
		}
		_, _ = w.Write([]byte(`[[["How to grow ","ಅಕ್ಕಿ",null,null,10],["rice","ಬೆಳೆಯುವುದು ಹೇಗೆ",null,null,10]],null,"kn"]`))
	}))
	defer server.Close()

	translator := NewGoogleTranslator(GoogleConfig{BaseURL: server.URL}, zaptest.NewLogger(t))

	got, err := translator.Translate(context.Background(), "ಅಕ್ಕಿ ಬೆಳೆಯುವುದು ಹೇಗೆ", entities.Kannada, entities.English)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if got != "How to grow rice" {
		t.Errorf("Expected joined segments, got %q", got)
	}
}

func TestGoogleTranslatorFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"server error", http.StatusServiceUnavailable, "", true},
		{"not json", http.StatusOK, "<html>", true},
		{"empty array", http.StatusOK, "[]", true},
		{"no segments", http.StatusOK, "[[],null,\"en\"]", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			translator := NewGoogleTranslator(GoogleConfig{BaseURL: server.URL}, zaptest.NewLogger(t))
			_, err := translator.Translate(context.Background(), "hello", entities.English, entities.Kannada)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGoogleTranslatorSkipsBlankText(t *testing.T) {
	translator := NewGoogleTranslator(GoogleConfig{BaseURL: "http://127.0.0.1:1"}, zaptest.NewLogger(t))

	got, err := translator.Translate(context.Background(), "  ", entities.Kannada, entities.English)
	if err != nil || got != "  " {
		t.Errorf("Expected blank text back without a call, got %q, %v", got, err)
	}
}

type stubCompleter struct {
	reply string
	err   error
	last  repositories.CompletionRequest
}

func (s *stubCompleter) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	s.last = req
	return s.reply, s.err
}

func TestLLMTranslator(t *testing.T) {
	completer := &stubCompleter{reply: "  ಜೂನ್‌ನಲ್ಲಿ ಬಿತ್ತನೆ ಮಾಡಿ  "}
	translator := NewLLMTranslator(completer, zaptest.NewLogger(t))

	got, err := translator.Translate(context.Background(), "Sow in June", entities.English, entities.Kannada)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if got != "ಜೂನ್‌ನಲ್ಲಿ ಬಿತ್ತನೆ ಮಾಡಿ" {
		t.Errorf("Expected trimmed translation, got %q", got)
	}

	if !strings.Contains(completer.last.SystemPrompt, "from English to Kannada") {
		t.Errorf("Unexpected prompt %q", completer.last.SystemPrompt)
	}

	if len(completer.last.History) != 1 || completer.last.History[0].Content != "Sow in June" {
		t.Errorf("Expected the text as the single user message, got %+v", completer.last.History)
	}
}

func TestLLMTranslatorErrors(t *testing.T) {
	translator := NewLLMTranslator(&stubCompleter{err: errors.New("down")}, zaptest.NewLogger(t))
	if _, err := translator.Translate(context.Background(), "hi", entities.English, entities.Kannada); err == nil {
		t.Error("Expected completion error to propagate")
	}

	translator = NewLLMTranslator(&stubCompleter{reply: "   "}, zaptest.NewLogger(t))
	if _, err := translator.Translate(context.Background(), "hi", entities.English, entities.Kannada); err == nil {
		t.Error("Expected error for empty translation")
	}
}

func TestWhatlangDetector(t *testing.T) {
	detector := NewWhatlangDetector(entities.English, entities.Kannada)

	tests := []struct {
		text     string
		expected entities.LanguageTag
		wantErr  bool
	}{
		{"How do I grow rice in the rainy season?", entities.English, false},
		{"ಅಕ್ಕಿ ಬೆಳೆಯುವುದು ಹೇಗೆ", entities.Kannada, false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := detector.Detect(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
