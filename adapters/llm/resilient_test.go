package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/format"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

const okBody = `{"choices":[{"message":{"role":"assistant","content":"  Sow in June.  "}}]}`

// flakyServer fails the first `failures` requests with the given handler, then succeeds
func flakyServer(t *testing.T, failures int32, fail http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= failures {
			fail(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestCaller(t *testing.T, baseURL string, retries int) (*ResilientCaller, *[]time.Duration) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	transport, err := NewChatCompletionsTransport(ChatCompletionsConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create transport: %v", err)
	}

	caller := NewResilientCaller(transport, ResilientConfig{Retries: retries, BaseDelay: time.Second}, logger)
	var slept []time.Duration
	caller.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return caller, &slept
}

func userRequest(text string) repositories.CompletionRequest {
	return repositories.CompletionRequest{
		SystemPrompt: "You are an agriculture assistant.",
		History:      []repositories.ChatMessage{{Role: entities.RoleUser, Content: text}},
	}
}

func TestCompleteRetriesThenSucceeds(t *testing.T) {
	serverError := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	tests := []struct {
		name     string
		retries  int
		failures int32
		slept    []time.Duration
	}{
		{"first attempt", 2, 0, nil},
		{"one failure of two", 2, 1, []time.Duration{time.Second}},
		{"two failures of four", 4, 2, []time.Duration{time.Second, 2 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, calls := flakyServer(t, tt.failures, serverError)
			caller, slept := newTestCaller(t, server.URL, tt.retries)

			text, err := caller.Complete(context.Background(), userRequest("How do I grow rice?"))
			if err != nil {
				t.Fatalf("Expected success, got %v", err)
			}

			if text != "Sow in June." {
				t.Errorf("Expected trimmed content, got %q", text)
			}

			if got := atomic.LoadInt32(calls); got != tt.failures+1 {
				t.Errorf("Expected %d calls, got %d", tt.failures+1, got)
			}

			if fmt.Sprint(*slept) != fmt.Sprint(tt.slept) {
				t.Errorf("Expected backoff %v, got %v", tt.slept, *slept)
			}
		})
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	failures := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"rate limited": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices": [`))
		},
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices": []}`))
		},
		"missing content": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant"}}]}`))
		},
	}

	for name, fail := range failures {
		t.Run(name, func(t *testing.T) {
			server, calls := flakyServer(t, 1000, fail)
			caller, slept := newTestCaller(t, server.URL, 3)

			_, err := caller.Complete(context.Background(), userRequest("hello"))
			if err == nil {
				t.Fatal("Expected terminal error")
			}

			var terminal *TerminalError
			if !errors.As(err, &terminal) {
				t.Fatalf("Expected *TerminalError, got %T", err)
			}

			if terminal.Attempts != 3 {
				t.Errorf("Expected 3 attempts recorded, got %d", terminal.Attempts)
			}

			if terminal.Last == nil {
				t.Error("Expected last error to be carried")
			}

			if !errors.Is(err, ErrCompletionFailed) {
				t.Error("Expected errors.Is(err, ErrCompletionFailed)")
			}

			if got := atomic.LoadInt32(calls); got != 3 {
				t.Errorf("Expected exactly 3 calls, got %d", got)
			}

			// No backoff after the final attempt
			if len(*slept) != 2 {
				t.Errorf("Expected 2 backoff waits, got %v", *slept)
			}
		})
	}
}

func TestCompleteCancelledContextIsTerminal(t *testing.T) {
	server, calls := flakyServer(t, 0, nil)
	caller, _ := newTestCaller(t, server.URL, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := caller.Complete(ctx, userRequest("hello"))
	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("Expected *TerminalError, got %v", err)
	}

	if terminal.Attempts != 1 {
		t.Errorf("Expected to stop after 1 attempt, got %d", terminal.Attempts)
	}

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}

	if atomic.LoadInt32(calls) != 0 {
		t.Errorf("Expected no request to reach the server, got %d", *calls)
	}
}

func TestAttemptPayload(t *testing.T) {
	var captured completionPayload
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	transport, err := NewChatCompletionsTransport(ChatCompletionsConfig{
		APIKey:  "secret",
		BaseURL: server.URL + "/v1/",
		Model:   "test-model",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create transport: %v", err)
	}

	history := make([]repositories.ChatMessage, 0, 15)
	for i := 1; i <= 15; i++ {
		history = append(history, repositories.ChatMessage{Role: entities.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	result := transport.Attempt(context.Background(), repositories.CompletionRequest{
		SystemPrompt: "persona",
		History:      history,
		MaxTokens:    300,
	})
	if result.Status != AttemptOK {
		t.Fatalf("Expected ok, got %v (%v)", result.Status, result.Err)
	}

	if auth != "Bearer secret" {
		t.Errorf("Expected bearer auth, got %q", auth)
	}

	if captured.Model != "test-model" {
		t.Errorf("Expected model test-model, got %q", captured.Model)
	}

	if captured.Temperature != 0.3 {
		t.Errorf("Expected default temperature 0.3, got %v", captured.Temperature)
	}

	if captured.MaxTokens != 300 {
		t.Errorf("Expected per-request max tokens 300, got %d", captured.MaxTokens)
	}

	if len(captured.Messages) != 11 {
		t.Fatalf("Expected system + 10 messages, got %d", len(captured.Messages))
	}

	if captured.Messages[0].Role != entities.RoleSystem || captured.Messages[0].Content != "persona" {
		t.Errorf("Expected system message first, got %+v", captured.Messages[0])
	}

	if captured.Messages[1].Content != "m6" || captured.Messages[10].Content != "m15" {
		t.Errorf("Expected m6..m15, got %s..%s", captured.Messages[1].Content, captured.Messages[10].Content)
	}
}

func TestBuildMessagesWithoutSystemPrompt(t *testing.T) {
	messages := BuildMessages("", []repositories.ChatMessage{{Role: entities.RoleUser, Content: "hi"}})
	if len(messages) != 1 || messages[0].Role != entities.RoleUser {
		t.Errorf("Expected only the user message, got %+v", messages)
	}
}

func TestValidateChatCompletionsConfig(t *testing.T) {
	if err := ValidateChatCompletionsConfig(ChatCompletionsConfig{}); err == nil {
		t.Error("Expected error for missing API key")
	}

	if err := ValidateChatCompletionsConfig(ChatCompletionsConfig{APIKey: "k", Temperature: 3}); err == nil {
		t.Error("Expected error for out of range temperature")
	}

	if err := ValidateChatCompletionsConfig(ChatCompletionsConfig{APIKey: "k"}); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "bad gateway", 20, "bad gateway"},
		{"ascii cut", "upstream timeout", 8, "upstream..."},
		{"kannada cut on rune boundary", "ಭತ್ತದ ಬೆಳೆ", 3, "ಭತ್..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preview(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("preview(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("preview produced invalid UTF-8 %q", got)
			}
		})
	}
}

func TestResilientSourceFormatting(t *testing.T) {
	src, err := os.ReadFile("resilient.go")
	if err != nil {
		t.Fatalf("Failed to read source: %v", err)
	}
	formatted, err := format.Source(src)
	if err != nil {
		t.Fatalf("Failed to format source: %v", err)
	}
	if !bytes.Equal(src, formatted) {
		t.Error("resilient.go is not gofmt formatted")
	}
}
