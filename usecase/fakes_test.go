package usecase

import (
	"context"
	"sync"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

type fakeDetector struct {
	lang entities.LanguageTag
	err  error
}

func (f *fakeDetector) Detect(text string) (entities.LanguageTag, error) {
	return f.lang, f.err
}

type translateCall struct {
	text           string
	source, target entities.LanguageTag
}

// fakeTranslator tags text with the target language, e.g. "[kn] hello"
type fakeTranslator struct {
	mu    sync.Mutex
	err   error
	calls []translateCall
}

func (f *fakeTranslator) Translate(ctx context.Context, text string, source, target entities.LanguageTag) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, translateCall{text: text, source: source, target: target})
	if f.err != nil {
		return "", f.err
	}
	return "[" + string(target) + "] " + text, nil
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTTS struct {
	mu    sync.Mutex
	audio []byte
	err   error
	texts []string
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string, lang entities.LanguageTag) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

func (f *fakeTTS) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type fakeSTT struct {
	mu     sync.Mutex
	text   string
	err    error
	calls  int
	config repositories.AudioConfig
}

func (f *fakeSTT) Recognize(ctx context.Context, audio []byte, config repositories.AudioConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.config = config
	return f.text, f.err
}

type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []repositories.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeCompleter) last() repositories.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeClassifier struct {
	prediction repositories.Prediction
	err        error
	readyErr   error
	calls      int
}

func (f *fakeClassifier) Predict(ctx context.Context, tensor [][][]float32) (repositories.Prediction, error) {
	f.calls++
	return f.prediction, f.err
}

func (f *fakeClassifier) Ready(ctx context.Context) error {
	return f.readyErr
}
