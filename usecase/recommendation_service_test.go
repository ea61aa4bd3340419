package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/agribot/domain/entities"
)

func newTestRecommendationService(t *testing.T, completer *fakeCompleter, tts *fakeTTS) *RecommendationService {
	logger := zaptest.NewLogger(t)
	bridge := NewLanguageBridge(&fakeDetector{lang: entities.English}, &fakeTranslator{}, entities.English, entities.Kannada, logger)
	if completer == nil {
		return NewRecommendationService(nil, bridge, NewNarrator(tts, entities.Kannada, logger), logger)
	}
	return NewRecommendationService(completer, bridge, NewNarrator(tts, entities.Kannada, logger), logger)
}

func sampleRequest(lang entities.LanguageTag) RecommendationRequest {
	return RecommendationRequest{
		Soil:     entities.SoilParams{Nitrogen: 50, Phosphorus: 25, Potassium: 25, PH: 6.5},
		Weather:  entities.WeatherReading{Temperature: 28, Humidity: 70, Rainfall: 100},
		Location: entities.Location{State: "KARNATAKA", District: "MANDYA", Month: "JUNE"},
		Language: lang,
	}
}

func TestParseRecommendations_MalformedReply(t *testing.T) {
	result := ParseRecommendations("1. Wheat - good soil\n2. Maize - ok\nrandom line\n")

	expected := []struct {
		label, rationale string
		kind             entities.ItemKind
	}{
		{"Wheat", "good soil", entities.ItemParsed},
		{"Maize", "ok", entities.ItemParsed},
		{"Unknown", "Error", entities.ItemPlaceholder},
	}

	for i, e := range expected {
		item := result.Items[i]
		if item.Rank != i+1 || item.Label != e.label || item.Rationale != e.rationale || item.Kind != e.kind {
			t.Errorf("Item %d: expected %+v, got %+v", i, e, item)
		}
	}

	if result.AudioText != "Wheat Maize Unknown" {
		t.Errorf("Unexpected audio text %q", result.AudioText)
	}
}

func TestParseRecommendations_Contract(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		labels    [3]string
		rationale string
	}{
		{
			name:   "well formed",
			reply:  "Here you go:\n1. Rice - loves water\n2. Sugarcane - long season\n3. Ragi - drought hardy",
			labels: [3]string{"Rice", "Sugarcane", "Ragi"},
		},
		{
			name:      "missing separator",
			reply:     "1. Cotton\n2. Soybean - fine\n3. Tur - ok",
			labels:    [3]string{"Cotton", "Soybean", "Tur"},
			rationale: "No reason provided",
		},
		{
			name:   "splits on first separator only",
			reply:  "  1. Bajra - low-rainfall crop\n2. Jowar - dry-land\n3. Gram - rabi",
			labels: [3]string{"Bajra", "Jowar", "Gram"},
		},
		{
			name:   "extra lines ignored",
			reply:  "1. A - x\n2. B - y\n3. C - z\n1. D - w",
			labels: [3]string{"A", "B", "C"},
		},
		{
			name:   "empty",
			reply:  "",
			labels: [3]string{"Unknown", "Unknown", "Unknown"},
		},
		{
			name:   "no ordinals",
			reply:  "Rice is great.\n- Maize\n4. Wheat - cold",
			labels: [3]string{"Unknown", "Unknown", "Unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseRecommendations(tt.reply)
			if len(result.Items) != entities.RecommendationCount {
				t.Fatalf("Expected 3 items, got %d", len(result.Items))
			}
			for i, label := range tt.labels {
				if result.Items[i].Label != label {
					t.Errorf("Item %d: expected %q, got %q", i, label, result.Items[i].Label)
				}
			}
			if tt.rationale != "" && result.Items[0].Rationale != tt.rationale {
				t.Errorf("Expected rationale %q, got %q", tt.rationale, result.Items[0].Rationale)
			}
		})
	}
}

func TestRankCrops_AlwaysThreeItems(t *testing.T) {
	tests := []struct {
		name      string
		completer *fakeCompleter
		source    string
		first     entities.RecommendationItem
	}{
		{
			name:      "parsed",
			completer: &fakeCompleter{reply: "1. Rice - water\n2. Maize - ok\n3. Ragi - dry"},
			source:    SourceParsed,
			first:     entities.RecommendationItem{Rank: 1, Label: "Rice", Rationale: "water", Kind: entities.ItemParsed},
		},
		{
			name:      "call failed",
			completer: &fakeCompleter{err: errors.New("completion failed after 2 attempts")},
			source:    SourceFallbackError,
			first:     entities.RecommendationItem{Rank: 1, Label: "Rice", Rationale: "Error", Kind: entities.ItemPlaceholder},
		},
		{
			name:   "no completer",
			source: SourceFallbackDefault,
			first:  entities.RecommendationItem{Rank: 1, Label: "Rice", Rationale: "Default", Kind: entities.ItemPlaceholder},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestRecommendationService(t, tt.completer, &fakeTTS{audio: []byte("mp3")})
			result := service.RankCrops(context.Background(), sampleRequest(entities.English))

			if result.Source != tt.source {
				t.Errorf("Expected source %s, got %s", tt.source, result.Source)
			}
			if result.Items[0] != tt.first {
				t.Errorf("Expected %+v, got %+v", tt.first, result.Items[0])
			}
			for i, item := range result.Items {
				if item.Rank != i+1 || item.Label == "" {
					t.Errorf("Item %d not render safe: %+v", i, item)
				}
			}
			if result.Audio != nil {
				t.Error("Expected no audio for English")
			}
		})
	}
}

func TestRankCrops_Prompt(t *testing.T) {
	completer := &fakeCompleter{reply: "1. ಭತ್ತ - ನೀರು\n2. ರಾಗಿ - ಒಣ\n3. ಕಬ್ಬು - ದೀರ್ಘ"}
	tts := &fakeTTS{audio: []byte("mp3")}
	service := newTestRecommendationService(t, completer, tts)

	result := service.RankCrops(context.Background(), sampleRequest(entities.Kannada))

	req := completer.last()
	if req.MaxTokens != 300 || req.Temperature != 0.3 || req.SystemPrompt != "" {
		t.Errorf("Unexpected request parameters %+v", req)
	}

	prompt := req.History[0].Content
	for _, want := range []string{"N=50, P=25, K=25, pH=6.5", "28 deg C, 70% humidity, 100 mm rain", "KARNATAKA, MANDYA, JUNE", "Answer in Kannada. Use 1. 2. 3."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q, got %q", want, prompt)
		}
	}

	if string(result.Audio) != "mp3" || tts.texts[0] != "ಭತ್ತ ರಾಗಿ ಕಬ್ಬು" {
		t.Errorf("Expected crop names narrated, got %q", tts.texts)
	}
}

func TestCropGuide(t *testing.T) {
	long := "• " + strings.Repeat("ನೀರು ", 200)
	completer := &fakeCompleter{reply: long}
	tts := &fakeTTS{audio: []byte("mp3")}
	service := newTestRecommendationService(t, completer, tts)

	guide, err := service.CropGuide(context.Background(), GuideRequest{
		Crop:     "Ragi",
		Location: entities.Location{State: "KARNATAKA", District: "TUMKUR", Month: "JULY"},
		Language: entities.Kannada,
	})
	if err != nil {
		t.Fatalf("CropGuide failed: %v", err)
	}

	req := completer.last()
	if req.MaxTokens != 800 || !strings.Contains(req.History[0].Content, "Ragi in KARNATAKA, TUMKUR during JULY") {
		t.Errorf("Unexpected request %+v", req)
	}

	if !guide.Available || guide.Text != strings.TrimSpace(long) {
		t.Errorf("Unexpected guide %+v", guide)
	}
	if n := utf8.RuneCountInString(tts.texts[0]); n != 500 {
		t.Errorf("Expected 500 runes narrated, got %d", n)
	}
}

func TestCropGuide_Failures(t *testing.T) {
	service := newTestRecommendationService(t, &fakeCompleter{err: errors.New("down")}, &fakeTTS{})
	if _, err := service.CropGuide(context.Background(), GuideRequest{Crop: "Rice"}); err == nil {
		t.Error("Expected error when completion fails")
	}
	if _, err := service.CropGuide(context.Background(), GuideRequest{Crop: " "}); err == nil {
		t.Error("Expected error for empty crop")
	}

	demo := newTestRecommendationService(t, nil, &fakeTTS{})
	guide, err := demo.CropGuide(context.Background(), GuideRequest{Crop: "Rice", Language: entities.English})
	if err != nil || guide.Available || guide.Text != "Guide not available in demo mode." {
		t.Errorf("Expected demo guide, got %+v, %v", guide, err)
	}
}
