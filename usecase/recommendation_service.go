package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

const (
	rankTemperature    = 0.3
	rankMaxTokens      = 300
	guideMaxTokens     = 800
	guideAudioRunes    = 500
	placeholderLabel   = "Unknown"
	placeholderError   = "Error"
	placeholderDefault = "Default"
	missingRationale   = "No reason provided"
)

// Where a ranked list came from
const (
	SourceParsed          = "parsed"
	SourceFallbackDefault = "fallback_default"
	SourceFallbackError   = "fallback_error"
)

var fallbackCrops = [entities.RecommendationCount]string{"Rice", "Maize", "Groundnut"}

var ErrCompletionUnavailable = errors.New("completion service is not configured")

type RecommendationRequest struct {
	Soil     entities.SoilParams     `json:"soil"`
	Weather  entities.WeatherReading `json:"weather"`
	Location entities.Location       `json:"location"`
	Language entities.LanguageTag    `json:"language"`
}

// RecommendationResult always carries exactly three items
type RecommendationResult struct {
	Items     [entities.RecommendationCount]entities.RecommendationItem `json:"items"`
	AudioText string                                                    `json:"audio_text"`
	Audio     []byte                                                    `json:"-"`
	Source    string                                                    `json:"source"`
}

type GuideRequest struct {
	Crop     string               `json:"crop"`
	Location entities.Location    `json:"location"`
	Language entities.LanguageTag `json:"language"`
}

type Guide struct {
	Crop      string `json:"crop"`
	Text      string `json:"text"`
	Available bool   `json:"available"`
	Audio     []byte `json:"-"`
}

// RecommendationService ranks crops for a field and writes growing guides
type RecommendationService struct {
	completer repositories.ChatCompleter
	bridge    *LanguageBridge
	narrator  *Narrator
	logger    *zap.Logger
}

// NewRecommendationService creates the service. A nil completer is allowed and
// yields the default crop list.
func NewRecommendationService(completer repositories.ChatCompleter, bridge *LanguageBridge, narrator *Narrator, logger *zap.Logger) *RecommendationService {
	return &RecommendationService{
		completer: completer,
		bridge:    bridge,
		narrator:  narrator,
		logger:    logger,
	}
}

// RankCrops asks the model for three ranked crops. It never fails: malformed
// replies are padded with placeholders and failed calls return a fixed list.
func (s *RecommendationService) RankCrops(ctx context.Context, req RecommendationRequest) RecommendationResult {
	var result RecommendationResult

	if s.completer == nil {
		result = fallbackRecommendation(placeholderDefault, SourceFallbackDefault)
	} else {
		reply, err := s.completer.Complete(ctx, repositories.CompletionRequest{
			History:     []repositories.ChatMessage{{Role: entities.RoleUser, Content: rankPrompt(req)}},
			MaxTokens:   rankMaxTokens,
			Temperature: rankTemperature,
		})
		if err != nil {
			s.logger.Warn("Crop ranking failed, serving fallback crops", zap.Error(err))
			result = fallbackRecommendation(placeholderError, SourceFallbackError)
		} else {
			result = ParseRecommendations(reply)
		}
	}

	result.Audio = s.narrator.Narrate(ctx, result.AudioText, req.Language)
	return result
}

// CropGuide writes a complete growing guide for one crop
func (s *RecommendationService) CropGuide(ctx context.Context, req GuideRequest) (*Guide, error) {
	crop := strings.TrimSpace(req.Crop)
	if crop == "" {
		return nil, fmt.Errorf("crop is required")
	}

	if s.completer == nil {
		return &Guide{
			Crop: crop,
			Text: s.bridge.FromCanonical(ctx, "Guide not available in demo mode.", req.Language),
		}, nil
	}

	prompt := fmt.Sprintf("Complete growing guide for %s in %s, %s during %s. Include: Soil preparation, Sowing time, Seed rate, Spacing, Irrigation, Fertilizer (NPK), Pest control, Harvesting, Yield per acre, Market tips. Use bullets.",
		crop, req.Location.State, req.Location.District, req.Location.Month)
	if req.Language == entities.Kannada {
		prompt += " Answer in Kannada."
	}

	reply, err := s.completer.Complete(ctx, repositories.CompletionRequest{
		History:     []repositories.ChatMessage{{Role: entities.RoleUser, Content: prompt}},
		MaxTokens:   guideMaxTokens,
		Temperature: rankTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write guide for %s: %w", crop, err)
	}

	guide := &Guide{Crop: crop, Text: strings.TrimSpace(reply), Available: true}
	guide.Audio = s.narrator.Narrate(ctx, truncateRunes(guide.Text, guideAudioRunes), req.Language)
	return guide, nil
}

func rankPrompt(req RecommendationRequest) string {
	prompt := fmt.Sprintf("Recommend 3 crops for Indian farmer. Soil: N=%s, P=%s, K=%s, pH=%s. Weather: %s deg C, %s%% humidity, %s mm rain. Location: %s, %s, %s. Rank: 1=best, 2=good, 3=viable. Format:\n1. [CROP] - [short reason]\n2. [CROP] - [short reason]\n3. [CROP] - [short reason]",
		num(req.Soil.Nitrogen), num(req.Soil.Phosphorus), num(req.Soil.Potassium), num(req.Soil.PH),
		num(req.Weather.Temperature), num(req.Weather.Humidity), num(req.Weather.Rainfall),
		req.Location.State, req.Location.District, req.Location.Month)
	if req.Language == entities.Kannada {
		prompt += " Answer in Kannada. Use 1. 2. 3."
	}
	return prompt
}

// ParseRecommendations keeps the first three lines starting with "1.", "2."
// or "3." and pads the list with Unknown/Error placeholders.
func ParseRecommendations(reply string) RecommendationResult {
	result := RecommendationResult{Source: SourceParsed}

	n := 0
	for _, line := range strings.Split(reply, "\n") {
		if n == entities.RecommendationCount {
			break
		}
		line = strings.TrimSpace(line)
		if !hasOrdinalPrefix(line) {
			continue
		}
		result.Items[n] = parseItem(n+1, line)
		n++
	}

	for ; n < entities.RecommendationCount; n++ {
		result.Items[n] = entities.RecommendationItem{
			Rank:      n + 1,
			Label:     placeholderLabel,
			Rationale: placeholderError,
			Kind:      entities.ItemPlaceholder,
		}
	}

	result.AudioText = audioText(result.Items)
	return result
}

func hasOrdinalPrefix(line string) bool {
	return strings.HasPrefix(line, "1.") || strings.HasPrefix(line, "2.") || strings.HasPrefix(line, "3.")
}

func parseItem(rank int, line string) entities.RecommendationItem {
	left, right, found := strings.Cut(line, "-")

	label := strings.TrimLeft(strings.TrimSpace(left), "0123456789. ")
	rationale := strings.TrimSpace(right)
	if !found || rationale == "" {
		rationale = missingRationale
	}

	if label == "" {
		return entities.RecommendationItem{Rank: rank, Label: placeholderLabel, Rationale: rationale, Kind: entities.ItemPlaceholder}
	}
	return entities.RecommendationItem{Rank: rank, Label: label, Rationale: rationale, Kind: entities.ItemParsed}
}

func fallbackRecommendation(rationale, source string) RecommendationResult {
	result := RecommendationResult{Source: source}
	for i, crop := range fallbackCrops {
		result.Items[i] = entities.RecommendationItem{
			Rank:      i + 1,
			Label:     crop,
			Rationale: rationale,
			Kind:      entities.ItemPlaceholder,
		}
	}
	result.AudioText = audioText(result.Items)
	return result
}

func audioText(items [entities.RecommendationCount]entities.RecommendationItem) string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	return strings.Join(labels, " ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
