package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
	"github.com/satriahrh/agribot/internal/imaging"
)

const (
	treatmentMaxTokens = 250
	treatmentSteps     = 4
	treatmentBullet    = "•"
)

var (
	ErrClassifierUnavailable = errors.New("disease model is not loaded")
	ErrInvalidImage          = errors.New("image could not be read")
	ErrPredictionFailed      = errors.New("an error occurred during prediction")
)

// DiseaseReport is the result of scanning one leaf image
type DiseaseReport struct {
	Diagnosis entities.Diagnosis `json:"diagnosis"`
	// Label is the disease name in the requested language
	Label     string   `json:"label"`
	Treatment []string `json:"treatment,omitempty"`
	Message   string   `json:"message,omitempty"`
	Audio     []byte   `json:"-"`
}

// DiseaseService diagnoses paddy leaf images and suggests treatment
type DiseaseService struct {
	classifier repositories.DiseaseClassifier
	completer  repositories.ChatCompleter
	bridge     *LanguageBridge
	narrator   *Narrator
	logger     *zap.Logger

	mu          sync.RWMutex
	unavailable error
}

func NewDiseaseService(
	classifier repositories.DiseaseClassifier,
	completer repositories.ChatCompleter,
	bridge *LanguageBridge,
	narrator *Narrator,
	logger *zap.Logger,
) *DiseaseService {
	return &DiseaseService{
		classifier: classifier,
		completer:  completer,
		bridge:     bridge,
		narrator:   narrator,
		logger:     logger,
	}
}

// CheckReady probes the model once. A missing model disables detection for
// the life of the process.
func (s *DiseaseService) CheckReady(ctx context.Context) error {
	var err error
	if s.classifier == nil {
		err = ErrClassifierUnavailable
	} else if probe := s.classifier.Ready(ctx); probe != nil {
		err = fmt.Errorf("%w: %v", ErrClassifierUnavailable, probe)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = err
	if err != nil {
		s.logger.Error("Disease detection disabled", zap.Error(err))
	}
	return err
}

// Available returns nil when predictions can be attempted
func (s *DiseaseService) Available() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unavailable
}

// Detect classifies a leaf image and, for diseased plants, asks for treatment steps
func (s *DiseaseService) Detect(ctx context.Context, image io.Reader, lang entities.LanguageTag) (*DiseaseReport, error) {
	if err := s.Available(); err != nil {
		return nil, err
	}

	tensor, format, err := imaging.Preprocess(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	prediction, err := s.classifier.Predict(ctx, tensor)
	if err != nil {
		s.logger.Error("Prediction error", zap.String("format", format), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}

	diagnosis := entities.ResolveDiagnosis(prediction.Probabilities, prediction.Severity)
	if diagnosis.Disease == entities.DiseaseUnknown {
		return nil, ErrPredictionFailed
	}

	report := &DiseaseReport{
		Diagnosis: diagnosis,
		Label:     s.bridge.FromCanonical(ctx, diagnosis.Disease, lang),
	}

	s.logger.Info("Leaf diagnosed",
		zap.String("disease", diagnosis.Disease),
		zap.Float64("severity", diagnosis.Severity))

	if diagnosis.Healthy() {
		report.Message = s.bridge.FromCanonical(ctx, "Your plant is healthy! No treatment needed.", lang)
		return report, nil
	}

	steps, err := s.Treatment(ctx, diagnosis.Disease, lang)
	if err != nil {
		s.logger.Warn("Treatment advice unavailable", zap.Error(err))
		report.Message = s.bridge.FromCanonical(ctx, "Treatment advice is not available right now.", lang)
		return report, nil
	}

	report.Treatment = steps
	report.Audio = s.narrator.Narrate(ctx, strings.Join(steps, " "), lang)
	return report, nil
}

// Treatment returns up to four cure and prevention steps for a paddy disease
func (s *DiseaseService) Treatment(ctx context.Context, disease string, lang entities.LanguageTag) ([]string, error) {
	if s.completer == nil {
		return nil, ErrCompletionUnavailable
	}

	prompt := fmt.Sprintf("4 short, practical cure & prevention steps for paddy %s. Bullets only.", disease)
	if lang == entities.Kannada {
		prompt += " Answer in Kannada. Use • for bullets."
	}

	reply, err := s.completer.Complete(ctx, repositories.CompletionRequest{
		History:     []repositories.ChatMessage{{Role: entities.RoleUser, Content: prompt}},
		MaxTokens:   treatmentMaxTokens,
		Temperature: rankTemperature,
	})
	if err != nil {
		return nil, err
	}

	steps := ParseBullets(reply, treatmentSteps)
	if len(steps) == 0 {
		return nil, fmt.Errorf("no bullet points in treatment reply")
	}
	return steps, nil
}

// ParseBullets keeps up to limit lines that start with •, - or *, with the
// marker stripped
func ParseBullets(reply string, limit int) []string {
	var steps []string
	for _, line := range strings.Split(reply, "\n") {
		if len(steps) == limit {
			break
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, treatmentBullet) && !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "*") {
			continue
		}
		if step := strings.TrimSpace(strings.TrimLeft(line, "•-* ")); step != "" {
			steps = append(steps, step)
		}
	}
	return steps
}
