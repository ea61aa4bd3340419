package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/repositories"
)

const (
	defaultEndpoint       = "http://localhost:8501"
	defaultModel          = "paddy_disease"
	defaultClassOutput    = "class_output"
	defaultSeverityOutput = "severity_output"
	defaultTimeout        = 30 * time.Second
)

type Config struct {
	Endpoint       string
	Model          string
	ClassOutput    string
	SeverityOutput string
	Timeout        time.Duration
}

// TFServing calls a TensorFlow Serving REST endpoint hosting the two-headed
// paddy disease model (class probabilities + severity regression).
type TFServing struct {
	client         *resty.Client
	model          string
	classOutput    string
	severityOutput string
	logger         *zap.Logger
}

var _ repositories.DiseaseClassifier = (*TFServing)(nil)

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions []map[string]json.RawMessage `json:"predictions"`
	Error       string                       `json:"error"`
}

type modelStatusResponse struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
}

func NewTFServing(config Config, logger *zap.Logger) *TFServing {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
		logger.Info("Using default classifier endpoint", zap.String("endpoint", endpoint))
	}

	model := config.Model
	if model == "" {
		model = defaultModel
	}

	classOutput := config.ClassOutput
	if classOutput == "" {
		classOutput = defaultClassOutput
	}

	severityOutput := config.SeverityOutput
	if severityOutput == "" {
		severityOutput = defaultSeverityOutput
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &TFServing{
		client:         resty.New().SetBaseURL(strings.TrimRight(endpoint, "/")).SetTimeout(timeout),
		model:          model,
		classOutput:    classOutput,
		severityOutput: severityOutput,
		logger:         logger,
	}
}

func (c *TFServing) Predict(ctx context.Context, tensor [][][]float32) (repositories.Prediction, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetHeader("Content-Type", "application/json").
		SetBody(predictRequest{Instances: [][][][]float32{tensor}}).
		Post("/v1/models/{model}:predict")
	if err != nil {
		return repositories.Prediction{}, fmt.Errorf("predict request failed: %w", err)
	}

	var body predictResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return repositories.Prediction{}, fmt.Errorf("failed to parse prediction: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return repositories.Prediction{}, fmt.Errorf("model server returned %d: %s", resp.StatusCode(), body.Error)
	}

	if len(body.Predictions) == 0 {
		return repositories.Prediction{}, fmt.Errorf("model server returned no predictions")
	}
	row := body.Predictions[0]

	var probabilities []float64
	if err := json.Unmarshal(row[c.classOutput], &probabilities); err != nil || len(probabilities) == 0 {
		return repositories.Prediction{}, fmt.Errorf("missing %s in prediction", c.classOutput)
	}

	severity, err := scalar(row[c.severityOutput])
	if err != nil {
		return repositories.Prediction{}, fmt.Errorf("missing %s in prediction: %w", c.severityOutput, err)
	}

	c.logger.Debug("Model prediction",
		zap.Float64s("probabilities", probabilities),
		zap.Float64("severity", severity))
	return repositories.Prediction{Probabilities: probabilities, Severity: severity}, nil
}

// Ready checks that at least one model version is AVAILABLE
func (c *TFServing) Ready(ctx context.Context) error {
	var status modelStatusResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetResult(&status).
		Get("/v1/models/{model}")
	if err != nil {
		return fmt.Errorf("model status request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("model %s not found (status %d)", c.model, resp.StatusCode())
	}

	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	return fmt.Errorf("model %s has no available version", c.model)
}

// scalar accepts either a bare number or a single-element array
func scalar(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("output absent")
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}

	var arr []float64
	if err := json.Unmarshal(raw, &arr); err != nil {
		return 0, err
	}
	if len(arr) == 0 {
		return 0, fmt.Errorf("empty output")
	}
	return arr[0], nil
}
