package repositories

import "context"

// Prediction is the raw output of the disease classifier
type Prediction struct {
	Probabilities []float64
	Severity      float64
}

// DiseaseClassifier runs the leaf disease model on a normalized 224x224x3 tensor
type DiseaseClassifier interface {
	Predict(ctx context.Context, tensor [][][]float32) (Prediction, error)
	// Ready reports whether the model is loaded and serving
	Ready(ctx context.Context) error
}
