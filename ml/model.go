package ml

import "context"

// Classifier maps a feature vector to a fraud probability.
type Classifier interface {
	PredictProba(features []float64) (float64, error)
}

// ModelProvider is what the HTTP layer needs from a loaded model.
type ModelProvider interface {
	Predict(ctx context.Context, tx Transaction) (Prediction, error)
}
