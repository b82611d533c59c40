package ml

import (
	"context"
	"errors"
	"fmt"
)

// DecisionThreshold separates fraud from legitimate: label is 1 only when
// the probability is strictly greater.
const DecisionThreshold = 0.5

type Prediction struct {
	Probability float64 `json:"probability"`
	Label       int     `json:"label"`
}

// Predictor pairs a classifier with the scaler it was trained behind.
// Both are read-only after construction.
type Predictor struct {
	classifier Classifier
	scaler     *Scaler
}

func NewPredictor(classifier Classifier, scaler *Scaler) (*Predictor, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if scaler == nil {
		return nil, errors.New("scaler is required")
	}
	if err := scaler.Validate(); err != nil {
		return nil, err
	}
	return &Predictor{classifier: classifier, scaler: scaler}, nil
}

// LoadPredictor loads both artifacts. Any failure leaves nothing usable.
func LoadPredictor(modelType, modelPath, scalerPath string) (*Predictor, error) {
	classifier, err := LoadClassifier(modelType, modelPath)
	if err != nil {
		return nil, err
	}
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	return NewPredictor(classifier, scaler)
}

// Predict scales Time and Amount, runs the classifier and thresholds it.
func (p *Predictor) Predict(ctx context.Context, tx Transaction) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	scaled, err := p.scaler.Transform([]float64{tx.Time, tx.Amount})
	if err != nil {
		return Prediction{}, fmt.Errorf("scale: %w", err)
	}
	tx.Time, tx.Amount = scaled[0], scaled[1]

	prob, err := p.classifier.PredictProba(FeatureVector(tx))
	if err != nil {
		return Prediction{}, fmt.Errorf("classify: %w", err)
	}
	if prob < 0 || prob > 1 {
		return Prediction{}, fmt.Errorf("classifier returned %v outside [0,1]", prob)
	}
	return Prediction{Probability: prob, Label: LabelFor(prob)}, nil
}

func LabelFor(probability float64) int {
	if probability > DecisionThreshold {
		return 1
	}
	return 0
}
