package ml

import (
	"fmt"
)

const ModelTypeMLP = "mlp"

// LoadClassifier opens a serialized classifier of the given type and checks
// that it accepts a full transaction vector.
func LoadClassifier(modelType, path string) (Classifier, error) {
	switch modelType {
	case ModelTypeMLP, "":
		model, err := LoadMLP(path)
		if err != nil {
			return nil, err
		}
		if model.InputDim != FeatureCount {
			return nil, fmt.Errorf("classifier expects %d inputs, transactions have %d", model.InputDim, FeatureCount)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
