package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

type Activation string

const (
	ActivationReLU    Activation = "relu"
	ActivationSigmoid Activation = "sigmoid"
	ActivationTanh    Activation = "tanh"
	ActivationLinear  Activation = "linear"
)

// DenseLayer is one fully connected layer. Kernel is laid out in x out,
// the same shape Keras reports for Dense weights.
type DenseLayer struct {
	Kernel     [][]float64 `json:"kernel"`
	Bias       []float64   `json:"bias"`
	Activation Activation  `json:"activation"`
}

// MLP is a feed-forward network ending in a single sigmoid unit.
type MLP struct {
	Name     string       `json:"name,omitempty"`
	InputDim int          `json:"input_dim"`
	Layers   []DenseLayer `json:"layers"`
}

// LoadMLP reads and validates a network exported as JSON.
func LoadMLP(path string) (*MLP, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier: %w", err)
	}
	var model MLP
	if err := json.Unmarshal(payload, &model); err != nil {
		return nil, fmt.Errorf("decode classifier %s: %w", path, err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier %s: %w", path, err)
	}
	return &model, nil
}

func (m *MLP) Save(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Validate checks that layer shapes chain from InputDim to one sigmoid output.
func (m *MLP) Validate() error {
	if m.InputDim <= 0 {
		return errors.New("input_dim must be positive")
	}
	if len(m.Layers) == 0 {
		return errors.New("model has no layers")
	}
	width := m.InputDim
	for i, layer := range m.Layers {
		if len(layer.Kernel) != width {
			return fmt.Errorf("layer %d: kernel has %d rows, want %d", i, len(layer.Kernel), width)
		}
		units := len(layer.Bias)
		if units == 0 {
			return fmt.Errorf("layer %d: empty bias", i)
		}
		for r, row := range layer.Kernel {
			if len(row) != units {
				return fmt.Errorf("layer %d: kernel row %d has %d columns, want %d", i, r, len(row), units)
			}
		}
		if !layer.Activation.valid() {
			return fmt.Errorf("layer %d: unsupported activation %q", i, layer.Activation)
		}
		width = units
	}
	last := m.Layers[len(m.Layers)-1]
	if len(last.Bias) != 1 || last.Activation != ActivationSigmoid {
		return errors.New("output layer must be a single sigmoid unit")
	}
	return nil
}

// PredictProba runs a forward pass and returns the output unit.
func (m *MLP) PredictProba(features []float64) (float64, error) {
	if len(m.Layers) == 0 {
		return 0, errors.New("model not loaded")
	}
	if len(features) != m.InputDim {
		return 0, fmt.Errorf("expected %d features, got %d", m.InputDim, len(features))
	}
	out := features
	for _, layer := range m.Layers {
		out = layer.forward(out)
	}
	prob := out[0]
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return 0, errors.New("classifier produced a non-finite probability")
	}
	return prob, nil
}

func (l DenseLayer) forward(in []float64) []float64 {
	out := make([]float64, len(l.Bias))
	copy(out, l.Bias)
	for i, x := range in {
		for j, w := range l.Kernel[i] {
			out[j] += x * w
		}
	}
	for j := range out {
		out[j] = l.Activation.apply(out[j])
	}
	return out
}

func (a Activation) valid() bool {
	switch a {
	case ActivationReLU, ActivationSigmoid, ActivationTanh, ActivationLinear:
		return true
	}
	return false
}

func (a Activation) apply(x float64) float64 {
	switch a {
	case ActivationReLU:
		if x < 0 {
			return 0
		}
		return x
	case ActivationSigmoid:
		return sigmoid(x)
	case ActivationTanh:
		return math.Tanh(x)
	default:
		return x
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
