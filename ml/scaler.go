package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type ScalerKind string

const (
	// StandardScaling is (x - mean) / scale.
	StandardScaling ScalerKind = "standard"
	// MinMaxScaling maps [data_min, data_max] onto [0, 1] without clipping.
	MinMaxScaling ScalerKind = "minmax"
)

// ScaledColumns are the only fields the scaler was fitted on.
var ScaledColumns = []string{"Time", "Amount"}

// Scaler holds the parameters of a fitted two-column scaler.
type Scaler struct {
	Kind    ScalerKind `json:"kind"`
	Columns []string   `json:"columns"`
	Mean    []float64  `json:"mean,omitempty"`
	Scale   []float64  `json:"scale,omitempty"`
	DataMin []float64  `json:"data_min,omitempty"`
	DataMax []float64  `json:"data_max,omitempty"`
}

// LoadScaler reads and validates a scaler exported as JSON.
func LoadScaler(path string) (*Scaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	var scaler Scaler
	if err := json.Unmarshal(payload, &scaler); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", path, err)
	}
	if err := scaler.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scaler %s: %w", path, err)
	}
	return &scaler, nil
}

func (s *Scaler) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (s *Scaler) Validate() error {
	if len(s.Columns) != len(ScaledColumns) {
		return fmt.Errorf("expected columns %v, got %v", ScaledColumns, s.Columns)
	}
	for i, name := range ScaledColumns {
		if s.Columns[i] != name {
			return fmt.Errorf("expected columns %v, got %v", ScaledColumns, s.Columns)
		}
	}
	n := len(s.Columns)
	switch s.Kind {
	case StandardScaling:
		if len(s.Mean) != n || len(s.Scale) != n {
			return errors.New("standard scaler needs mean and scale per column")
		}
	case MinMaxScaling:
		if len(s.DataMin) != n || len(s.DataMax) != n {
			return errors.New("minmax scaler needs data_min and data_max per column")
		}
	default:
		return fmt.Errorf("unsupported scaler kind %q", s.Kind)
	}
	return nil
}

// Transform scales one value per column, in Columns order.
func (s *Scaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.Columns) {
		return nil, fmt.Errorf("expected %d values, got %d", len(s.Columns), len(values))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		switch s.Kind {
		case StandardScaling:
			out[i] = (v - s.Mean[i]) / nonZero(s.Scale[i])
		case MinMaxScaling:
			out[i] = (v - s.DataMin[i]) / nonZero(s.DataMax[i]-s.DataMin[i])
		default:
			return nil, fmt.Errorf("unsupported scaler kind %q", s.Kind)
		}
	}
	return out, nil
}

// zero-variance columns are left unscaled, matching how the scaler was fitted
func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
