package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Scaler applies a fitted per-column transform.
type Scaler interface {
	// InputWidth is the number of columns the scaler was fit on.
	InputWidth() int
	Transform(vector FeatureVector) (FeatureVector, error)
}

// StandardScaler subtracts the fitted mean and divides by the fitted scale.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) InputWidth() int { return len(s.Mean) }

func (s *StandardScaler) validate() error {
	if len(s.Mean) == 0 {
		return errors.New("standard scaler has no columns")
	}
	if len(s.Scale) != len(s.Mean) {
		return fmt.Errorf("standard scaler has %d means but %d scales", len(s.Mean), len(s.Scale))
	}
	return nil
}

func (s *StandardScaler) Transform(vector FeatureVector) (FeatureVector, error) {
	if err := checkInput(vector, s.InputWidth()); err != nil {
		return nil, err
	}
	out := make(FeatureVector, len(vector))
	floats.SubTo(out, vector, s.Mean)
	for i, scale := range s.Scale {
		// zero-variance columns are left centered but unscaled
		if scale != 0 {
			out[i] /= scale
		}
	}
	return out, nil
}

// MinMaxScaler maps each column from [DataMin, DataMax] onto FeatureRange.
type MinMaxScaler struct {
	DataMin      []float64  `json:"data_min"`
	DataMax      []float64  `json:"data_max"`
	FeatureRange [2]float64 `json:"feature_range"`
}

func (s *MinMaxScaler) InputWidth() int { return len(s.DataMin) }

func (s *MinMaxScaler) validate() error {
	if len(s.DataMin) == 0 {
		return errors.New("minmax scaler has no columns")
	}
	if len(s.DataMax) != len(s.DataMin) {
		return fmt.Errorf("minmax scaler has %d minimums but %d maximums", len(s.DataMin), len(s.DataMax))
	}
	if s.FeatureRange == [2]float64{} {
		s.FeatureRange = [2]float64{0, 1}
	}
	if s.FeatureRange[0] >= s.FeatureRange[1] {
		return fmt.Errorf("minmax feature range %v is empty", s.FeatureRange)
	}
	return nil
}

func (s *MinMaxScaler) Transform(vector FeatureVector) (FeatureVector, error) {
	if err := checkInput(vector, s.InputWidth()); err != nil {
		return nil, err
	}
	lo, hi := s.FeatureRange[0], s.FeatureRange[1]
	out := make(FeatureVector, len(vector))
	for i := range vector {
		out[i] = lo + NormalizeFeature(vector[i], s.DataMin[i], s.DataMax[i])*(hi-lo)
	}
	return out, nil
}

// NormalizeFeature maps value from [min, max] onto [0, 1]. A degenerate range maps to 0.
func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

func checkInput(vector FeatureVector, width int) error {
	if len(vector) != width {
		return &FeatureMismatchError{Expected: width, Actual: len(vector)}
	}
	for i, v := range vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("column %d is not a finite number", i)
		}
	}
	return nil
}
