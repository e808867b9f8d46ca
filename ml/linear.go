package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// linearModel is the shared decision function w·x + b.
type linearModel struct {
	Labels    []int     `json:"classes"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (m *linearModel) Classes() []int { return append([]int(nil), m.Labels...) }

func (m *linearModel) InputWidth() int { return len(m.Coef) }

func (m *linearModel) validate() error {
	if len(m.Coef) == 0 {
		return errors.New("model has no coefficients")
	}
	if err := validateClasses(m.Labels); err != nil {
		return err
	}
	return nil
}

func (m *linearModel) decision(features []float64) (float64, error) {
	if len(features) != len(m.Coef) {
		return 0, &FeatureMismatchError{Expected: len(m.Coef), Actual: len(features)}
	}
	return floats.Dot(m.Coef, features) + m.Intercept, nil
}

func (m *linearModel) label(decision float64) int {
	if decision > 0 {
		return m.Labels[1]
	}
	return m.Labels[0]
}

// LogisticRegression is a binary logistic model.
type LogisticRegression struct {
	linearModel
}

func (m *LogisticRegression) Predict(features []float64) (int, error) {
	d, err := m.decision(features)
	if err != nil {
		return 0, err
	}
	return m.label(d), nil
}

func (m *LogisticRegression) PredictProba(features []float64) ([]float64, error) {
	d, err := m.decision(features)
	if err != nil {
		return nil, err
	}
	p := sigmoid(d)
	return []float64{1 - p, p}, nil
}

// LinearSVM is a linear max-margin classifier. It has no probability estimate.
type LinearSVM struct {
	linearModel
}

func (m *LinearSVM) Predict(features []float64) (int, error) {
	d, err := m.decision(features)
	if err != nil {
		return 0, err
	}
	return m.label(d), nil
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func validateClasses(classes []int) error {
	if len(classes) != 2 {
		return fmt.Errorf("expected 2 classes, got %d", len(classes))
	}
	if classes[0] == classes[1] {
		return fmt.Errorf("classes %v are not distinct", classes)
	}
	return nil
}
