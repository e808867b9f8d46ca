package ml

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScalerTransform(t *testing.T) {
	s := &StandardScaler{Mean: []float64{10, 50, 1}, Scale: []float64{2, 25, 0}}
	require.NoError(t, s.validate())
	assert.Equal(t, 3, s.InputWidth())

	out, err := s.Transform(FeatureVector{12, 0, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -2, 3}, []float64(out), 1e-12)
}

func TestStandardScalerRejectsMalformedInput(t *testing.T) {
	s := &StandardScaler{Mean: []float64{0, 0}, Scale: []float64{1, 1}}

	_, err := s.Transform(FeatureVector{1})
	assert.True(t, errors.Is(err, ErrFeatureMismatch))

	_, err = s.Transform(FeatureVector{1, math.NaN()})
	require.Error(t, err)
	_, err = s.Transform(FeatureVector{math.Inf(1), 0})
	require.Error(t, err)
}

func TestStandardScalerValidate(t *testing.T) {
	assert.Error(t, (&StandardScaler{}).validate())
	assert.Error(t, (&StandardScaler{Mean: []float64{1}, Scale: []float64{1, 2}}).validate())
}

func TestMinMaxScalerTransform(t *testing.T) {
	s := &MinMaxScaler{DataMin: []float64{0, 18, 5}, DataMax: []float64{72, 98, 5}}
	require.NoError(t, s.validate())
	assert.Equal(t, [2]float64{0, 1}, s.FeatureRange)

	out, err := s.Transform(FeatureVector{36, 58, 5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0}, []float64(out), 1e-12)

	s = &MinMaxScaler{DataMin: []float64{0}, DataMax: []float64{10}, FeatureRange: [2]float64{-1, 1}}
	require.NoError(t, s.validate())
	out, err = s.Transform(FeatureVector{10})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 1e-12)
}

func TestMinMaxScalerValidate(t *testing.T) {
	assert.Error(t, (&MinMaxScaler{}).validate())
	assert.Error(t, (&MinMaxScaler{DataMin: []float64{0}, DataMax: []float64{1, 2}}).validate())
	assert.Error(t, (&MinMaxScaler{DataMin: []float64{0}, DataMax: []float64{1}, FeatureRange: [2]float64{1, 0}}).validate())
}

func TestNormalizeFeature(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeFeature(5, 5, 5))
	assert.Equal(t, 0.25, NormalizeFeature(25, 0, 100))
}
