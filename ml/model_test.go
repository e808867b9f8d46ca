package ml

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogisticRegressionPredict(t *testing.T) {
	m := &LogisticRegression{linearModel{Labels: []int{0, 1}, Coef: []float64{1, -1}, Intercept: 0}}
	require.NoError(t, m.validate())

	label, err := m.Predict([]float64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, label)

	proba, err := m.PredictProba([]float64{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-1)), proba[1], 1e-12)
	assert.InDelta(t, 1.0, proba[0]+proba[1], 1e-12)

	label, err = m.Predict([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0, label)

	_, err = m.Predict([]float64{1})
	assert.True(t, errors.Is(err, ErrFeatureMismatch))
}

func TestSigmoidIsStableForLargeInputs(t *testing.T) {
	assert.InDelta(t, 1.0, sigmoid(1000), 1e-12)
	assert.InDelta(t, 0.0, sigmoid(-1000), 1e-12)
	assert.False(t, math.IsNaN(sigmoid(-1000)))
}

func TestLinearSVMHasNoProbability(t *testing.T) {
	var m MLModel = &LinearSVM{linearModel{Labels: []int{0, 1}, Coef: []float64{1}, Intercept: -0.5}}
	_, ok := m.(ProbabilisticModel)
	assert.False(t, ok)

	label, err := m.Predict([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
}

func testTree() *DecisionTree {
	return &DecisionTree{
		Labels:    []int{0, 1},
		NFeatures: 2,
		Nodes: []TreeNode{
			{FeatureIdx: 0, Threshold: 0.5, LeftChild: 1, RightChild: 2},
			{IsLeaf: true, ClassLabel: 0, Value: []float64{45, 5}},
			{FeatureIdx: 1, Threshold: 0, LeftChild: 3, RightChild: 4},
			{IsLeaf: true, ClassLabel: 1, Value: []float64{18, 82}},
			{IsLeaf: true, ClassLabel: 1},
		},
	}
}

func TestDecisionTreePredict(t *testing.T) {
	tree := testTree()
	require.NoError(t, tree.validate())

	label, err := tree.Predict([]float64{0.1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, label)

	proba, err := tree.PredictProba([]float64{0.1, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.9, 0.1}, proba, 1e-12)

	label, err = tree.Predict([]float64{0.9, -1})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	proba, err = tree.PredictProba([]float64{0.9, -1})
	require.NoError(t, err)
	assert.InDelta(t, 0.82, proba[1], 1e-12)
}

func TestDecisionTreeLeafWithoutCounts(t *testing.T) {
	_, err := testTree().PredictProba([]float64{0.9, 1})
	assert.True(t, errors.Is(err, ErrNoProbability))
}

func TestDecisionTreeValidate(t *testing.T) {
	tree := testTree()
	tree.Nodes[0].RightChild = 9
	assert.Error(t, tree.validate())

	tree = testTree()
	tree.Nodes[2].FeatureIdx = 5
	assert.Error(t, tree.validate())

	tree = testTree()
	tree.Nodes[2].LeftChild = 0
	assert.Error(t, tree.validate(), "cycles back to the root must be rejected")

	tree = testTree()
	tree.Labels = []int{1}
	assert.Error(t, tree.validate())

	assert.Error(t, (&DecisionTree{}).validate())
}
