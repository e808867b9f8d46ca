package ml

import (
	"errors"
	"fmt"
)

// DecisionTree is a fitted binary tree stored as a flat node array, root first.
type DecisionTree struct {
	Labels    []int      `json:"classes"`
	NFeatures int        `json:"n_features"`
	Nodes     []TreeNode `json:"nodes"`
}

// TreeNode is one split or leaf. Value holds per-class training counts at the
// node, in Classes order; leaves without it cannot report probabilities.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	ClassLabel int       `json:"class_label"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value,omitempty"`
}

func (dt *DecisionTree) Classes() []int { return append([]int(nil), dt.Labels...) }

func (dt *DecisionTree) InputWidth() int { return dt.NFeatures }

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, err
	}
	return leaf.ClassLabel, nil
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	if len(leaf.Value) != len(dt.Labels) {
		return nil, ErrNoProbability
	}
	total := 0.0
	for _, v := range leaf.Value {
		total += v
	}
	if total <= 0 {
		return nil, ErrNoProbability
	}
	proba := make([]float64, len(leaf.Value))
	for i, v := range leaf.Value {
		proba[i] = v / total
	}
	return proba, nil
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return TreeNode{}, errors.New("model not trained")
	}
	if len(features) != dt.NFeatures {
		return TreeNode{}, &FeatureMismatchError{Expected: dt.NFeatures, Actual: len(features)}
	}
	idx := 0
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
	return TreeNode{}, errors.New("invalid tree state")
}

func (dt *DecisionTree) validate() error {
	if len(dt.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	if dt.NFeatures <= 0 {
		return errors.New("tree does not declare n_features")
	}
	if err := validateClasses(dt.Labels); err != nil {
		return err
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if node.ClassLabel != dt.Labels[0] && node.ClassLabel != dt.Labels[1] {
				return fmt.Errorf("node %d predicts unknown class %d", i, node.ClassLabel)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= dt.NFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, node.FeatureIdx, dt.NFeatures)
		}
		// children always follow their parent in the flat layout
		if node.LeftChild <= i || node.LeftChild >= len(dt.Nodes) ||
			node.RightChild <= i || node.RightChild >= len(dt.Nodes) {
			return fmt.Errorf("node %d has child out of range", i)
		}
	}
	return nil
}
