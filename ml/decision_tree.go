package ml

import (
	"errors"
	"fmt"
	"math"
)

// MonotonicConstraints holds one entry per input feature: -1 decreasing,
// 0 unconstrained, 1 increasing. An empty, non-nil value means no constraint
// on any feature.
type MonotonicConstraints []int8

// MissingAttributeError is returned when a deserialized estimator lacks an
// attribute that inference requires.
type MissingAttributeError struct {
	Estimator string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("'%s' object has no attribute '%s'", e.Estimator, e.Attribute)
}

type DecisionTreeRegressor struct {
	Nodes          []TreeNode            `json:"nodes"`
	NFeaturesIn    int                   `json:"n_features_in"`
	FeatureNamesIn []string              `json:"feature_names_in,omitempty"`
	MonotonicCst   *MonotonicConstraints `json:"monotonic_cst,omitempty"`
}

type TreeNode struct {
	FeatureIdx      int     `json:"feature_idx"`
	Threshold       float64 `json:"threshold"`
	LeftChild       int     `json:"left_child"`
	RightChild      int     `json:"right_child"`
	Value           float64 `json:"value"`
	IsLeaf          bool    `json:"is_leaf"`
	MissingGoToLeft bool    `json:"missing_go_to_left,omitempty"`
}

// HasMonotonicCst reports whether the tree carries its monotonic_cst attribute.
func (dt *DecisionTreeRegressor) HasMonotonicCst() bool {
	return dt.MonotonicCst != nil
}

// Unconstrain sets monotonic_cst to the explicit no-constraint value.
func (dt *DecisionTreeRegressor) Unconstrain() {
	cst := MonotonicConstraints{}
	dt.MonotonicCst = &cst
}

func (dt *DecisionTreeRegressor) Predict(X Frame) ([]float64, error) {
	if err := checkFeatureNames(X, dt.FeatureNamesIn); err != nil {
		return nil, err
	}
	matrix, err := X.Float64Matrix()
	if err != nil {
		return nil, err
	}
	return dt.PredictVectors(matrix)
}

func (dt *DecisionTreeRegressor) PredictVectors(rows [][]float64) ([]float64, error) {
	if dt.MonotonicCst == nil {
		return nil, &MissingAttributeError{Estimator: "DecisionTreeRegressor", Attribute: "monotonic_cst"}
	}
	if len(dt.Nodes) == 0 {
		return nil, errors.New("model not trained")
	}
	out := make([]float64, len(rows))
	for i, features := range rows {
		if dt.NFeaturesIn > 0 && len(features) != dt.NFeaturesIn {
			return nil, fmt.Errorf("X has %d features, but DecisionTreeRegressor is expecting %d features as input", len(features), dt.NFeaturesIn)
		}
		value, err := dt.predictOne(features)
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}

func (dt *DecisionTreeRegressor) predictOne(features []float64) (float64, error) {
	idx := 0
	// a well-formed tree never visits more nodes than it has
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		value := features[node.FeatureIdx]
		switch {
		case math.IsNaN(value):
			if node.MissingGoToLeft {
				idx = node.LeftChild
			} else {
				idx = node.RightChild
			}
		case value <= node.Threshold:
			idx = node.LeftChild
		default:
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("invalid tree state: cycle detected")
}
