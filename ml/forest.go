package ml

import (
	"errors"
	"fmt"
)

// RandomForestRegressor averages the predictions of its trees.
type RandomForestRegressor struct {
	Estimators     []*DecisionTreeRegressor
	NFeaturesIn    int
	FeatureNamesIn []string
}

func (rf *RandomForestRegressor) SubEstimators() []Estimator {
	out := make([]Estimator, len(rf.Estimators))
	for i, tree := range rf.Estimators {
		out[i] = tree
	}
	return out
}

func (rf *RandomForestRegressor) Predict(X Frame) ([]float64, error) {
	if err := checkFeatureNames(X, rf.FeatureNamesIn); err != nil {
		return nil, err
	}
	if len(X.Rows) == 0 {
		return nil, errEmptyFrame
	}
	matrix, err := X.Float64Matrix()
	if err != nil {
		return nil, err
	}
	if len(rf.Estimators) == 0 {
		return nil, errors.New("forest has no estimators")
	}
	if rf.NFeaturesIn > 0 && len(matrix[0]) != rf.NFeaturesIn {
		return nil, fmt.Errorf("X has %d features, but RandomForestRegressor is expecting %d features as input", len(matrix[0]), rf.NFeaturesIn)
	}

	sums := make([]float64, len(matrix))
	for i, tree := range rf.Estimators {
		predictions, err := tree.PredictVectors(matrix)
		if err != nil {
			return nil, fmt.Errorf("estimator %d: %w", i, err)
		}
		for j, value := range predictions {
			sums[j] += value
		}
	}
	n := float64(len(rf.Estimators))
	for j := range sums {
		sums[j] /= n
	}
	return sums, nil
}
