package ml

// Estimator is a fitted regressor. Predict returns one value per row of X.
type Estimator interface {
	Predict(X Frame) ([]float64, error)
}

// Transformer is an intermediate pipeline step.
type Transformer interface {
	Transform(X Frame) (Frame, error)
}

// FinalStager is implemented by pipeline-like composites.
type FinalStager interface {
	FinalEstimator() Estimator
}

// Ensemble is implemented by estimators built from a collection of sub-estimators.
type Ensemble interface {
	SubEstimators() []Estimator
}
