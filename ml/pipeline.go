package ml

import (
	"errors"
	"fmt"
)

// Step is one named stage of a Pipeline. Every stage but the last must be a
// Transformer.
type Step struct {
	Name      string
	Estimator any
}

type Pipeline struct {
	Steps          []Step
	FeatureNamesIn []string
}

func (p *Pipeline) FinalEstimator() Estimator {
	if len(p.Steps) == 0 {
		return nil
	}
	est, _ := p.Steps[len(p.Steps)-1].Estimator.(Estimator)
	return est
}

func (p *Pipeline) Predict(X Frame) ([]float64, error) {
	if len(p.Steps) == 0 {
		return nil, errors.New("pipeline has no steps")
	}
	if err := checkFeatureNames(X, p.FeatureNamesIn); err != nil {
		return nil, err
	}
	data := X
	for _, step := range p.Steps[:len(p.Steps)-1] {
		transformer, ok := step.Estimator.(Transformer)
		if !ok {
			return nil, fmt.Errorf("step %q is not a transformer", step.Name)
		}
		out, err := transformer.Transform(data)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}
		data = out
	}
	final := p.FinalEstimator()
	if final == nil {
		return nil, fmt.Errorf("step %q is not an estimator", p.Steps[len(p.Steps)-1].Name)
	}
	return final.Predict(data)
}
