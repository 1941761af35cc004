package ml

import (
	"errors"
	"fmt"
)

// ErrPatchSkipped marks a compatibility pass that could not walk the estimator.
// The estimator is still returned to the caller untouched.
var ErrPatchSkipped = errors.New("compatibility patch skipped")

type monotonicAware interface {
	HasMonotonicCst() bool
	Unconstrain()
}

// Patch fills monotonic_cst on every tree regressor that was serialized
// without it. Pipelines are patched through their final estimator and
// ensembles through their sub-estimators. Targets are collected before any is
// modified, so a failed walk leaves est unchanged.
func Patch(est Estimator) (patched int, err error) {
	defer func() {
		if r := recover(); r != nil {
			patched = 0
			err = fmt.Errorf("%w: %v", ErrPatchSkipped, r)
		}
	}()

	target := est
	if staged, ok := est.(FinalStager); ok {
		target = staged.FinalEstimator()
	}
	if target == nil {
		return 0, fmt.Errorf("%w: no final estimator", ErrPatchSkipped)
	}

	var pending []monotonicAware
	switch t := target.(type) {
	case Ensemble:
		for _, sub := range t.SubEstimators() {
			if tree, ok := sub.(monotonicAware); ok && !tree.HasMonotonicCst() {
				pending = append(pending, tree)
			}
		}
	case monotonicAware:
		if !t.HasMonotonicCst() {
			pending = append(pending, t)
		}
	default:
		return 0, fmt.Errorf("%w: %T exposes no estimator collection", ErrPatchSkipped, target)
	}

	for _, tree := range pending {
		tree.Unconstrain()
	}
	return len(pending), nil
}
