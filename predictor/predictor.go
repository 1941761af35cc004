// Package predictor runs the estimator on one collected record and derives
// the total price from the per-area estimate.
package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"houseprice/ml"
)

// AreaField is the record field the per-area price is multiplied by.
const AreaField = "TotalArea"

const defaultCacheSize = 256

type Result struct {
	PricePerArea float64        `json:"price_per_area"`
	TotalPrice   float64        `json:"total_price"`
	Row          map[string]any `json:"row"`
}

// PredictionFailedError wraps any failure raised while running the estimator.
// The session stays usable; the caller may retry with different inputs.
type PredictionFailedError struct {
	Err error
}

func (e *PredictionFailedError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionFailedError) Unwrap() error {
	return e.Err
}

type Predictor struct {
	schema []string
	model  ml.Estimator
	cache  *lru.Cache[string, float64]
	logger *zap.Logger
}

type Option func(*Predictor) error

// WithCacheSize bounds the result cache. Zero disables caching.
func WithCacheSize(size int) Option {
	return func(p *Predictor) error {
		if size <= 0 {
			p.cache = nil
			return nil
		}
		cache, err := lru.New[string, float64](size)
		if err != nil {
			return err
		}
		p.cache = cache
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Predictor) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

func New(schema []string, model ml.Estimator, opts ...Option) (*Predictor, error) {
	if len(schema) == 0 {
		return nil, errors.New("schema is empty")
	}
	if model == nil {
		return nil, errors.New("model is nil")
	}
	p := &Predictor{schema: schema, model: model, logger: zap.NewNop()}
	if err := WithCacheSize(defaultCacheSize)(p); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Schema returns the feature order rows are assembled in.
func (p *Predictor) Schema() []string {
	out := make([]string, len(p.schema))
	copy(out, p.schema)
	return out
}

// Predict assembles record against the schema, runs the estimator and
// computes the total price. Estimator errors and panics are returned as
// *PredictionFailedError.
func (p *Predictor) Predict(ctx context.Context, record ml.Record) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	row := ml.Assemble(p.schema, record)
	perArea, err := p.pricePerArea(row)
	if err != nil {
		p.logger.Warn("Prediction failed", zap.Error(err))
		return Result{}, &PredictionFailedError{Err: err}
	}

	result := Result{
		PricePerArea: perArea,
		TotalPrice:   perArea * area(record[AreaField]),
		Row:          row.RowMap(0),
	}
	if !finite(result.TotalPrice) {
		err := fmt.Errorf("total price %v is out of range", result.TotalPrice)
		p.logger.Warn("Prediction failed", zap.Error(err))
		return Result{}, &PredictionFailedError{Err: err}
	}
	p.logger.Debug("Prediction complete",
		zap.Float64("price_per_area", result.PricePerArea),
		zap.Float64("total_price", result.TotalPrice))
	return result, nil
}

// pricePerArea runs the estimator, consulting the cache first. The estimator
// is immutable, so equal rows always produce equal values.
func (p *Predictor) pricePerArea(row ml.Frame) (float64, error) {
	key, keyErr := cacheKey(row)
	if p.cache != nil && keyErr == nil {
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}
	}
	values, err := p.run(row)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, errors.New("estimator returned no values")
	}
	if !finite(values[0]) {
		return 0, fmt.Errorf("estimator returned %v", values[0])
	}
	if p.cache != nil && keyErr == nil {
		p.cache.Add(key, values[0])
	}
	return values[0], nil
}

func (p *Predictor) run(row ml.Frame) (values []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("estimator panicked: %v", r)
		}
	}()
	return p.model.Predict(row)
}

// Rows hold only JSON scalars, so the encoding is a stable key.
func cacheKey(row ml.Frame) (string, error) {
	payload, err := json.Marshal(row.Rows[0])
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func area(v any) float64 {
	switch a := v.(type) {
	case int:
		return float64(a)
	case int64:
		return float64(a)
	case float64:
		return a
	case float32:
		return float64(a)
	default:
		return 0
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
