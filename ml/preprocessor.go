package ml

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	TransformOrdinal     = "ordinal"
	TransformImpute      = "impute"
	TransformPassthrough = "passthrough"
)

// ColumnTransformer maps the raw feature frame to the numeric frame the
// regressor was fitted on.
type ColumnTransformer struct {
	Transformers   []ColumnTransform
	FeatureNamesIn []string
}

// ColumnTransform applies one encoding to a group of input columns.
// Categories and FillValues are parallel to Columns.
type ColumnTransform struct {
	Name         string
	Kind         string
	Columns      []string
	Categories   [][]string
	UnknownValue float64
	FillValues   []float64
}

func (ct *ColumnTransformer) Transform(X Frame) (Frame, error) {
	if err := checkFeatureNames(X, ct.FeatureNamesIn); err != nil {
		return Frame{}, err
	}

	var columns []string
	for _, t := range ct.Transformers {
		for _, column := range t.Columns {
			columns = append(columns, t.Name+"__"+column)
		}
	}

	rows := make([][]any, len(X.Rows))
	for i, row := range X.Rows {
		out := make([]any, 0, len(columns))
		for _, t := range ct.Transformers {
			for j, column := range t.Columns {
				idx := X.ColumnIndex(column)
				if idx < 0 {
					return Frame{}, fmt.Errorf("column %q not found in input", column)
				}
				value, err := t.apply(j, row[idx])
				if err != nil {
					return Frame{}, fmt.Errorf("%s: column %s: %w", t.Name, column, err)
				}
				out = append(out, value)
			}
		}
		rows[i] = out
	}
	return Frame{Columns: columns, Rows: rows}, nil
}

func (t ColumnTransform) apply(j int, cell any) (float64, error) {
	switch t.Kind {
	case TransformOrdinal:
		if j >= len(t.Categories) {
			return 0, errors.New("no categories fitted")
		}
		s, ok := cell.(string)
		if !ok {
			if cell == nil {
				return t.UnknownValue, nil
			}
			return 0, fmt.Errorf("expected string category, got %T", cell)
		}
		s = strings.TrimSpace(s)
		for code, category := range t.Categories[j] {
			if category == s {
				return float64(code), nil
			}
		}
		return t.UnknownValue, nil
	case TransformImpute:
		if cell == nil {
			if j >= len(t.FillValues) {
				return 0, errors.New("no fill value fitted")
			}
			return t.FillValues[j], nil
		}
		value, err := toFloat(cell)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(value) && j < len(t.FillValues) {
			return t.FillValues[j], nil
		}
		return value, nil
	case TransformPassthrough:
		return toFloat(cell)
	default:
		return 0, fmt.Errorf("unsupported transform kind %q", t.Kind)
	}
}
