package ml

import (
	"errors"
	"fmt"
	"math"
)

// Record maps a feature name to a raw scalar: string for categorical fields,
// int or float64 for numeric ones.
type Record map[string]any

// Frame is a small column-named table. A nil cell is a missing value.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// Assemble builds the single-row frame the estimator is fed. Columns follow
// schema exactly; names absent from record hold nil.
func Assemble(schema []string, record Record) Frame {
	columns := make([]string, len(schema))
	copy(columns, schema)

	row := make([]any, len(schema))
	for i, name := range schema {
		value, ok := record[name]
		if !ok {
			continue
		}
		row[i] = value
	}
	return Frame{Columns: columns, Rows: [][]any{row}}
}

// RowMap returns row i keyed by column name.
func (f Frame) RowMap(i int) map[string]any {
	if i < 0 || i >= len(f.Rows) {
		return nil
	}
	out := make(map[string]any, len(f.Columns))
	for j, name := range f.Columns {
		out[name] = f.Rows[i][j]
	}
	return out
}

// ColumnIndex returns the position of name, or -1.
func (f Frame) ColumnIndex(name string) int {
	for i, column := range f.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// Float64Matrix converts every cell to float64. Missing cells become NaN and
// strings are rejected.
func (f Frame) Float64Matrix() ([][]float64, error) {
	out := make([][]float64, len(f.Rows))
	for i, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(f.Columns))
		}
		vector := make([]float64, len(row))
		for j, cell := range row {
			value, err := toFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", f.Columns[j], err)
			}
			vector[j] = value
		}
		out[i] = vector
	}
	return out, nil
}

func toFloat(cell any) (float64, error) {
	switch v := cell.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return 0, fmt.Errorf("could not convert string to float: %q", v)
	default:
		return 0, fmt.Errorf("unsupported value type %T", cell)
	}
}

func checkFeatureNames(X Frame, expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	if len(X.Columns) != len(expected) {
		return fmt.Errorf("X has %d features, but estimator is expecting %d features as input", len(X.Columns), len(expected))
	}
	for i, name := range expected {
		if X.Columns[i] != name {
			return fmt.Errorf("feature names must be in the same order as they were in fit: position %d is %q, expected %q", i, X.Columns[i], name)
		}
	}
	return nil
}

var errEmptyFrame = errors.New("frame has no rows")
