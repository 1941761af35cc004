// Package form turns raw submitted values into an ml.Record.
package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"houseprice/ml"
)

// Feature names as the estimator knows them.
const (
	Town              = "Town"
	Type              = "Type"
	TotalArea         = "TotalArea"
	TotalRooms        = "TotalRooms"
	NumberOfBathrooms = "NumberOfBathrooms"
	Parking           = "Parking"
	Elevator          = "Elevator"
	TransitTime       = "travel_min_final"
	CarTime           = "drive_min_final"
	CarDistance       = "drive_km_final"
	NoTransitRoute    = "no_transit_route"

	// TownManual is the free-text override for Town.
	TownManual = "town_manual"
)

type kind int

const (
	kindCount kind = iota
	kindFlag
	kindAmount
)

type field struct {
	name  string
	kind  kind
	value float64
}

// Collection order matters: TransitTime is derived from CarTime.
var numericFields = []field{
	{name: TotalArea, kind: kindCount, value: 80},
	{name: TotalRooms, kind: kindCount, value: 3},
	{name: NumberOfBathrooms, kind: kindCount, value: 1},
	{name: Parking, kind: kindCount, value: 0},
	{name: Elevator, kind: kindFlag, value: 0},
	{name: NoTransitRoute, kind: kindFlag, value: 0},
	{name: CarTime, kind: kindAmount, value: 20.0},
	{name: CarDistance, kind: kindAmount, value: 10.0},
	{name: TransitTime, kind: kindAmount, value: 30.0},
}

// Values is satisfied by url.Values.
type Values interface {
	Get(key string) string
}

// Defaults returns the value each numeric field takes when left blank.
func Defaults() ml.Record {
	out := make(ml.Record, len(numericFields))
	for _, f := range numericFields {
		out[f.name] = f.defaultValue()
	}
	return out
}

func (f field) defaultValue() any {
	if f.kind == kindAmount {
		return f.value
	}
	return int(f.value)
}

// Collect validates v and builds the record for one prediction. When
// no_transit_route is 1 the transit time is the car time and any submitted
// transit value is ignored.
func Collect(v Values) (ml.Record, error) {
	record := ml.Record{
		Town: pickTown(v.Get(TownManual), v.Get(Town)),
		Type: strings.TrimSpace(v.Get(Type)),
	}

	invalid := &InvalidInputError{}
	for _, f := range numericFields {
		if f.name == TransitTime && record[NoTransitRoute] == 1 {
			if carTime, ok := record[CarTime]; ok {
				record[TransitTime] = carTime
			}
			continue
		}
		value, reason := f.parse(v.Get(f.name))
		if reason != "" {
			invalid.add(f.name, reason)
			continue
		}
		record[f.name] = value
	}
	if len(invalid.Fields) > 0 {
		return nil, invalid
	}
	return record, nil
}

func pickTown(manual, selected string) string {
	if m := strings.TrimSpace(manual); m != "" {
		return m
	}
	return strings.TrimSpace(selected)
}

func (f field) parse(raw string) (any, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return f.defaultValue(), ""
	}
	switch f.kind {
	case kindCount, kindFlag:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, "must be a whole number"
		}
		if n < 0 {
			return nil, "must not be negative"
		}
		if f.kind == kindFlag && n > 1 {
			return nil, "must be 0 or 1"
		}
		return n, ""
	default:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, "must be a number"
		}
		if x < 0 {
			return nil, "must not be negative"
		}
		return x, ""
	}
}

// FieldError describes one rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// InvalidInputError lists every field that failed validation.
type InvalidInputError struct {
	Fields []FieldError
}

func (e *InvalidInputError) add(name, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: name, Reason: reason})
}

func (e *InvalidInputError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s %s", f.Field, f.Reason)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Reason returns why field was rejected, or "".
func (e *InvalidInputError) Reason(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Reason
		}
	}
	return ""
}
