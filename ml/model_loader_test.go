package ml

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func lisbonRow(town string) Frame {
	return Assemble(lisbonSchema, Record{
		"Town":              town,
		"Type":              "Apartment",
		"TotalArea":         80,
		"TotalRooms":        3,
		"NumberOfBathrooms": 1,
		"Parking":           0,
		"Elevator":          0,
		"travel_min_final":  20.0,
		"drive_min_final":   20.0,
		"drive_km_final":    10.0,
		"no_transit_route":  1,
	})
}

func TestLoadArtifactLegacyFailsWithoutPatch(t *testing.T) {
	est, version, err := LoadArtifact(filepath.Join("testdata", "legacy_pipeline.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected format version 1, got %d", version)
	}
	_, err = est.Predict(lisbonRow("Lisbon"))
	var missing *MissingAttributeError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingAttributeError, got %v", err)
	}
}

func TestLoadModelPatchesLegacyArtifact(t *testing.T) {
	est, err := LoadModel(filepath.Join("testdata", "legacy_pipeline.json"), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := est.Predict(lisbonRow("Lisbon"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 2500 {
		t.Fatalf("expected 2500, got %v", got[0])
	}

	got, err = est.Predict(lisbonRow("Porto"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 1900 {
		t.Fatalf("expected 1900, got %v", got[0])
	}
}

func TestLoadArtifactGzip(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "legacy_pipeline.json"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "model.json.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	est, err := LoadModel(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := est.Predict(lisbonRow("Lisbon")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadArtifactErrors(t *testing.T) {
	cases := map[string]string{
		"not json":     "joblib",
		"no estimator": `{"format_version": 2}`,
		"unknown type": `{"estimator": {"type": "svr"}}`,
		"null tree":    `{"estimator": {"type": "random_forest_regressor", "estimators": [null]}}`,
		"transformer":  `{"estimator": {"type": "column_transformer"}}`,
	}
	for name, body := range cases {
		if _, _, err := ReadArtifact(strings.NewReader(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestReadArtifactCurrentTree(t *testing.T) {
	body := `{"format_version": 2, "estimator": {"type": "decision_tree_regressor", "monotonic_cst": [],
		"nodes": [{"feature_idx": -1, "left_child": -1, "right_child": -1, "value": 7, "is_leaf": true}]}}`
	est, version, err := ReadArtifact(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != CurrentFormatVersion {
		t.Fatalf("expected version %d, got %d", CurrentFormatVersion, version)
	}
	got, err := est.Predict(Frame{Columns: []string{"a"}, Rows: [][]any{{1}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 7 {
		t.Fatalf("expected 7, got %v", got[0])
	}
}
