package ml

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// CurrentFormatVersion is the artifact format written by the current trainer.
// Version 1 artifacts predate monotonic_cst on tree regressors.
const CurrentFormatVersion = 2

// Artifact is the on-disk envelope of a serialized estimator.
type Artifact struct {
	FormatVersion int             `json:"format_version"`
	Estimator     json.RawMessage `json:"estimator"`
}

type estimatorHeader struct {
	Type string `json:"type"`
}

type decodeFunc func(raw json.RawMessage) (any, error)

var decoders map[string]decodeFunc

func init() {
	decoders = map[string]decodeFunc{
		"pipeline":                decodePipeline,
		"column_transformer":      decodeColumnTransformer,
		"random_forest_regressor": decodeForest,
		"decision_tree_regressor": decodeTree,
	}
}

// LoadArtifact reads and decodes the estimator stored at path. The file may be
// plain or gzip-compressed JSON.
func LoadArtifact(path string) (Estimator, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()
	return ReadArtifact(file)
}

func ReadArtifact(r io.Reader) (Estimator, int, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, 0, fmt.Errorf("open gzip artifact: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	var artifact Artifact
	if err := json.NewDecoder(src).Decode(&artifact); err != nil {
		return nil, 0, fmt.Errorf("decode artifact: %w", err)
	}
	if len(artifact.Estimator) == 0 {
		return nil, 0, errors.New("artifact has no estimator")
	}
	if artifact.FormatVersion <= 0 {
		artifact.FormatVersion = 1
	}
	decoded, err := decodeEstimator(artifact.Estimator)
	if err != nil {
		return nil, 0, err
	}
	est, ok := decoded.(Estimator)
	if !ok {
		return nil, 0, fmt.Errorf("artifact root %T cannot predict", decoded)
	}
	return est, artifact.FormatVersion, nil
}

func decodeEstimator(raw json.RawMessage) (any, error) {
	var header estimatorHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, err
	}
	decode, ok := decoders[header.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported estimator type %q", header.Type)
	}
	return decode(raw)
}

func decodePipeline(raw json.RawMessage) (any, error) {
	var payload struct {
		FeatureNamesIn []string `json:"feature_names_in"`
		Steps          []struct {
			Name      string          `json:"name"`
			Estimator json.RawMessage `json:"estimator"`
		} `json:"steps"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p := &Pipeline{FeatureNamesIn: payload.FeatureNamesIn}
	for _, step := range payload.Steps {
		est, err := decodeEstimator(step.Estimator)
		if err != nil {
			return nil, fmt.Errorf("pipeline step %q: %w", step.Name, err)
		}
		p.Steps = append(p.Steps, Step{Name: step.Name, Estimator: est})
	}
	return p, nil
}

func decodeColumnTransformer(raw json.RawMessage) (any, error) {
	var payload struct {
		FeatureNamesIn []string `json:"feature_names_in"`
		Transformers   []struct {
			Name         string     `json:"name"`
			Kind         string     `json:"kind"`
			Columns      []string   `json:"columns"`
			Categories   [][]string `json:"categories"`
			UnknownValue *float64   `json:"unknown_value"`
			FillValues   []float64  `json:"fill_values"`
		} `json:"transformers"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("column_transformer: %w", err)
	}
	ct := &ColumnTransformer{FeatureNamesIn: payload.FeatureNamesIn}
	for _, t := range payload.Transformers {
		unknown := -1.0
		if t.UnknownValue != nil {
			unknown = *t.UnknownValue
		}
		ct.Transformers = append(ct.Transformers, ColumnTransform{
			Name:         t.Name,
			Kind:         t.Kind,
			Columns:      t.Columns,
			Categories:   t.Categories,
			UnknownValue: unknown,
			FillValues:   t.FillValues,
		})
	}
	return ct, nil
}

func decodeForest(raw json.RawMessage) (any, error) {
	var payload struct {
		NFeaturesIn    int                      `json:"n_features_in"`
		FeatureNamesIn []string                 `json:"feature_names_in"`
		Estimators     []*DecisionTreeRegressor `json:"estimators"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("random_forest_regressor: %w", err)
	}
	for i, tree := range payload.Estimators {
		if tree == nil {
			return nil, fmt.Errorf("random_forest_regressor: estimator %d is null", i)
		}
	}
	return &RandomForestRegressor{
		Estimators:     payload.Estimators,
		NFeaturesIn:    payload.NFeaturesIn,
		FeatureNamesIn: payload.FeatureNamesIn,
	}, nil
}

func decodeTree(raw json.RawMessage) (any, error) {
	tree := &DecisionTreeRegressor{}
	if err := json.Unmarshal(raw, tree); err != nil {
		return nil, fmt.Errorf("decision_tree_regressor: %w", err)
	}
	return tree, nil
}

// LoadModel loads the artifact at path and applies the compatibility pass.
// A skipped pass is logged and the unpatched estimator is returned.
func LoadModel(path string, logger *zap.Logger) (Estimator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	est, version, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	patched, err := Patch(est)
	if err != nil {
		logger.Debug("Compatibility patch skipped", zap.String("path", path), zap.Error(err))
	} else if patched > 0 {
		logger.Info("Patched estimators for compatibility",
			zap.Int("format_version", version),
			zap.Int("patched", patched))
	}
	return est, nil
}
