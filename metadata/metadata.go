// Package metadata loads the feature schema and the choice catalog that sit
// next to the model artifact.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Categorical fields the catalog always carries, in form order.
const (
	FieldTown = "Town"
	FieldType = "Type"
)

var ErrSchemaUnavailable = errors.New("feature schema unavailable")

// Schema is the ordered list of feature names the estimator was trained on.
type Schema []string

// Catalog maps a categorical field to its known values.
type Catalog map[string][]string

// Values returns the known values of field, never nil.
func (c Catalog) Values(field string) []string {
	if values, ok := c[field]; ok && values != nil {
		return values
	}
	return []string{}
}

// EmptyCatalog returns a catalog with an empty list for each categorical field.
func EmptyCatalog() Catalog {
	return Catalog{FieldTown: {}, FieldType: {}}
}

type candidate struct {
	name     string
	encoding encoding.Encoding
}

// Files may have been saved as UTF-8 (with or without BOM) or by a legacy
// Windows editor.
var candidates = []candidate{
	{name: "utf-8", encoding: unicode.UTF8BOM},
	{name: "windows-1252", encoding: charmap.Windows1252},
}

// decodeJSON tries each candidate encoding in turn and unmarshals into v.
func decodeJSON(raw []byte, v any) (string, error) {
	var errs []error
	for _, c := range candidates {
		if c.encoding == unicode.UTF8BOM && !utf8.Valid(raw) {
			errs = append(errs, fmt.Errorf("%s: invalid byte sequence", c.name))
			continue
		}
		text, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), c.encoding.NewDecoder()))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		if err := json.Unmarshal(text, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		return c.name, nil
	}
	return "", errors.Join(errs...)
}

// LoadSchema reads the ordered feature list. Any failure is fatal for the
// caller and wraps ErrSchemaUnavailable.
func LoadSchema(path string) (Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}
	var names []string
	if _, err := decodeJSON(raw, &names); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaUnavailable, path, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrSchemaUnavailable, path)
	}
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %s: blank feature name at position %d", ErrSchemaUnavailable, path, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate feature %q", ErrSchemaUnavailable, path, name)
		}
		seen[name] = struct{}{}
	}
	return Schema(names), nil
}

// LoadCatalog reads the choice catalog. It never fails: a missing or
// unreadable file yields EmptyCatalog, and the second return value reports
// why the file was not used.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return EmptyCatalog(), err
	}
	var parsed map[string][]string
	if _, err := decodeJSON(raw, &parsed); err != nil {
		return EmptyCatalog(), err
	}

	catalog := EmptyCatalog()
	for field, values := range parsed {
		catalog[field] = dedupe(values)
	}
	return catalog, nil
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
