package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// decode reads a document into a generic tree of map[string]any, []any and scalars.
// JSON numbers are kept as json.Number so integers are not silently widened to floats.
func decode(r io.Reader, format Format) (map[string]any, error) {
	var doc map[string]any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
		if dec.More() {
			return nil, errors.New("unexpected data after top-level object")
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("empty document")
			}
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if doc == nil {
		return nil, errors.New("document is not an object")
	}
	return normalize(doc).(map[string]any), nil
}

// normalize flattens decoder-specific container types: TOML arrays of tables
// decode as []map[string]any and YAML may produce map[any]any for odd keys.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}
