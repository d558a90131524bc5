// Package parser reads declarative schema sources (JSON, TOML or YAML) and
// converts them into unresolved core.SchemaDefinition trees. No database I/O
// happens here.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"schemasync/internal/core"
)

// Format is the structured-data syntax of a schema source.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", &UnsupportedFormatError{Path: path}
	}
}

// ParseFile reads and parses the schema at path.
func ParseFile(path string) (*core.SchemaDefinition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ConfigError{Source: path, Message: "unable to read file", Err: err}
	}
	defer f.Close()

	return Parse(f, format, path)
}

// Parse reads a schema in the given format. source names the input in errors.
func Parse(r io.Reader, format Format, source string) (*core.SchemaDefinition, error) {
	doc, err := decode(r, format)
	if err != nil {
		return nil, &core.ConfigError{Source: source, Message: fmt.Sprintf("invalid %s", strings.ToUpper(string(format))), Err: err}
	}
	s, err := newConverter(source).convert(doc)
	if err != nil {
		return nil, core.WithSource(err, source)
	}
	return s, nil
}

// UnsupportedFormatError is returned for schema files with an unknown extension.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported file format: " + e.Path
}
