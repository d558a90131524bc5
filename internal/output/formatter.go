// Package output renders planned migrations for people and tools. It provides
// three formats: SQL, JSON and a compact summary.
package output

import (
	"fmt"
	"io"
	"strings"

	"schemasync/internal/migration"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatSQL     Format = "sql"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
)

// Formatter renders a set of migrations, one per reconciled schema.
type Formatter interface {
	FormatMigrations([]*migration.Migration) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to SQL format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatSQL:
		return sqlFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'sql', 'json', or 'summary'", name)
	}
}

// Write formats migrations with f and writes the result to w.
func Write(w io.Writer, f Formatter, migrations []*migration.Migration) error {
	content, err := f.FormatMigrations(migrations)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

func normalizeStatements(stmts []string) []string {
	out := []string{}
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if !strings.HasSuffix(stmt, ";") {
			stmt += ";"
		}
		out = append(out, stmt)
	}
	return out
}
