package core

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// parenRe matches a parenthesized type argument list, e.g. "(10,2)" in "DECIMAL(10,2)".
var parenRe = regexp.MustCompile(`\(([^)]*)\)`)

// wsRe collapses runs of whitespace into a single space after the
// parenthesized parts have been removed.
var wsRe = regexp.MustCompile(`\s+`)

var modifierRe = regexp.MustCompile(`(?i)\b(UNSIGNED|SIGNED|ZEROFILL)\b`)

// dialectRawTypes maps each supported dialect to the base type keywords its
// emitter produces and its metadata queries report (upper-cased).
var dialectRawTypes = map[Dialect]map[string]bool{
	DialectMySQL:      mysqlTypes,
	DialectPostgreSQL: postgresqlTypes,
	DialectSQLite:     sqliteTypes,
}

var mysqlTypes = toSet(
	"TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT",
	"FLOAT", "DOUBLE", "DOUBLE PRECISION", "DECIMAL", "NUMERIC",
	"BIT", "BOOL", "BOOLEAN",
	"DATE", "DATETIME", "TIMESTAMP", "TIME", "YEAR",
	"CHAR", "VARCHAR", "BINARY", "VARBINARY",
	"TINYBLOB", "BLOB", "MEDIUMBLOB", "LONGBLOB",
	"TINYTEXT", "TEXT", "MEDIUMTEXT", "LONGTEXT",
	"ENUM", "SET", "JSON",
)

var postgresqlTypes = toSet(
	"SMALLINT", "INTEGER", "INT", "BIGINT",
	"DECIMAL", "NUMERIC", "REAL", "DOUBLE PRECISION",
	"CHARACTER", "CHAR", "CHARACTER VARYING", "VARCHAR", "TEXT",
	"BYTEA",
	"TIMESTAMP", "TIMESTAMP WITHOUT TIME ZONE", "TIMESTAMP WITH TIME ZONE", "DATE",
	"BOOLEAN", "BOOL",
	"JSON", "JSONB", "UUID",
)

var sqliteTypes = toSet(
	"TEXT", "INTEGER", "INT", "REAL", "BLOB", "NUMERIC",
	"BOOLEAN", "BOOL",
	"DATE", "DATETIME", "TIMESTAMP",
	"VARCHAR", "CHAR", "CHARACTER",
	"NCHAR", "NVARCHAR", "CLOB",
	"FLOAT", "DOUBLE", "DOUBLE PRECISION", "DECIMAL",
	"TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT",
)

// RawType is a database type string split into its parts.
type RawType struct {
	// Base is the lower-cased type keyword without arguments or modifiers.
	Base   string
	Size   int
	Scale  int
	Values []string
}

// ParseRawType splits a raw SQL type such as "varchar(50)", "DECIMAL(10, 2)" or
// "enum('a','b')" into base keyword, size, scale and enumerated values.
func ParseRawType(raw string) RawType {
	rt := RawType{Base: strings.ToLower(normalizeRawTypeBase(raw))}
	m := parenRe.FindStringSubmatch(raw)
	if m == nil {
		return rt
	}
	if rt.Base == "enum" || rt.Base == "set" {
		rt.Values = splitQuotedList(m[1])
		return rt
	}
	args := strings.Split(m[1], ",")
	if n, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil {
		rt.Size = n
	}
	if len(args) > 1 {
		if n, err := strconv.Atoi(strings.TrimSpace(args[1])); err == nil {
			rt.Scale = n
		}
	}
	return rt
}

// ValidateRawType checks whether rawType is a valid SQL type for the given
// dialect. A descriptive error is returned when the type is unrecognized.
func ValidateRawType(rawType string, dialect Dialect) error {
	if strings.TrimSpace(rawType) == "" {
		return fmt.Errorf("raw type is empty")
	}
	types, ok := dialectRawTypes[dialect]
	if !ok {
		return fmt.Errorf("unknown dialect %q", dialect)
	}
	base := normalizeRawTypeBase(rawType)
	if base == "" {
		return fmt.Errorf("raw type %q could not be normalized to a base type", rawType)
	}
	if types[base] {
		return nil
	}
	return fmt.Errorf(
		"raw type %q (resolved base: %q) is not a valid type for dialect %q; valid types: %s",
		rawType, base, string(dialect), validTypesList(dialect),
	)
}

// toSet builds a lookup set from a variadic list of upper-cased type names.
func toSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[strings.ToUpper(n)] = true
	}
	return m
}

// normalizeRawTypeBase extracts the base type name from a raw SQL type
// string. It removes parenthesized portions, sign modifiers, collapses
// whitespace and uppercases the result.
//
//	"varchar(255)"                -> "VARCHAR"
//	"TIMESTAMP(6) WITH TIME ZONE" -> "TIMESTAMP WITH TIME ZONE"
//	"enum('a','b','c')"           -> "ENUM"
//	"INT UNSIGNED"                -> "INT"
func normalizeRawTypeBase(rawType string) string {
	base := parenRe.ReplaceAllString(rawType, "")
	base = modifierRe.ReplaceAllString(base, "")
	base = wsRe.ReplaceAllString(strings.TrimSpace(base), " ")
	return strings.ToUpper(base)
}

// splitQuotedList splits "'a','b,c'" into ["a", "b,c"], honoring doubled quotes.
func splitQuotedList(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\'' && inQuote && i+1 < len(s) && s[i+1] == '\'':
			cur.WriteByte('\'')
			i++
		case ch == '\'':
			inQuote = !inQuote
		case ch == ',' && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		case inQuote:
			cur.WriteByte(ch)
		}
	}
	if cur.Len() > 0 || len(out) > 0 {
		out = append(out, cur.String())
	}
	return out
}

// validTypesList returns a sorted, comma-separated string of all valid
// base types for a dialect. Used only for error messages.
func validTypesList(d Dialect) string {
	types := dialectRawTypes[d]
	names := make([]string, 0, len(types))
	for t := range types {
		names = append(names, t)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
