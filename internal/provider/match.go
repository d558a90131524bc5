package provider

import (
	"strconv"
	"strings"

	"schemasync/internal/core"
)

// SameColumns reports whether two ordered column lists name the same columns.
func SameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IndexMatches is the index comparison shared by every dialect: same uniqueness
// and the same physical columns in the same order.
func IndexMatches(observed *core.ObservedIndex, desired *core.IndexDefinition) bool {
	return observed.Unique == desired.Unique && SameColumns(observed.Columns, desired.PhysicalColumns())
}

// DefaultsEqual compares a desired default literal with an observed one. Numeric
// defaults are compared by value so that "0" matches "0.00".
func DefaultsEqual(desired, observed *string, numeric bool) bool {
	if desired == nil || observed == nil {
		return desired == nil && observed == nil
	}
	if numeric {
		d, err1 := strconv.ParseFloat(*desired, 64)
		o, err2 := strconv.ParseFloat(*observed, 64)
		if err1 == nil && err2 == nil {
			return d == o
		}
	}
	return *desired == *observed
}

// Unquote strips one level of single quotes from a default expression and
// collapses doubled quotes inside it.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// IsNumeric reports whether defaults of t are compared by value.
func IsNumeric(t core.ColumnType) bool {
	switch t.(type) {
	case core.Integer, core.Decimal:
		return true
	default:
		return false
	}
}
