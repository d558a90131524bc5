package mysql

import (
	"slices"

	"schemasync/internal/core"
	"schemasync/internal/provider"
)

// baseType returns the information_schema data_type MySQL reports for t, and
// whether size and scale are significant.
func baseType(t core.ColumnType) (name string, checkSize, checkScale bool) {
	switch t := t.(type) {
	case core.Varchar:
		return "varchar", true, false
	case core.Text:
		if t.Binary {
			return "blob", false, false
		}
		return "text", false, false
	case core.Integer:
		if t.Big {
			return "bigint", false, false
		}
		return "int", false, false
	case core.Decimal:
		switch t.DataType() {
		case core.DataTypeFloat:
			return "float", false, false
		case core.DataTypeDouble:
			return "double", false, false
		default:
			return "decimal", true, true
		}
	case core.DateTime:
		return "datetime", false, false
	case core.Enum:
		return "enum", false, false
	case core.Boolean:
		return "tinyint", false, false
	default:
		return "", false, false
	}
}

// ColumnMatches implements provider.Matcher. nvarchar is stored as varchar,
// ntext as text and boolean as tinyint.
func (p *Provider) ColumnMatches(observed *core.ObservedColumn, desired *core.ColumnDefinition, typeOnly bool) bool {
	name, checkSize, checkScale := baseType(desired.Type)
	if name == "" || observed.DataType != name {
		return false
	}
	if checkSize && observed.Size != sizeOf(desired.Type) {
		return false
	}
	if checkScale && observed.Scale != desired.Type.(core.Decimal).Scale {
		return false
	}
	if e, ok := desired.Type.(core.Enum); ok {
		if !slices.Equal(core.ParseRawType(observed.RawType).Values, e.Values) {
			return false
		}
	}
	if typeOnly {
		return true
	}

	return observed.Required == desired.IsRequired() &&
		observed.AutoIncrement == desired.AutoIncrement() &&
		provider.DefaultsEqual(defaultLiteral(desired), observed.DefaultValue, provider.IsNumeric(desired.Type) || isBoolean(desired.Type))
}

// IndexMatches implements provider.Matcher.
func (p *Provider) IndexMatches(observed *core.ObservedIndex, desired *core.IndexDefinition) bool {
	return provider.IndexMatches(observed, desired)
}

func sizeOf(t core.ColumnType) int {
	switch t := t.(type) {
	case core.Varchar:
		return t.Size
	case core.Decimal:
		return t.Size
	default:
		return 0
	}
}

func isBoolean(t core.ColumnType) bool {
	_, ok := t.(core.Boolean)
	return ok
}

// defaultLiteral returns the desired default as MySQL stores it.
func defaultLiteral(c *core.ColumnDefinition) *string {
	if c.DefaultValue == nil {
		return nil
	}
	v := *c.DefaultValue
	if isBoolean(c.Type) {
		if v == "true" {
			v = "1"
		} else {
			v = "0"
		}
	}
	return &v
}
