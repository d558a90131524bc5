package sqlite

import (
	"schemasync/internal/core"
	"schemasync/internal/provider"
)

// declaredType returns the base type keyword the emitter declares for t and the
// size and scale that must match. SQLite keeps declared types verbatim.
func declaredType(c *core.ColumnDefinition) (name string, size, scale int, ok bool) {
	switch t := c.Type.(type) {
	case core.Varchar:
		return "varchar", t.Size, 0, true
	case core.Text:
		if t.Binary {
			return "blob", 0, 0, true
		}
		return "text", 0, 0, true
	case core.Integer:
		if t.Big && !(t.AutoIncrement && c.PrimaryKey) {
			return "bigint", 0, 0, true
		}
		return "integer", 0, 0, true
	case core.Decimal:
		switch t.DataType() {
		case core.DataTypeFloat:
			return "float", 0, 0, true
		case core.DataTypeDouble:
			return "double", 0, 0, true
		default:
			return "decimal", t.Size, t.Scale, true
		}
	case core.DateTime:
		return "datetime", 0, 0, true
	case core.Enum:
		return "varchar", core.EnumMaxLength(t), 0, true
	case core.Boolean:
		return "boolean", 0, 0, true
	default:
		return "", 0, 0, false
	}
}

// ColumnMatches implements provider.Matcher.
func (p *Provider) ColumnMatches(observed *core.ObservedColumn, desired *core.ColumnDefinition, typeOnly bool) bool {
	name, size, scale, ok := declaredType(desired)
	if !ok || observed.DataType != name || observed.Size != size || observed.Scale != scale {
		return false
	}
	if typeOnly {
		return true
	}

	numeric := provider.IsNumeric(desired.Type)
	want := desired.DefaultValue
	if _, isBool := desired.Type.(core.Boolean); isBool && want != nil {
		v := "0"
		if *want == "true" {
			v = "1"
		}
		want, numeric = &v, true
	}

	return observed.Required == desired.IsRequired() &&
		observed.AutoIncrement == desired.AutoIncrement() &&
		provider.DefaultsEqual(want, observed.DefaultValue, numeric)
}

// IndexMatches implements provider.Matcher.
func (p *Provider) IndexMatches(observed *core.ObservedIndex, desired *core.IndexDefinition) bool {
	return provider.IndexMatches(observed, desired)
}
