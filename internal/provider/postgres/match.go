package postgres

import (
	"schemasync/internal/core"
	"schemasync/internal/provider"
)

// storage describes how a column type is stored: the normalized data type
// information_schema reports and the size and scale that must match.
type storage struct {
	name       string
	size       int
	scale      int
	checkSize  bool
	checkScale bool
}

func storageOf(t core.ColumnType) (storage, bool) {
	switch t := t.(type) {
	case core.Varchar:
		return storage{name: "varchar", size: t.Size, checkSize: true}, true
	case core.Text:
		if t.Binary {
			return storage{name: "bytea"}, true
		}
		return storage{name: "text"}, true
	case core.Integer:
		if t.Big {
			return storage{name: "bigint"}, true
		}
		return storage{name: "integer"}, true
	case core.Decimal:
		switch t.DataType() {
		case core.DataTypeFloat:
			return storage{name: "real"}, true
		case core.DataTypeDouble:
			return storage{name: "double precision"}, true
		default:
			return storage{name: "numeric", size: t.Size, scale: t.Scale, checkSize: true, checkScale: true}, true
		}
	case core.DateTime:
		return storage{name: "timestamp"}, true
	case core.Enum:
		// Enums are stored as varchar wide enough for the longest value.
		return storage{name: "varchar", size: core.EnumMaxLength(t), checkSize: true}, true
	case core.Boolean:
		return storage{name: "boolean"}, true
	default:
		return storage{}, false
	}
}

// ColumnMatches implements provider.Matcher.
func (p *Provider) ColumnMatches(observed *core.ObservedColumn, desired *core.ColumnDefinition, typeOnly bool) bool {
	s, ok := storageOf(desired.Type)
	if !ok || observed.DataType != s.name {
		return false
	}
	if s.checkSize && observed.Size != s.size {
		return false
	}
	if s.checkScale && observed.Scale != s.scale {
		return false
	}
	if typeOnly {
		return true
	}

	return observed.Required == desired.IsRequired() &&
		observed.AutoIncrement == desired.AutoIncrement() &&
		provider.DefaultsEqual(desired.DefaultValue, observed.DefaultValue, provider.IsNumeric(desired.Type))
}

// IndexMatches implements provider.Matcher.
func (p *Provider) IndexMatches(observed *core.ObservedIndex, desired *core.IndexDefinition) bool {
	return provider.IndexMatches(observed, desired)
}
