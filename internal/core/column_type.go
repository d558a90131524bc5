package core

import "strings"

// DataType is the semantic type tag of a column as written in a schema source.
type DataType string

const (
	DataTypeVarchar   DataType = "varchar"
	DataTypeNVarchar  DataType = "nvarchar"
	DataTypeText      DataType = "text"
	DataTypeNText     DataType = "ntext"
	DataTypeBlob      DataType = "blob"
	DataTypeInt       DataType = "int"
	DataTypeBigInt    DataType = "bigint"
	DataTypeDecimal   DataType = "decimal"
	DataTypeFloat     DataType = "float"
	DataTypeDouble    DataType = "double"
	DataTypeDateTime  DataType = "datetime"
	DataTypeEnum      DataType = "enum"
	DataTypeBoolean   DataType = "boolean"
	DataTypeObject    DataType = "object"
	DataTypeObjectSet DataType = "objectSet"
)

var dataTypes = []DataType{
	DataTypeVarchar, DataTypeNVarchar,
	DataTypeText, DataTypeNText, DataTypeBlob,
	DataTypeInt, DataTypeBigInt,
	DataTypeDecimal, DataTypeFloat, DataTypeDouble,
	DataTypeDateTime, DataTypeEnum, DataTypeBoolean,
	DataTypeObject, DataTypeObjectSet,
}

// ParseDataType maps a type string from a schema source to a DataType.
// Matching is case-insensitive; unknown strings return false.
func ParseDataType(s string) (DataType, bool) {
	for _, dt := range dataTypes {
		if strings.EqualFold(s, string(dt)) {
			return dt, true
		}
	}
	return "", false
}

// ColumnType is the decoded, type-specific part of a column definition.
// The set of implementations is closed.
type ColumnType interface {
	DataType() DataType
	columnType()
}

// Varchar is a bounded string column.
type Varchar struct {
	Unicode bool
	Size    int
}

// Text is an unbounded text or binary column.
type Text struct {
	Unicode bool
	Binary  bool
}

// Integer is an int or bigint column.
type Integer struct {
	Big           bool
	AutoIncrement bool
}

// Decimal is a decimal, float or double column.
type Decimal struct {
	Kind  DataType
	Size  int
	Scale int
}

// DateTime is a timestamp column.
type DateTime struct{}

// Enum is a string column restricted to a fixed value set.
type Enum struct {
	Values []string
}

// Boolean is a boolean column.
type Boolean struct{}

// Object is a single reference to another entity, stored as child columns on the
// owning table.
type Object struct {
	Target string
}

// ObjectSet is a multi-valued reference to another entity, stored in a link table.
type ObjectSet struct {
	Target       string
	StorageTable string
}

func (t Varchar) DataType() DataType {
	if t.Unicode {
		return DataTypeNVarchar
	}
	return DataTypeVarchar
}

func (t Text) DataType() DataType {
	switch {
	case t.Binary:
		return DataTypeBlob
	case t.Unicode:
		return DataTypeNText
	default:
		return DataTypeText
	}
}

func (t Integer) DataType() DataType {
	if t.Big {
		return DataTypeBigInt
	}
	return DataTypeInt
}

func (t Decimal) DataType() DataType {
	if t.Kind == "" {
		return DataTypeDecimal
	}
	return t.Kind
}

func (DateTime) DataType() DataType  { return DataTypeDateTime }
func (Enum) DataType() DataType      { return DataTypeEnum }
func (Boolean) DataType() DataType   { return DataTypeBoolean }
func (Object) DataType() DataType    { return DataTypeObject }
func (ObjectSet) DataType() DataType { return DataTypeObjectSet }

func (Varchar) columnType()   {}
func (Text) columnType()      {}
func (Integer) columnType()   {}
func (Decimal) columnType()   {}
func (DateTime) columnType()  {}
func (Enum) columnType()      {}
func (Boolean) columnType()   {}
func (Object) columnType()    {}
func (ObjectSet) columnType() {}

// PrimaryKeyEligible reports whether a column of type t may be part of a primary key.
// Only bounded strings and integers qualify.
func PrimaryKeyEligible(t ColumnType) bool {
	switch t.(type) {
	case Varchar, Integer:
		return true
	default:
		return false
	}
}

// IsRelation reports whether t is an object or objectSet type.
func IsRelation(t ColumnType) bool {
	switch t.(type) {
	case Object, ObjectSet:
		return true
	default:
		return false
	}
}

// StorageType returns the type used for a column synthesized to hold a reference to
// a key column of type t. Auto-increment is a property of the referenced key only.
func StorageType(t ColumnType) ColumnType {
	if it, ok := t.(Integer); ok {
		it.AutoIncrement = false
		return it
	}
	return t
}

// EnumMaxLength returns the length of the longest value of an enum.
func EnumMaxLength(e Enum) int {
	n := 0
	for _, v := range e.Values {
		if len(v) > n {
			n = len(v)
		}
	}
	return n
}
