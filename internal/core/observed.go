package core

import "strings"

// ObservedColumn is a column as currently read from the live database.
type ObservedColumn struct {
	Name string

	// DataType is the lower-cased base type name, e.g. "varchar" or "int".
	DataType string
	// RawType is the full type as reported by the database, e.g. "enum('a','b')".
	RawType string

	DefaultValue  *string
	Required      bool
	Size          int
	Scale         int
	AutoIncrement bool
	PrimaryKey    bool
}

// ObservedIndex is a non-primary index as currently read from the live database.
type ObservedIndex struct {
	Name    string
	Unique  bool
	Columns []string
}

// ObservedTable groups the columns and indexes of one live table. Lookups are
// case-insensitive.
type ObservedTable struct {
	Name    string
	Columns map[string]*ObservedColumn
	Indexes map[string]*ObservedIndex
}

// NewObservedTable returns an empty table snapshot.
func NewObservedTable(name string) *ObservedTable {
	return &ObservedTable{
		Name:    name,
		Columns: make(map[string]*ObservedColumn),
		Indexes: make(map[string]*ObservedIndex),
	}
}

// AddColumn records a column.
func (t *ObservedTable) AddColumn(c *ObservedColumn) {
	t.Columns[strings.ToLower(c.Name)] = c
}

// AddIndex records an index.
func (t *ObservedTable) AddIndex(i *ObservedIndex) {
	t.Indexes[strings.ToLower(i.Name)] = i
}

// Column looks for a column by name.
func (t *ObservedTable) Column(name string) *ObservedColumn {
	return t.Columns[strings.ToLower(name)]
}

// Index looks for an index by name.
func (t *ObservedTable) Index(name string) *ObservedIndex {
	return t.Indexes[strings.ToLower(name)]
}
