// Package core contains the in-memory model of a declarative schema: entities, their
// typed columns and indexes, and the relation artifacts synthesized for them.
// It also holds the shapes of metadata observed in a live database and the error
// kinds shared by every stage of reconciliation.
package core

import (
	"fmt"
	"strings"
)

// Dialect identifies a supported SQL dialect.
type Dialect string

const (
	DialectMySQL      Dialect = "mysql"
	DialectPostgreSQL Dialect = "postgresql"
	DialectSQLite     Dialect = "sqlite"
)

// DefaultBaseClass is the base-class hint used when a schema does not declare one.
const DefaultBaseClass = "BaseObject"

// SupportedDialects returns a slice of all supported dialect values.
func SupportedDialects() []Dialect {
	return []Dialect{
		DialectMySQL,
		DialectPostgreSQL,
		DialectSQLite,
	}
}

var dialectAliases = map[string]Dialect{
	"mysql":      DialectMySQL,
	"mariadb":    DialectMySQL,
	"postgresql": DialectPostgreSQL,
	"postgres":   DialectPostgreSQL,
	"pgsql":      DialectPostgreSQL,
	"sqlite":     DialectSQLite,
	"sqlite3":    DialectSQLite,
}

// ParseDialect maps a configured dialect name (case-insensitive, common aliases
// accepted) to a Dialect.
func ParseDialect(s string) (Dialect, bool) {
	d, ok := dialectAliases[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

// SchemaDefinition is a compiled schema: identity, table prefix and the ordered
// set of entities it declares.
type SchemaDefinition struct {
	Name        string
	Namespace   string
	TablePrefix string
	BaseClass   string

	// Source is the location the schema was read from; it is used in error messages.
	Source string

	Entities []*EntityDefinition

	byName   map[string]*EntityDefinition
	resolved bool
}

// NewSchemaDefinition returns an empty schema with the default base class.
func NewSchemaDefinition(name, namespace string) *SchemaDefinition {
	return &SchemaDefinition{
		Name:      name,
		Namespace: namespace,
		BaseClass: DefaultBaseClass,
		byName:    make(map[string]*EntityDefinition),
	}
}

// AddEntity appends an entity, keeping declaration order. Table names are unique
// within a schema.
func (s *SchemaDefinition) AddEntity(e *EntityDefinition) error {
	if s.resolved {
		return fmt.Errorf("schema %q is resolved and cannot be modified", s.Name)
	}
	key := strings.ToLower(e.Name)
	if _, ok := s.byName[key]; ok {
		return fmt.Errorf("duplicate table name %q", e.Name)
	}
	e.Schema = s
	s.byName[key] = e
	s.Entities = append(s.Entities, e)
	return nil
}

// Entity looks for an entity by table name.
func (s *SchemaDefinition) Entity(name string) *EntityDefinition {
	return s.byName[strings.ToLower(name)]
}

// IsResolved reports whether references have been resolved and entities prepared.
// A resolved schema is immutable.
func (s *SchemaDefinition) IsResolved() bool { return s.resolved }

// MarkResolved freezes the schema.
func (s *SchemaDefinition) MarkResolved() { s.resolved = true }

// EntityDefinition is a schema-declared table, or a link table synthesized for an
// objectSet relation.
type EntityDefinition struct {
	Name     string
	FullName string

	CodeName  string
	Namespace string
	BaseClass string

	SkipCodeGeneration bool
	SkipSchemaSync     bool
	ReadOnly           bool

	Columns    []*ColumnDefinition
	PrimaryKey []*ColumnDefinition
	Indexes    []*IndexDefinition

	Schema *SchemaDefinition

	// LinkOwner is the objectSet column a synthesized link table belongs to.
	LinkOwner *ColumnDefinition

	// Path locates the entity in its schema source, e.g. "schema.tables[2]".
	Path string

	byColumn map[string]*ColumnDefinition
	byIndex  map[string]*IndexDefinition
	prepared bool
}

// NewEntityDefinition returns an empty entity for the given table name.
func NewEntityDefinition(name string) *EntityDefinition {
	return &EntityDefinition{
		Name:     name,
		CodeName: CamelCase(name),
		byColumn: make(map[string]*ColumnDefinition),
		byIndex:  make(map[string]*IndexDefinition),
	}
}

// AddColumn appends a column in declaration order. Column names are unique per table.
func (e *EntityDefinition) AddColumn(c *ColumnDefinition) error {
	if e.prepared {
		return fmt.Errorf("table %q is prepared and cannot be modified", e.Name)
	}
	key := strings.ToLower(c.Name)
	if _, ok := e.byColumn[key]; ok {
		return fmt.Errorf("duplicate column name %q", c.Name)
	}
	c.Entity = e
	e.byColumn[key] = c
	e.Columns = append(e.Columns, c)
	if c.PrimaryKey {
		e.PrimaryKey = append(e.PrimaryKey, c)
	}
	return nil
}

// Column looks for a column by name.
func (e *EntityDefinition) Column(name string) *ColumnDefinition {
	return e.byColumn[strings.ToLower(name)]
}

// AddIndex appends an index. Index names are unique per table.
func (e *EntityDefinition) AddIndex(idx *IndexDefinition) error {
	if e.prepared {
		return fmt.Errorf("table %q is prepared and cannot be modified", e.Name)
	}
	key := strings.ToLower(idx.Name)
	if _, ok := e.byIndex[key]; ok {
		return fmt.Errorf("duplicate index name %q", idx.Name)
	}
	e.byIndex[key] = idx
	e.Indexes = append(e.Indexes, idx)
	return nil
}

// Index looks for an index by name.
func (e *EntityDefinition) Index(name string) *IndexDefinition {
	return e.byIndex[strings.ToLower(name)]
}

// IsLinkTable reports whether the entity was synthesized for an objectSet column.
func (e *EntityDefinition) IsLinkTable() bool { return e.LinkOwner != nil }

// IsPrepared reports whether Prepare has completed.
func (e *EntityDefinition) IsPrepared() bool { return e.prepared }

// Prepare finalizes the entity exactly once. Entities can be reached through several
// reference paths, so later calls are no-ops. fn runs before the entity is frozen and
// may still add columns and indexes; if it fails the entity stays unprepared.
func (e *EntityDefinition) Prepare(fn func(*EntityDefinition) error) error {
	if e.prepared {
		return nil
	}
	if e.FullName == "" {
		prefix := ""
		if e.Schema != nil {
			prefix = e.Schema.TablePrefix
		}
		e.FullName = prefix + e.Name
	}
	if fn != nil {
		if err := fn(e); err != nil {
			return err
		}
	}
	e.prepared = true
	return nil
}

// PrimaryKeyNames returns the names of the primary-key columns in order.
func (e *EntityDefinition) PrimaryKeyNames() []string {
	names := make([]string, len(e.PrimaryKey))
	for i, c := range e.PrimaryKey {
		names[i] = c.Name
	}
	return names
}

// StorageColumns returns the physical columns of the table in declaration order:
// scalar columns as declared and, in place of each object column, its child columns.
// objectSet columns live in their link table and contribute nothing.
func (e *EntityDefinition) StorageColumns() []*ColumnDefinition {
	out := make([]*ColumnDefinition, 0, len(e.Columns))
	for _, c := range e.Columns {
		switch c.Type.(type) {
		case Object:
			out = append(out, c.ChildColumns...)
		case ObjectSet:
		default:
			out = append(out, c)
		}
	}
	return out
}

// String returns a one-line summary of the entity.
func (e *EntityDefinition) String() string {
	return fmt.Sprintf("Table: %s (%d cols, %d pk, %d indexes)",
		e.FullName, len(e.Columns), len(e.PrimaryKey), len(e.Indexes))
}

// ColumnDefinition is a declared column, or a column synthesized for a relation.
type ColumnDefinition struct {
	Name     string
	CodeName string
	Type     ColumnType

	// DefaultValue is the canonical literal: decimal digits for numbers, "true" or
	// "false" for booleans, and the raw text otherwise.
	DefaultValue *string

	Required   bool
	PrimaryKey bool
	LazyLoad   bool

	// ObjectStorageColumns are custom names for synthesized columns, consumed
	// parents first (objectSet only), then children.
	ObjectStorageColumns []string

	// Filled in by the resolver for relation columns.
	Target        *EntityDefinition
	ParentColumns []*ColumnDefinition
	ChildColumns  []*ColumnDefinition
	LinkTable     *EntityDefinition

	Entity *EntityDefinition
	Path   string
}

// DataType returns the semantic type tag of the column.
func (c *ColumnDefinition) DataType() DataType {
	if c.Type == nil {
		return ""
	}
	return c.Type.DataType()
}

// IsRequired reports whether the column is stored NOT NULL. Primary-key columns
// always are.
func (c *ColumnDefinition) IsRequired() bool { return c.Required || c.PrimaryKey }

// AutoIncrement reports whether the column is an auto-incrementing integer.
func (c *ColumnDefinition) AutoIncrement() bool {
	t, ok := c.Type.(Integer)
	return ok && t.AutoIncrement
}

// TargetName returns the declared objectType of a relation column, or "".
func (c *ColumnDefinition) TargetName() string {
	switch t := c.Type.(type) {
	case Object:
		return t.Target
	case ObjectSet:
		return t.Target
	default:
		return ""
	}
}

// IsRelation reports whether the column is an object or objectSet column.
func (c *ColumnDefinition) IsRelation() bool { return IsRelation(c.Type) }

// IndexDefinition is a declared or synthesized index.
type IndexDefinition struct {
	Name   string
	Unique bool

	// Columns are the declared column names; for relation columns these are the
	// relation names, not storage names.
	Columns []string

	// StorageColumns are the physical column names after relation expansion.
	StorageColumns []string

	Synthesized bool
	Path        string
}

// PhysicalColumns returns the column list to index in the database.
func (i *IndexDefinition) PhysicalColumns() []string {
	if len(i.StorageColumns) > 0 {
		return i.StorageColumns
	}
	return i.Columns
}
