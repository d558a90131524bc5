package sqlite

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"schemasync/internal/core"
)

// QuoteIdentifier quotes a SQLite identifier with double quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(name), `"`, `""`) + `"`
}

// QuoteString quotes a SQLite string literal.
func QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// CreateTable implements provider.Emitter. A lone auto-increment key is declared
// inline as INTEGER PRIMARY KEY AUTOINCREMENT.
func (p *Provider) CreateTable(e *core.EntityDefinition) (string, error) {
	cols := e.StorageColumns()
	if len(cols) == 0 {
		return "", fmt.Errorf("table %q has no storage columns", e.FullName)
	}

	inlineKey := len(e.PrimaryKey) == 1 && e.PrimaryKey[0].AutoIncrement()
	lines := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		def, err := columnDefinition(c, inlineKey && c == e.PrimaryKey[0])
		if err != nil {
			return "", err
		}
		lines = append(lines, def)
	}
	if len(e.PrimaryKey) > 0 && !inlineKey {
		lines = append(lines, "PRIMARY KEY "+formatColumns(e.PrimaryKeyNames()))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s);", p.table(e.FullName), strings.Join(lines, ", ")), nil
}

// CreateColumn implements provider.Emitter.
func (p *Provider) CreateColumn(table string, c *core.ColumnDefinition) (string, error) {
	if err := rejectPrimaryKey(c); err != nil {
		return "", err
	}
	def, err := columnDefinition(c, false)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", p.table(table), def), nil
}

// AlterColumn implements provider.Emitter. SQLite has no ALTER COLUMN; changing a
// column would mean rebuilding the table, which is never done implicitly.
func (p *Provider) AlterColumn(table string, c *core.ColumnDefinition) (string, error) {
	if err := rejectPrimaryKey(c); err != nil {
		return "", err
	}
	return "", &core.ConfigError{
		Path:    c.Path,
		Message: fmt.Sprintf("column %s.%s cannot be changed in place on sqlite; edit the schema to match the table or rebuild it", p.PhysicalName(table), c.Name),
		Err:     errors.ErrUnsupported,
	}
}

// CreateIndex implements provider.Emitter.
func (p *Provider) CreateIndex(table string, idx *core.IndexDefinition) (string, error) {
	cols := idx.PhysicalColumns()
	if len(cols) == 0 {
		return "", fmt.Errorf("index %q has no columns", idx.Name)
	}
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s %s;", kind, p.index(idx.Name), p.table(table), formatColumns(cols)), nil
}

// DropIndex implements provider.Emitter.
func (p *Provider) DropIndex(_ string, idx *core.IndexDefinition) (string, error) {
	return fmt.Sprintf("DROP INDEX %s;", p.index(idx.Name)), nil
}

func (p *Provider) table(name string) string {
	return QuoteIdentifier(p.PhysicalName(name))
}

func (p *Provider) index(name string) string {
	return QuoteIdentifier(p.Prefix() + name)
}

func rejectPrimaryKey(c *core.ColumnDefinition) error {
	if c.PrimaryKey {
		return &core.ConfigError{
			Path:    c.Path,
			Message: fmt.Sprintf("primary-key column %q can only be created with its table", c.Name),
		}
	}
	return nil
}

func columnDefinition(c *core.ColumnDefinition, inlineKey bool) (string, error) {
	typ, err := columnType(c.Type)
	if err != nil {
		return "", err
	}
	if inlineKey {
		return QuoteIdentifier(c.Name) + " integer PRIMARY KEY AUTOINCREMENT NOT NULL", nil
	}
	parts := []string{QuoteIdentifier(c.Name), typ}
	if c.IsRequired() {
		parts = append(parts, "NOT NULL")
	}
	if c.DefaultValue != nil {
		parts = append(parts, "DEFAULT", formatDefault(c))
	}
	return strings.Join(parts, " "), nil
}

func columnType(t core.ColumnType) (string, error) {
	var typ string
	switch t := t.(type) {
	case core.Varchar:
		typ = "varchar(" + strconv.Itoa(t.Size) + ")"
	case core.Text:
		typ = "text"
		if t.Binary {
			typ = "blob"
		}
	case core.Integer:
		typ = "integer"
		if t.Big {
			typ = "bigint"
		}
	case core.Decimal:
		switch t.DataType() {
		case core.DataTypeFloat:
			typ = "float"
		case core.DataTypeDouble:
			typ = "double"
		default:
			typ = fmt.Sprintf("decimal(%d,%d)", t.Size, t.Scale)
		}
	case core.DateTime:
		typ = "datetime"
	case core.Enum:
		typ = "varchar(" + strconv.Itoa(core.EnumMaxLength(t)) + ")"
	case core.Boolean:
		typ = "boolean"
	default:
		return "", fmt.Errorf("type %T has no storage representation", t)
	}
	if err := core.ValidateRawType(typ, core.DialectSQLite); err != nil {
		return "", err
	}
	return typ, nil
}

func formatDefault(c *core.ColumnDefinition) string {
	v := *c.DefaultValue
	switch c.Type.(type) {
	case core.Boolean:
		if v == "true" {
			return "1"
		}
		return "0"
	case core.Integer, core.Decimal:
		return v
	default:
		return QuoteString(v)
	}
}

func formatColumns(cols []string) string {
	quoted := make([]string, 0, len(cols))
	for _, c := range cols {
		quoted = append(quoted, QuoteIdentifier(c))
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
