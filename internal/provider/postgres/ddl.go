package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"schemasync/internal/core"
)

// QuoteIdentifier quotes a PostgreSQL identifier with double quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(name), `"`, `""`) + `"`
}

// QuoteString quotes a string literal for standard_conforming_strings.
func QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// CreateTable implements provider.Emitter.
func (p *Provider) CreateTable(e *core.EntityDefinition) (string, error) {
	cols := e.StorageColumns()
	if len(cols) == 0 {
		return "", fmt.Errorf("table %q has no storage columns", e.FullName)
	}

	lines := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		def, err := columnDefinition(c)
		if err != nil {
			return "", err
		}
		lines = append(lines, def)
	}
	if len(e.PrimaryKey) > 0 {
		lines = append(lines, "PRIMARY KEY "+formatColumns(e.PrimaryKeyNames()))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s);", p.table(e.FullName), strings.Join(lines, ", ")), nil
}

// CreateColumn implements provider.Emitter.
func (p *Provider) CreateColumn(table string, c *core.ColumnDefinition) (string, error) {
	if err := rejectPrimaryKey(c); err != nil {
		return "", err
	}
	def, err := columnDefinition(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", p.table(table), def), nil
}

// AlterColumn implements provider.Emitter. PostgreSQL changes type, nullability
// and default with separate actions of one ALTER TABLE.
func (p *Provider) AlterColumn(table string, c *core.ColumnDefinition) (string, error) {
	if err := rejectPrimaryKey(c); err != nil {
		return "", err
	}
	typ, err := columnType(c.Type)
	if err != nil {
		return "", err
	}

	col := QuoteIdentifier(c.Name)
	actions := []string{fmt.Sprintf("ALTER COLUMN %s TYPE %s USING %s::%s", col, typ, col, typ)}
	if c.IsRequired() {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", col))
	} else {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", col))
	}
	if c.DefaultValue != nil {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", col, formatDefault(c)))
	} else {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", col))
	}
	return fmt.Sprintf("ALTER TABLE %s %s;", p.table(table), strings.Join(actions, ", ")), nil
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

func columnDefinition(c *core.ColumnDefinition) (string, error) {
	typ, err := columnType(c.Type)
	if err != nil {
		return "", err
	}
	parts := []string{QuoteIdentifier(c.Name), typ}
	if c.AutoIncrement() {
		parts = append(parts, "GENERATED BY DEFAULT AS IDENTITY")
	}
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
		typ = "character varying(" + strconv.Itoa(t.Size) + ")"
	case core.Text:
		typ = "text"
		if t.Binary {
			typ = "bytea"
		}
	case core.Integer:
		typ = "integer"
		if t.Big {
			typ = "bigint"
		}
	case core.Decimal:
		switch t.DataType() {
		case core.DataTypeFloat:
			typ = "real"
		case core.DataTypeDouble:
			typ = "double precision"
		default:
			typ = fmt.Sprintf("numeric(%d,%d)", t.Size, t.Scale)
		}
	case core.DateTime:
		typ = "timestamp"
	case core.Enum:
		typ = "character varying(" + strconv.Itoa(core.EnumMaxLength(t)) + ")"
	case core.Boolean:
		typ = "boolean"
	default:
		return "", fmt.Errorf("type %T has no storage representation", t)
	}
	if err := core.ValidateRawType(typ, core.DialectPostgreSQL); err != nil {
		return "", err
	}
	return typ, nil
}

func formatDefault(c *core.ColumnDefinition) string {
	v := *c.DefaultValue
	switch c.Type.(type) {
	case core.Boolean:
		if v == "true" {
			return "true"
		}
		return "false"
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
