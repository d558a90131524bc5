package mysql

import (
	"fmt"
	"strconv"
	"strings"

	"schemasync/internal/core"
)

// QuoteIdentifier quotes a MySQL identifier with backticks.
func QuoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "`", "``")
	return "`" + name + "`"
}

// QuoteString quotes a MySQL string literal.
func QuoteString(value string) string {
	var b strings.Builder
	b.Grow(len(value) + len(value)/10 + 2)

	b.WriteByte('\'')
	for _, char := range value {
		switch char {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		case '\x00':
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\x1A':
			b.WriteString(`\Z`)
		default:
			b.WriteRune(char)
		}
	}
	b.WriteByte('\'')
	return b.String()
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

	return fmt.Sprintf("CREATE TABLE %s (%s) ENGINE=InnoDB;", p.table(e.FullName), strings.Join(lines, ", ")), nil
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

// AlterColumn implements provider.Emitter.
func (p *Provider) AlterColumn(table string, c *core.ColumnDefinition) (string, error) {
	if err := rejectPrimaryKey(c); err != nil {
		return "", err
	}
	def, err := columnDefinition(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", p.table(table), def), nil
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
	return fmt.Sprintf("CREATE %s %s ON %s %s;", kind, QuoteIdentifier(idx.Name), p.table(table), formatColumns(cols)), nil
}

// DropIndex implements provider.Emitter.
func (p *Provider) DropIndex(table string, idx *core.IndexDefinition) (string, error) {
	return fmt.Sprintf("DROP INDEX %s ON %s;", QuoteIdentifier(idx.Name), p.table(table)), nil
}

func (p *Provider) table(name string) string {
	return QuoteIdentifier(p.PhysicalName(name))
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
	if err := core.ValidateRawType(typ, core.DialectMySQL); err != nil {
		return "", err
	}
	parts := []string{QuoteIdentifier(c.Name), typ}
	if c.IsRequired() {
		parts = append(parts, "NOT NULL")
	}
	if c.AutoIncrement() {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if c.DefaultValue != nil {
		parts = append(parts, "DEFAULT", formatDefault(c))
	}
	return strings.Join(parts, " "), nil
}

func columnType(t core.ColumnType) (string, error) {
	switch t := t.(type) {
	case core.Varchar:
		return "varchar(" + strconv.Itoa(t.Size) + ")", nil
	case core.Text:
		if t.Binary {
			return "blob", nil
		}
		return "text", nil
	case core.Integer:
		if t.Big {
			return "bigint", nil
		}
		return "int", nil
	case core.Decimal:
		switch t.DataType() {
		case core.DataTypeFloat:
			return "float", nil
		case core.DataTypeDouble:
			return "double", nil
		default:
			return fmt.Sprintf("decimal(%d,%d)", t.Size, t.Scale), nil
		}
	case core.DateTime:
		return "datetime", nil
	case core.Enum:
		values := make([]string, len(t.Values))
		for i, v := range t.Values {
			values[i] = QuoteString(v)
		}
		return "enum(" + strings.Join(values, ",") + ")", nil
	case core.Boolean:
		return "tinyint(1)", nil
	default:
		return "", fmt.Errorf("type %T has no storage representation", t)
	}
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
