package parser

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"schemasync/internal/core"
)

// nullText is how MySQL-compatible servers may report a missing default, so a
// string default with this exact text would never read back as itself.
const nullText = "NULL"

// dateLayouts are the accepted spellings of a datetime default.
var dateLayouts = []string{
	time.DateTime,
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func (c *converter) convertColumn(cn node) (*core.ColumnDefinition, error) {
	name, err := cn.requiredString("name")
	if err != nil {
		return nil, err
	}
	typeName, err := cn.requiredString("type")
	if err != nil {
		return nil, err
	}
	if !core.ValidIdentifier(name) {
		return nil, cn.assertErr("name", "%q is not a valid identifier", name)
	}
	dt, ok := core.ParseDataType(typeName)
	if !ok {
		return nil, cn.configErr("type", "unknown type %q", typeName)
	}

	col := &core.ColumnDefinition{
		Name:     name,
		CodeName: core.CamelCase(name),
		Path:     cn.path,
	}

	switch dt {
	case core.DataTypeVarchar, core.DataTypeNVarchar:
		err = parseVarcharColumn(cn, col, dt)
	case core.DataTypeText, core.DataTypeNText, core.DataTypeBlob:
		col.Type = core.Text{Unicode: dt == core.DataTypeNText, Binary: dt == core.DataTypeBlob}
	case core.DataTypeInt, core.DataTypeBigInt:
		err = parseIntegerColumn(cn, col, dt)
	case core.DataTypeDecimal, core.DataTypeFloat, core.DataTypeDouble:
		err = parseDecimalColumn(cn, col, dt)
	case core.DataTypeDateTime:
		err = parseDateTimeColumn(cn, col)
	case core.DataTypeEnum:
		err = parseEnumColumn(cn, col)
	case core.DataTypeBoolean:
		err = parseBooleanColumn(cn, col)
	case core.DataTypeObject:
		err = parseObjectColumn(cn, col)
	case core.DataTypeObjectSet:
		err = parseObjectSetColumn(cn, col)
	}
	if err != nil {
		return nil, err
	}

	if v, ok, err := cn.optionalIdentifier("phpName"); err != nil {
		return nil, err
	} else if ok {
		col.CodeName = v
	}
	if col.PrimaryKey, err = cn.optionalBool("primaryKey"); err != nil {
		return nil, err
	}
	if col.PrimaryKey && !core.PrimaryKeyEligible(col.Type) {
		return nil, cn.configErr("primaryKey", "a %s column cannot be part of a primary key", dt)
	}
	if col.AutoIncrement() && !col.PrimaryKey {
		return nil, cn.configErr("autoIncrement", "only primary-key columns can auto-increment")
	}
	if col.Required, err = cn.optionalBool("required"); err != nil {
		return nil, err
	}
	if col.LazyLoad, err = cn.optionalBool("lazyLoad"); err != nil {
		return nil, err
	}

	return col, nil
}

func parseVarcharColumn(cn node, col *core.ColumnDefinition, dt core.DataType) error {
	size, err := cn.requiredInt("size", 1)
	if err != nil {
		return err
	}
	col.Type = core.Varchar{Unicode: dt == core.DataTypeNVarchar, Size: size}

	def, ok, err := cn.optionalString("defaultValue")
	if err != nil || !ok {
		return err
	}
	if len(def) > size {
		return cn.assertErr("defaultValue", "longer than column size %d", size)
	}
	if def == nullText {
		return cn.assertErr("defaultValue", "the text %q cannot be told apart from no default", nullText)
	}
	col.DefaultValue = &def
	return nil
}

func parseIntegerColumn(cn node, col *core.ColumnDefinition, dt core.DataType) error {
	autoIncrement, err := cn.optionalBool("autoIncrement")
	if err != nil {
		return err
	}
	col.Type = core.Integer{Big: dt == core.DataTypeBigInt, AutoIncrement: autoIncrement}

	if !cn.has("defaultValue") {
		return nil
	}
	v := cn.m["defaultValue"]
	def, ok := asNumber(v)
	if !ok || strings.ContainsAny(def, ".eE") {
		return cn.assertErr("defaultValue", "must be an integer, got %v", v)
	}
	if autoIncrement {
		return cn.configErr("defaultValue", "auto-increment columns cannot have a default")
	}
	col.DefaultValue = &def
	return nil
}

func parseDecimalColumn(cn node, col *core.ColumnDefinition, dt core.DataType) error {
	size, err := cn.requiredInt("size", 1)
	if err != nil {
		return err
	}
	scale, err := cn.requiredInt("scale", 0)
	if err != nil {
		return err
	}
	if scale > size {
		return cn.configErr("scale", "scale %d exceeds size %d", scale, size)
	}
	col.Type = core.Decimal{Kind: dt, Size: size, Scale: scale}

	if !cn.has("defaultValue") {
		return nil
	}
	v := cn.m["defaultValue"]
	def, ok := asNumber(v)
	if !ok {
		return cn.assertErr("defaultValue", "must be numeric, got %v", v)
	}
	whole, frac := digits(def)
	if frac > scale {
		return cn.assertErr("defaultValue", "%s has more than %d fractional digits", def, scale)
	}
	if whole > size-scale {
		return cn.assertErr("defaultValue", "%s does not fit %s(%d,%d)", def, dt, size, scale)
	}
	col.DefaultValue = &def
	return nil
}

func parseDateTimeColumn(cn node, col *core.ColumnDefinition) error {
	col.Type = core.DateTime{}

	def, ok, err := cn.optionalString("defaultValue")
	if err != nil || !ok {
		return err
	}
	t, ok := parseDate(def)
	if !ok {
		return cn.assertErr("defaultValue", "%q is not a valid date", def)
	}
	canonical := t.Format(time.DateTime)
	col.DefaultValue = &canonical
	return nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseEnumColumn(cn node, col *core.ColumnDefinition) error {
	var values []string
	switch v := cn.m["valueSet"].(type) {
	case string:
		for _, s := range strings.Split(v, ",") {
			values = append(values, strings.TrimSpace(s))
		}
	case []any:
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return cn.configErr("valueSet", "values must be strings")
			}
			values = append(values, strings.TrimSpace(s))
		}
	}
	if len(values) == 0 {
		return cn.configErr("valueSet", "a non-empty comma-separated list of values is required")
	}
	for i, s := range values {
		if s == "" {
			return cn.configErr("valueSet", "value %d is empty", i)
		}
		if slices.Contains(values[:i], s) {
			return cn.configErr("valueSet", "duplicate value %q", s)
		}
	}
	col.Type = core.Enum{Values: values}

	def, ok, err := cn.optionalString("defaultValue")
	if err != nil || !ok {
		return err
	}
	if !slices.Contains(values, def) {
		return cn.assertErr("defaultValue", "%q is not one of %s", def, strings.Join(values, ", "))
	}
	if def == nullText {
		return cn.assertErr("defaultValue", "the text %q cannot be told apart from no default", nullText)
	}
	col.DefaultValue = &def
	return nil
}

func parseBooleanColumn(cn node, col *core.ColumnDefinition) error {
	col.Type = core.Boolean{}

	if !cn.has("defaultValue") {
		return nil
	}
	b, err := cn.optionalBool("defaultValue")
	if err != nil {
		return err
	}
	def := fmt.Sprint(b)
	col.DefaultValue = &def
	return nil
}

func parseObjectColumn(cn node, col *core.ColumnDefinition) error {
	target, err := parseRelationColumn(cn, col)
	if err != nil {
		return err
	}
	col.Type = core.Object{Target: target}
	return nil
}

func parseObjectSetColumn(cn node, col *core.ColumnDefinition) error {
	target, err := parseRelationColumn(cn, col)
	if err != nil {
		return err
	}
	table, _, err := cn.optionalIdentifier("objectStorageTable")
	if err != nil {
		return err
	}
	col.Type = core.ObjectSet{Target: target, StorageTable: table}
	return nil
}

// parseRelationColumn reads the fields shared by object and objectSet columns.
func parseRelationColumn(cn node, col *core.ColumnDefinition) (string, error) {
	target, err := cn.requiredIdentifier("objectType", '.')
	if err != nil {
		return "", err
	}
	list, err := cn.optionalList("objectStorageColumns")
	if err != nil {
		return "", err
	}
	names, err := cn.identifierList("objectStorageColumns", list)
	if err != nil {
		return "", err
	}
	col.ObjectStorageColumns = names
	return target, nil
}

// digits counts the significant integer digits and the fractional digits of a
// canonical decimal number such as "-12.50".
func digits(n string) (whole, frac int) {
	n = strings.TrimPrefix(n, "-")
	intPart, fracPart, _ := strings.Cut(n, ".")
	intPart = strings.TrimLeft(intPart, "0")
	fracPart = strings.TrimRight(fracPart, "0")
	return len(intPart), len(fracPart)
}
