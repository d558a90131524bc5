package parser

import (
	"schemasync/internal/core"
)

type converter struct {
	source string
}

func newConverter(source string) *converter {
	return &converter{source: source}
}

func (c *converter) convert(doc map[string]any) (*core.SchemaDefinition, error) {
	root := node{m: doc, path: "schema"}

	name, err := root.requiredString("name")
	if err != nil {
		return nil, err
	}
	namespace, err := root.requiredString("namespace")
	if err != nil {
		return nil, err
	}
	tables, err := root.requiredList("tables")
	if err != nil {
		return nil, err
	}
	if !core.ValidIdentifier(name, '.') {
		return nil, root.assertErr("name", "%q is not a valid identifier", name)
	}
	if !core.ValidIdentifier(namespace, '.') {
		return nil, root.assertErr("namespace", "%q is not a valid identifier", namespace)
	}

	s := core.NewSchemaDefinition(name, namespace)
	s.Source = c.source

	if bc, ok, err := root.optionalIdentifier("baseClass"); err != nil {
		return nil, err
	} else if ok {
		s.BaseClass = bc
	}

	prefix, _, err := root.optionalString("tablePrefix")
	if err != nil {
		return nil, err
	}
	if prefix != "" && !core.ValidIdentifier(prefix) {
		return nil, root.assertErr("tablePrefix", "%q is not a valid identifier", prefix)
	}
	s.TablePrefix = prefix

	for i := range tables {
		tn, err := root.object(tables, "tables", i)
		if err != nil {
			return nil, err
		}
		e, err := c.convertTable(s, tn)
		if err != nil {
			return nil, err
		}
		if err := s.AddEntity(e); err != nil {
			return nil, &core.ConfigError{Path: tn.field("name"), Message: err.Error()}
		}
	}

	return s, nil
}

func (c *converter) convertTable(s *core.SchemaDefinition, tn node) (*core.EntityDefinition, error) {
	name, err := tn.requiredString("name")
	if err != nil {
		return nil, err
	}
	columns, err := tn.requiredList("columns")
	if err != nil {
		return nil, err
	}
	if !core.ValidIdentifier(name) {
		return nil, tn.assertErr("name", "%q is not a valid identifier", name)
	}

	e := core.NewEntityDefinition(name)
	e.Path = tn.path
	e.Namespace = s.Namespace
	e.BaseClass = s.BaseClass

	if e.SkipCodeGeneration, err = tn.optionalBool("skipPhp"); err != nil {
		return nil, err
	}
	if e.SkipSchemaSync, err = tn.optionalBool("skipSql"); err != nil {
		return nil, err
	}
	if e.ReadOnly, err = tn.optionalBool("readOnly"); err != nil {
		return nil, err
	}
	if v, ok, err := tn.optionalIdentifier("phpName"); err != nil {
		return nil, err
	} else if ok {
		e.CodeName = v
	}
	if v, ok, err := tn.optionalIdentifier("namespace", '.'); err != nil {
		return nil, err
	} else if ok {
		e.Namespace = v
	}
	if v, ok, err := tn.optionalIdentifier("baseClass"); err != nil {
		return nil, err
	} else if ok {
		e.BaseClass = v
	}

	var autoIncrement *core.ColumnDefinition
	for j := range columns {
		cn, err := tn.object(columns, "columns", j)
		if err != nil {
			return nil, err
		}
		col, err := c.convertColumn(cn)
		if err != nil {
			return nil, err
		}
		if col.AutoIncrement() {
			if autoIncrement != nil {
				return nil, cn.configErr("autoIncrement", "table already has auto-increment column %q", autoIncrement.Name)
			}
			autoIncrement = col
		}
		if err := e.AddColumn(col); err != nil {
			return nil, &core.ConfigError{Path: cn.field("name"), Message: err.Error()}
		}
	}

	indexes, err := tn.optionalList("indexes")
	if err != nil {
		return nil, err
	}
	for k := range indexes {
		in, err := tn.object(indexes, "indexes", k)
		if err != nil {
			return nil, err
		}
		idx, err := c.convertIndex(e, in)
		if err != nil {
			return nil, err
		}
		if err := e.AddIndex(idx); err != nil {
			return nil, &core.ConfigError{Path: in.field("name"), Message: err.Error()}
		}
	}

	return e, nil
}

func (c *converter) convertIndex(e *core.EntityDefinition, in node) (*core.IndexDefinition, error) {
	name, err := in.requiredIdentifier("name")
	if err != nil {
		return nil, err
	}
	list, err := in.requiredList("columns")
	if err != nil {
		return nil, err
	}
	columns, err := in.identifierList("columns", list)
	if err != nil {
		return nil, err
	}
	unique, err := in.optionalBool("unique")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		target := e.Column(col)
		if target == nil {
			return nil, &core.ConfigError{Path: in.path + ".columns", Message: "unknown column " + quote(col)}
		}
		if _, ok := target.Type.(core.ObjectSet); ok {
			return nil, &core.ConfigError{Path: in.path + ".columns", Message: "objectSet column " + quote(col) + " cannot be indexed"}
		}
		if seen[target.Name] {
			return nil, &core.ConfigError{Path: in.path + ".columns", Message: "duplicate column " + quote(col)}
		}
		seen[target.Name] = true
		columns[i] = target.Name
	}

	return &core.IndexDefinition{
		Name:    name,
		Unique:  unique,
		Columns: columns,
		Path:    in.path,
	}, nil
}

func quote(s string) string { return `"` + s + `"` }
