// Package resolve binds relation columns to their target entities and synthesizes
// the storage columns, link tables and indexes those relations need.
package resolve

import (
	"fmt"
	"strings"

	"schemasync/internal/core"
	"schemasync/internal/registry"
)

// Resolver resolves schemas for one connection. Qualified references
// ("<schema>.<entity>") are looked up among schemas already registered for
// that connection.
type Resolver struct {
	registry   *registry.Registry
	connection string
}

// New returns a resolver bound to a registry and connection identifier.
func New(reg *registry.Registry, connection string) *Resolver {
	return &Resolver{registry: reg, connection: registry.NormalizeConnection(connection)}
}

// Resolve binds every relation column of s, prepares every entity and freezes the
// schema. Resolving an already resolved schema is a no-op.
func (r *Resolver) Resolve(s *core.SchemaDefinition) error {
	if s.IsResolved() {
		return nil
	}

	for _, e := range s.Entities {
		for _, c := range e.Columns {
			if !c.IsRelation() {
				continue
			}
			target, err := r.lookup(s, c)
			if err != nil {
				return core.WithSource(err, s.Source)
			}
			c.Target = target
		}
	}

	links := make(linkNames)
	prepare := func(e *core.EntityDefinition) error { return prepareEntity(e, links) }
	for _, e := range s.Entities {
		if err := e.Prepare(prepare); err != nil {
			return core.WithSource(err, s.Source)
		}
	}

	s.MarkResolved()
	return nil
}

// lookup finds the entity named by a relation column's objectType.
func (r *Resolver) lookup(s *core.SchemaDefinition, c *core.ColumnDefinition) (*core.EntityDefinition, error) {
	name := c.TargetName()
	schemaName, entityName := "", name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		schemaName, entityName = name[:i], name[i+1:]
	}

	owner := s
	if schemaName != "" && !strings.EqualFold(schemaName, s.Name) {
		owner = r.registry.Lookup(r.connection, schemaName)
		if owner == nil {
			return nil, &core.ConfigError{
				Path:    c.Path + ".objectType",
				Message: fmt.Sprintf("schema %q is not registered for connection %q", schemaName, r.connection),
			}
		}
	}

	target := owner.Entity(entityName)
	if target == nil {
		return nil, &core.ConfigError{
			Path:    c.Path + ".objectType",
			Message: fmt.Sprintf("table %q not found in schema %q", entityName, owner.Name),
		}
	}
	return target, nil
}

// prepareEntity synthesizes relation storage for e and expands its declared indexes.
func prepareEntity(e *core.EntityDefinition, links linkNames) error {
	names := newNameSet(e)

	for _, c := range e.Columns {
		switch c.Type.(type) {
		case core.Object:
			if err := synthesizeObject(e, c, names); err != nil {
				return err
			}
		case core.ObjectSet:
			if err := synthesizeObjectSet(e, c, links); err != nil {
				return err
			}
		}
	}

	for _, idx := range e.Indexes {
		if idx.Synthesized {
			continue
		}
		idx.StorageColumns = expandIndexColumns(e, idx.Columns)
	}
	return nil
}

// expandIndexColumns replaces relation column names with their storage column names.
func expandIndexColumns(e *core.EntityDefinition, columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, name := range columns {
		c := e.Column(name)
		if c != nil && len(c.ChildColumns) > 0 {
			for _, child := range c.ChildColumns {
				out = append(out, child.Name)
			}
			continue
		}
		out = append(out, name)
	}
	return out
}

// storageNames hands out custom storage-column names positionally, falling back to
// conventional names when none were supplied.
type storageNames struct {
	col    *core.ColumnDefinition
	custom []string
	next   int
}

func newStorageNames(c *core.ColumnDefinition, needed int) (*storageNames, error) {
	if n := len(c.ObjectStorageColumns); n > 0 && n < needed {
		return nil, &core.ConfigError{
			Path:    c.Path + ".objectStorageColumns",
			Message: fmt.Sprintf("%d column names are required, got %d", needed, n),
		}
	}
	return &storageNames{col: c, custom: c.ObjectStorageColumns}, nil
}

func (n *storageNames) take(conventional string) string {
	if len(n.custom) == 0 {
		return core.ShortenIdentifier(conventional, core.MaxIdentifierLength)
	}
	name := n.custom[n.next]
	n.next++
	return name
}

// nameSet tracks the physical column names of a table.
type nameSet map[string]string

func newNameSet(e *core.EntityDefinition) nameSet {
	s := make(nameSet)
	for _, c := range e.Columns {
		if !c.IsRelation() {
			s[strings.ToLower(c.Name)] = c.Name
		}
	}
	return s
}

func (s nameSet) claim(c *core.ColumnDefinition, name string) error {
	key := strings.ToLower(name)
	if owner, ok := s[key]; ok {
		return &core.ConfigError{
			Path:    c.Path + ".objectStorageColumns",
			Message: fmt.Sprintf("storage column %q collides with column %q", name, owner),
		}
	}
	s[key] = c.Name
	return nil
}

// linkNames tracks the link tables of one schema by lower-cased name.
type linkNames map[string]*core.ColumnDefinition

func (l linkNames) claim(c *core.ColumnDefinition, name string) error {
	key := strings.ToLower(name)
	if prev, ok := l[key]; ok {
		return &core.ConfigError{
			Path:    c.Path + ".objectStorageTable",
			Message: fmt.Sprintf("link table %q is already used by %s", name, prev.Path),
		}
	}
	l[key] = c
	return nil
}

func requirePrimaryKey(c *core.ColumnDefinition, e *core.EntityDefinition) error {
	if len(e.PrimaryKey) == 0 {
		return &core.AssertionError{
			Path:    c.Path + ".objectType",
			Message: fmt.Sprintf("table %q has no primary key", e.Name),
		}
	}
	return nil
}

// synthesizeObject adds one child column per target primary-key column and a
// single index over them to the owning entity.
func synthesizeObject(owner *core.EntityDefinition, c *core.ColumnDefinition, names nameSet) error {
	target := c.Target
	if err := requirePrimaryKey(c, target); err != nil {
		return err
	}
	alloc, err := newStorageNames(c, len(target.PrimaryKey))
	if err != nil {
		return err
	}

	idx := &core.IndexDefinition{
		Name:        core.ShortenIdentifier("idx_"+owner.FullName+"_"+c.Name, core.MaxIdentifierLength),
		Columns:     []string{c.Name},
		Synthesized: true,
		Path:        c.Path,
	}
	for _, pk := range target.PrimaryKey {
		child := &core.ColumnDefinition{
			Name:     alloc.take(c.Name + "_" + pk.Name),
			Type:     core.StorageType(pk.Type),
			Required: c.Required,
			Entity:   owner,
			Path:     c.Path,
		}
		child.CodeName = core.CamelCase(child.Name)
		if err := names.claim(c, child.Name); err != nil {
			return err
		}
		c.ChildColumns = append(c.ChildColumns, child)
		idx.StorageColumns = append(idx.StorageColumns, child.Name)
	}

	if err := owner.AddIndex(idx); err != nil {
		return &core.ConfigError{Path: c.Path, Message: err.Error()}
	}
	return nil
}

// synthesizeObjectSet builds the link table of an objectSet column: the parent
// index and parent columns first, then the child index and child columns.
func synthesizeObjectSet(owner *core.EntityDefinition, c *core.ColumnDefinition, links linkNames) error {
	target := c.Target
	if err := requirePrimaryKey(c, target); err != nil {
		return err
	}
	if len(owner.PrimaryKey) == 0 {
		return &core.AssertionError{
			Path:    c.Path,
			Message: fmt.Sprintf("table %q has no primary key", owner.Name),
		}
	}
	alloc, err := newStorageNames(c, len(owner.PrimaryKey)+len(target.PrimaryKey))
	if err != nil {
		return err
	}

	linkName := c.Type.(core.ObjectSet).StorageTable
	if linkName == "" {
		linkName = core.ShortenIdentifier(owner.Name+"_"+c.Name+"_"+target.Name, core.MaxIdentifierLength)
	}
	if owner.Schema != nil && owner.Schema.Entity(linkName) != nil {
		return &core.ConfigError{
			Path:    c.Path + ".objectStorageTable",
			Message: fmt.Sprintf("link table %q collides with a declared table", linkName),
		}
	}
	if err := links.claim(c, linkName); err != nil {
		return err
	}

	link := core.NewEntityDefinition(linkName)
	link.Schema = owner.Schema
	link.FullName = tablePrefix(owner) + linkName
	link.LinkOwner = c
	link.Namespace = owner.Namespace
	link.SkipCodeGeneration = true
	link.SkipSchemaSync = owner.SkipSchemaSync
	link.Path = c.Path

	groups := []struct {
		suffix  string
		prefix  string
		keys    []*core.ColumnDefinition
		keyedBy *core.EntityDefinition
	}{
		{"_parent", "_parent_", owner.PrimaryKey, owner},
		{"_child", "_child_", target.PrimaryKey, target},
	}
	for _, g := range groups {
		idx := &core.IndexDefinition{
			Name:        core.ShortenIdentifier("idx_"+linkName+g.suffix, core.MaxIdentifierLength),
			Synthesized: true,
			Path:        c.Path,
		}
		for _, pk := range g.keys {
			col := &core.ColumnDefinition{
				Name:     alloc.take(g.prefix + g.keyedBy.Name + "_" + pk.Name),
				Type:     core.StorageType(pk.Type),
				Required: true,
				Path:     c.Path,
			}
			col.CodeName = core.CamelCase(col.Name)
			if err := link.AddColumn(col); err != nil {
				return &core.ConfigError{Path: c.Path + ".objectStorageColumns", Message: err.Error()}
			}
			if g.suffix == "_parent" {
				c.ParentColumns = append(c.ParentColumns, col)
			} else {
				c.ChildColumns = append(c.ChildColumns, col)
			}
			idx.Columns = append(idx.Columns, col.Name)
		}
		if err := link.AddIndex(idx); err != nil {
			return &core.ConfigError{Path: c.Path, Message: err.Error()}
		}
	}

	if err := link.Prepare(nil); err != nil {
		return err
	}
	c.LinkTable = link
	return nil
}

func tablePrefix(e *core.EntityDefinition) string {
	if e.Schema == nil {
		return ""
	}
	return e.Schema.TablePrefix
}
