package provider

import (
	"sort"
	"strings"

	"schemasync/internal/core"
)

// Snapshot is the metadata of a database read once at provider construction.
// Tables outside the connection prefix are not part of the snapshot; the prefix
// is stripped from the names of those that are.
type Snapshot struct {
	prefix string
	tables map[string]*core.ObservedTable
}

// NewSnapshot returns an empty snapshot for a connection prefix.
func NewSnapshot(prefix string) *Snapshot {
	return &Snapshot{prefix: prefix, tables: make(map[string]*core.ObservedTable)}
}

// Prefix returns the connection table-name prefix.
func (s *Snapshot) Prefix() string { return s.prefix }

// PhysicalName returns the name of table in the database.
func (s *Snapshot) PhysicalName(table string) string { return s.prefix + table }

// AddTable records a table by its physical name. It returns nil when the name
// does not carry the connection prefix.
func (s *Snapshot) AddTable(physical string) *core.ObservedTable {
	if !strings.HasPrefix(physical, s.prefix) || len(physical) == len(s.prefix) {
		return nil
	}
	name := physical[len(s.prefix):]
	key := strings.ToLower(name)
	if t, ok := s.tables[key]; ok {
		return t
	}
	t := core.NewObservedTable(name)
	s.tables[key] = t
	return t
}

// TableByPhysicalName returns the table recorded under a physical name, or nil.
func (s *Snapshot) TableByPhysicalName(physical string) *core.ObservedTable {
	if !strings.HasPrefix(physical, s.prefix) {
		return nil
	}
	return s.Table(physical[len(s.prefix):])
}

// Table returns a table by its unprefixed name, or nil.
func (s *Snapshot) Table(name string) *core.ObservedTable {
	return s.tables[strings.ToLower(name)]
}

// TableNames returns the unprefixed names of all tables, sorted.
func (s *Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for _, t := range s.tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

func (s *Snapshot) HasTable(table string) bool { return s.Table(table) != nil }

func (s *Snapshot) HasColumn(table, column string) bool { return s.Column(table, column) != nil }

func (s *Snapshot) HasIndex(table, index string) bool { return s.Index(table, index) != nil }

func (s *Snapshot) Column(table, column string) *core.ObservedColumn {
	t := s.Table(table)
	if t == nil {
		return nil
	}
	return t.Column(column)
}

func (s *Snapshot) Index(table, index string) *core.ObservedIndex {
	t := s.Table(table)
	if t == nil {
		return nil
	}
	return t.Index(index)
}
