// Package reconcile compares a resolved schema with the metadata of a live
// database and produces the ordered DDL that brings the database in line.
//
// Reconciliation is additive and corrective: tables, columns and indexes are
// created, columns are altered, and an index is dropped only to be recreated
// immediately with its new definition.
package reconcile

import (
	"errors"
	"fmt"
	"log/slog"

	"schemasync/internal/core"
	"schemasync/internal/migration"
	"schemasync/internal/provider"
)

// ErrUnresolved is returned when a schema is reconciled before its references
// have been resolved.
var ErrUnresolved = errors.New("schema is not resolved")

// Status classifies one desired item against the live database.
type Status int

const (
	// Absent items do not exist in the database.
	Absent Status = iota
	// Current items exist and match their definition.
	Current
	// Stale items exist but differ from their definition.
	Stale
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Current:
		return "current"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Reconciler plans DDL for one connection through its provider.
type Reconciler struct {
	provider   provider.Provider
	connection string
	logger     *slog.Logger
}

// New returns a reconciler. A nil logger means slog.Default().
func New(p provider.Provider, connection string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{provider: p, connection: connection, logger: logger}
}

// Reconcile returns the statements needed to make the database match s.
// Entities are visited in declaration order; for each one the table's own
// columns come first, then its link tables, then its indexes.
func (r *Reconciler) Reconcile(s *core.SchemaDefinition) (*migration.Migration, error) {
	if !s.IsResolved() {
		return nil, fmt.Errorf("reconcile %q: %w", s.Name, ErrUnresolved)
	}

	m := migration.New(s.Name, r.connection, r.provider.Dialect())
	for _, e := range s.Entities {
		if e.SkipSchemaSync {
			m.AddNote(fmt.Sprintf("table %s is excluded from schema sync", e.FullName))
			continue
		}
		if err := r.reconcileEntity(m, e); err != nil {
			return nil, core.WithSource(err, s.Source)
		}
	}

	r.logger.Debug("reconciled schema",
		"schema", s.Name,
		"connection", r.connection,
		"statements", len(m.SQLStatements()),
	)
	return m, nil
}

func (r *Reconciler) reconcileEntity(m *migration.Migration, e *core.EntityDefinition) error {
	created, err := r.reconcileTable(m, e)
	if err != nil {
		return err
	}

	for _, c := range e.Columns {
		if _, ok := c.Type.(core.ObjectSet); !ok || c.LinkTable == nil {
			continue
		}
		linkCreated, err := r.reconcileTable(m, c.LinkTable)
		if err != nil {
			return err
		}
		if err := r.reconcileIndexes(m, c.LinkTable, linkCreated); err != nil {
			return err
		}
	}

	return r.reconcileIndexes(m, e, created)
}

// reconcileTable creates the table of e when it is absent and otherwise brings
// its columns up to date. Changed columns are altered before new ones are added.
// It reports whether the table was created.
func (r *Reconciler) reconcileTable(m *migration.Migration, e *core.EntityDefinition) (bool, error) {
	p := r.provider
	table := e.FullName

	if !p.HasTable(table) {
		stmt, err := p.CreateTable(e)
		if err != nil {
			return false, err
		}
		r.log(table, "", Absent)
		m.AddStatement(core.ActionCreateTable, table, "", stmt)
		return true, nil
	}

	var changed, added []*core.ColumnDefinition
	classify := func(c *core.ColumnDefinition, status Status) {
		r.log(table, c.Name, status)
		switch status {
		case Absent:
			added = append(added, c)
		case Stale:
			changed = append(changed, c)
		}
	}

	for _, c := range e.Columns {
		switch c.Type.(type) {
		case core.Object:
			for _, child := range c.ChildColumns {
				classify(child, r.relationColumnStatus(table, child))
			}
		case core.ObjectSet:
		default:
			if e.IsLinkTable() {
				// Link-table columns are all synthesized key references.
				classify(c, r.relationColumnStatus(table, c))
			} else {
				classify(c, r.columnStatus(table, c))
			}
		}
	}

	for _, c := range changed {
		stmt, err := p.AlterColumn(table, c)
		if err != nil {
			return false, err
		}
		m.AddStatement(core.ActionAlterColumn, table, c.Name, stmt)
	}
	for _, c := range added {
		stmt, err := p.CreateColumn(table, c)
		if err != nil {
			return false, err
		}
		m.AddStatement(core.ActionCreateColumn, table, c.Name, stmt)
	}
	return false, nil
}

// reconcileIndexes runs after every column change of the table. A stale index
// is dropped and recreated, the drop always immediately before the create.
func (r *Reconciler) reconcileIndexes(m *migration.Migration, e *core.EntityDefinition, created bool) error {
	p := r.provider
	table := e.FullName

	for _, idx := range e.Indexes {
		status := Absent
		if !created {
			status = r.indexStatus(table, idx)
		}
		r.log(table, idx.Name, status)

		switch status {
		case Current:
			continue
		case Stale:
			stmt, err := p.DropIndex(table, idx)
			if err != nil {
				return err
			}
			m.AddStatement(core.ActionDropIndex, table, idx.Name, stmt)
		}

		stmt, err := p.CreateIndex(table, idx)
		if err != nil {
			return err
		}
		m.AddStatement(core.ActionCreateIndex, table, idx.Name, stmt)
	}
	return nil
}

func (r *Reconciler) columnStatus(table string, c *core.ColumnDefinition) Status {
	observed := r.provider.Column(table, c.Name)
	switch {
	case observed == nil:
		return Absent
	case r.provider.ColumnMatches(observed, c, false):
		return Current
	default:
		return Stale
	}
}

// relationColumnStatus compares a synthesized key column by type and
// nullability only.
func (r *Reconciler) relationColumnStatus(table string, c *core.ColumnDefinition) Status {
	observed := r.provider.Column(table, c.Name)
	switch {
	case observed == nil:
		return Absent
	case r.provider.ColumnMatches(observed, c, true) && observed.Required == c.IsRequired():
		return Current
	default:
		return Stale
	}
}

func (r *Reconciler) indexStatus(table string, idx *core.IndexDefinition) Status {
	observed := r.provider.Index(table, idx.Name)
	switch {
	case observed == nil:
		return Absent
	case r.provider.IndexMatches(observed, idx):
		return Current
	default:
		return Stale
	}
}

func (r *Reconciler) log(table, object string, status Status) {
	if status == Current {
		return
	}
	r.logger.Debug("schema drift",
		"connection", r.connection,
		"table", table,
		"object", object,
		"status", status.String(),
	)
}
