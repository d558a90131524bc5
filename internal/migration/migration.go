// Package migration holds the ordered list of DDL statements produced by one
// reconciliation of a schema, together with informational notes.
package migration

import (
	"strings"

	"schemasync/internal/core"
)

// Migration struct contains all operations that need to be performed to bring
// a database in line with one schema, in execution order.
type Migration struct {
	Schema     string           `json:"schema"`
	Connection string           `json:"connection"`
	Dialect    core.Dialect     `json:"dialect"`
	Operations []core.Operation `json:"operations"`
}

// New returns an empty migration for a schema on a connection.
func New(schema, connection string, dialect core.Dialect) *Migration {
	return &Migration{Schema: schema, Connection: connection, Dialect: dialect}
}

// Plan returns the list of operations in execution order.
func (m *Migration) Plan() []core.Operation {
	return m.Operations
}

// SQLStatements returns the SQL statements to execute, in order.
func (m *Migration) SQLStatements() []string {
	return m.filterByKind(core.OperationSQL)
}

// InfoNotes returns the informational notes of the migration.
func (m *Migration) InfoNotes() []string {
	return m.filterByKind(core.OperationNote)
}

// Warnings returns the statements whose action carries a warning risk.
func (m *Migration) Warnings() []core.Operation {
	var out []core.Operation
	for _, op := range m.Operations {
		if op.Kind == core.OperationSQL && op.Risk == core.RiskWarning {
			out = append(out, op)
		}
	}
	return out
}

// IsEmpty reports whether the migration has no SQL to execute.
func (m *Migration) IsEmpty() bool {
	return len(m.SQLStatements()) == 0
}

// AddStatement appends a SQL operation. Blank statements are ignored.
func (m *Migration) AddStatement(action core.Action, table, object, stmt string) {
	if stmt = strings.TrimSpace(stmt); stmt == "" {
		return
	}
	m.Operations = append(m.Operations, core.Operation{
		Kind:   core.OperationSQL,
		Action: action,
		Table:  table,
		Object: object,
		SQL:    stmt,
		Risk:   action.Risk(),
	})
}

// AddNote appends an informational note. Blank and repeated notes are ignored.
func (m *Migration) AddNote(msg string) {
	if msg = strings.TrimSpace(msg); msg == "" {
		return
	}
	for _, op := range m.Operations {
		if op.Kind == core.OperationNote && op.SQL == msg {
			return
		}
	}
	m.Operations = append(m.Operations, core.Operation{Kind: core.OperationNote, SQL: msg, Risk: core.RiskInfo})
}

func (m *Migration) filterByKind(kind core.OperationKind) []string {
	out := make([]string, 0, len(m.Operations))
	for i := range m.Operations {
		op := &m.Operations[i]
		if op.Kind != kind {
			continue
		}
		if val := strings.TrimSpace(op.SQL); val != "" {
			out = append(out, val)
		}
	}
	return out
}
