package output

import (
	"fmt"
	"strings"

	"schemasync/internal/core"
	"schemasync/internal/migration"
)

type sqlFormatter struct{}

// FormatMigrations renders every migration as an annotated SQL script.
func (sqlFormatter) FormatMigrations(ms []*migration.Migration) (string, error) {
	var sb strings.Builder
	sb.WriteString("-- schemasync plan\n")
	sb.WriteString("-- Review before running in production.\n")

	for _, m := range ms {
		if m == nil {
			continue
		}
		writeMigration(&sb, m)
	}
	return sb.String(), nil
}

func writeMigration(sb *strings.Builder, m *migration.Migration) {
	fmt.Fprintf(sb, "\n-- schema %s on connection %s (%s)\n", m.Schema, m.Connection, m.Dialect)
	writeCommentSection(sb, "NOTES", m.InfoNotes())

	ops := sqlOperations(m)
	if len(ops) == 0 {
		sb.WriteString("-- No SQL statements generated.\n")
		return
	}
	for _, op := range ops {
		writeRiskComment(sb, op)
		sb.WriteString(op.SQL)
		if !strings.HasSuffix(op.SQL, ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
}

func writeRiskComment(sb *strings.Builder, op core.Operation) {
	if op.Risk != "" && op.Risk != core.RiskInfo {
		sb.WriteString("-- [" + string(op.Risk) + "] " + string(op.Action))
		if op.Object != "" {
			sb.WriteString(" " + op.Table + "." + op.Object)
		}
		sb.WriteString("\n")
	}
}

func sqlOperations(m *migration.Migration) []core.Operation {
	var ops []core.Operation
	for _, op := range m.Plan() {
		if op.Kind == core.OperationSQL && op.SQL != "" {
			ops = append(ops, op)
		}
	}
	return ops
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}
