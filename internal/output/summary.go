package output

import (
	"fmt"
	"strings"

	"schemasync/internal/core"
	"schemasync/internal/migration"
)

type summaryFormatter struct{}

// FormatMigrations formats migrations as a compact summary.
// Example output:
//
//	Plan Summary
//	============
//
//	blog (default, sqlite): 4 statements
//	  Tables:  +2
//	  Columns: +1, ~0
//	  Indexes: +2, ~0
func (summaryFormatter) FormatMigrations(ms []*migration.Migration) (string, error) {
	var sb strings.Builder
	sb.WriteString("Plan Summary\n")
	sb.WriteString("============\n")

	total := 0
	for _, m := range ms {
		if m == nil {
			continue
		}
		total += len(m.SQLStatements())
		writeSummary(&sb, m)
	}

	if total == 0 {
		sb.WriteString("\nNo changes detected.\n")
	}
	return sb.String(), nil
}

func writeSummary(sb *strings.Builder, m *migration.Migration) {
	counts := make(map[core.Action]int)
	for _, op := range m.Plan() {
		if op.Kind == core.OperationSQL {
			counts[op.Action]++
		}
	}

	fmt.Fprintf(sb, "\n%s (%s, %s): %d statements\n", m.Schema, m.Connection, m.Dialect, len(m.SQLStatements()))
	fmt.Fprintf(sb, "  Tables:  +%d\n", counts[core.ActionCreateTable])
	fmt.Fprintf(sb, "  Columns: +%d, ~%d\n", counts[core.ActionCreateColumn], counts[core.ActionAlterColumn])
	fmt.Fprintf(sb, "  Indexes: +%d, ~%d\n", counts[core.ActionCreateIndex]-counts[core.ActionDropIndex], counts[core.ActionDropIndex])

	if warnings := m.Warnings(); len(warnings) > 0 {
		fmt.Fprintf(sb, "  Warnings: %d\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(sb, "   - %s %s.%s\n", w.Action, w.Table, w.Object)
		}
	}
	if notes := m.InfoNotes(); len(notes) > 0 {
		fmt.Fprintf(sb, "  Notes: %d\n", len(notes))
		for _, n := range notes {
			fmt.Fprintf(sb, "   - %s\n", n)
		}
	}
}
