// Package apply executes planned migrations against a live database. Statements
// run one by one without a transaction: most DDL commits implicitly, so a failed
// statement leaves the earlier ones applied and the next run picks up from there.
package apply

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"schemasync/internal/core"
	"schemasync/internal/migration"
	"schemasync/internal/provider"
)

// ErrDestructive is returned when a migration contains a statement that would
// destroy data. Reconciliation never plans such statements.
var ErrDestructive = errors.New("destructive statement rejected")

// Options struct contains the settings of an Applier.
type Options struct {
	// DryRun prints the statements instead of executing them.
	DryRun bool

	// Out receives human-readable progress. Nil discards it.
	Out io.Writer

	// Logger receives structured events. Nil means slog.Default().
	Logger *slog.Logger
}

// Result describes one Apply call.
type Result struct {
	Applied  int
	Warnings []Warning
}

// Applier runs the SQL of migrations on one database.
type Applier struct {
	db       *sql.DB
	dialect  core.Dialect
	options  Options
	analyzer *StatementAnalyzer
	out      io.Writer
	logger   *slog.Logger
}

// NewApplier returns an Applier for db. db may be nil for dry runs.
func NewApplier(db *sql.DB, dialect core.Dialect, options Options) *Applier {
	out := options.Out
	if out == nil {
		out = io.Discard
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		db:       db,
		dialect:  dialect,
		options:  options,
		analyzer: NewStatementAnalyzer(),
		out:      out,
		logger:   logger,
	}
}

// We use custom printf to format and print messages to the output writer.
func (a *Applier) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *Applier) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}

// Apply runs the preflight checks and then executes, or in dry-run mode prints,
// the statements of m in order.
func (a *Applier) Apply(ctx context.Context, m *migration.Migration) (*Result, error) {
	statements := m.SQLStatements()
	preflight := a.analyzer.AnalyzeStatements(statements)
	result := &Result{Warnings: preflight.Warnings}

	if preflight.HasDestructive() {
		for _, w := range preflight.Warnings {
			if w.Level == WarnDanger {
				return result, fmt.Errorf("%w: %s: %s", ErrDestructive, w.Message, truncateSQL(w.SQL))
			}
		}
	}
	if len(statements) == 0 {
		return result, nil
	}

	if a.options.DryRun {
		a.dryRun(m, preflight)
		return result, nil
	}

	applied, err := a.execute(ctx, m.Schema, statements)
	result.Applied = applied
	return result, err
}

func (a *Applier) dryRun(m *migration.Migration, preflight *Preflight) {
	a.printf("=== DRY RUN: %s (%s) ===\n", m.Schema, m.Connection)

	if len(preflight.Warnings) > 0 {
		a.println("--- Preflight Checks ---")
		for _, w := range preflight.Warnings {
			a.printf("[%s] %s\n", w.Level, w.Message)
			if w.SQL != "" {
				a.printf("    SQL: %s\n", truncateSQL(w.SQL))
			}
		}
	}

	a.println("--- Statements to Execute ---")
	for i, stmt := range m.SQLStatements() {
		a.printf("%d. %s\n\n", i+1, stmt)
	}
}

func (a *Applier) execute(ctx context.Context, schema string, statements []string) (int, error) {
	if a.db == nil {
		return 0, fmt.Errorf("apply %q: no database connection", schema)
	}

	successCount := 0
	for i, stmt := range statements {
		a.printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			a.logger.Error("statement failed",
				"schema", schema,
				"statement", i+1,
				"applied", successCount,
				"error", err,
			)
			return successCount, provider.Wrap(a.dialect, "execute", fmt.Errorf(
				"statement %d failed: %w\n  Statement: %s\n  %d statements were already applied and cannot be automatically rolled back",
				i+1, err, truncateSQL(stmt), successCount))
		}
		a.logger.Debug("statement applied", "schema", schema, "sql", truncateSQL(stmt))
		successCount++
	}

	a.printf("Successfully applied %d statements\n", successCount)
	return successCount, nil
}

func truncateSQL(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if len(stmt) > 80 {
		return stmt[:77] + "..."
	}
	return stmt
}
