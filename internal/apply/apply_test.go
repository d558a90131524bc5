package apply

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemasync/internal/core"
	"schemasync/internal/migration"
	_ "schemasync/internal/provider/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func newMigration(stmts ...string) *migration.Migration {
	m := migration.New("blog", "default", core.DialectSQLite)
	for _, stmt := range stmts {
		m.AddStatement(core.ActionCreateTable, "t", "", stmt)
	}
	return m
}

func TestApplierApply(t *testing.T) {
	ctx := context.Background()

	t.Run("executes statements in order", func(t *testing.T) {
		db := openDB(t)
		var buf bytes.Buffer
		applier := NewApplier(db, core.DialectSQLite, Options{Out: &buf})

		result, err := applier.Apply(ctx, newMigration(
			`CREATE TABLE "posts" ("id" integer NOT NULL, PRIMARY KEY ("id"));`,
			`ALTER TABLE "posts" ADD COLUMN "title" varchar(64) NULL;`,
			`CREATE INDEX "idx_title" ON "posts" ("title");`,
		))
		require.NoError(t, err)
		assert.Equal(t, 3, result.Applied)
		assert.True(t, tableExists(t, db, "posts"))

		output := buf.String()
		assert.Contains(t, output, "Executing statement 1/3...")
		assert.Contains(t, output, "Executing statement 3/3...")
		assert.Contains(t, output, "Successfully applied 3 statements")
	})

	t.Run("empty migration does nothing", func(t *testing.T) {
		var buf bytes.Buffer
		applier := NewApplier(nil, core.DialectSQLite, Options{Out: &buf})

		result, err := applier.Apply(ctx, newMigration())
		require.NoError(t, err)
		assert.Equal(t, 0, result.Applied)
		assert.Empty(t, buf.String())
	})

	t.Run("failure reports applied statements", func(t *testing.T) {
		db := openDB(t)
		applier := NewApplier(db, core.DialectSQLite, Options{})

		result, err := applier.Apply(ctx, newMigration(
			`CREATE TABLE "a" ("id" integer NOT NULL);`,
			`CREATE TABLE "a" ("id" integer NOT NULL);`,
			`CREATE TABLE "b" ("id" integer NOT NULL);`,
		))
		require.Error(t, err)
		assert.Equal(t, 1, result.Applied)
		assert.Contains(t, err.Error(), "statement 2 failed")
		assert.Contains(t, err.Error(), "1 statements were already applied")

		var pe *core.ProviderError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, core.DialectSQLite, pe.Dialect)
		assert.Equal(t, "execute", pe.Op)
		assert.NotEmpty(t, pe.Code)
		assert.True(t, core.IsRetryable(err))

		assert.True(t, tableExists(t, db, "a"))
		assert.False(t, tableExists(t, db, "b"))
	})

	t.Run("destructive statement is rejected before execution", func(t *testing.T) {
		db := openDB(t)
		applier := NewApplier(db, core.DialectSQLite, Options{})

		result, err := applier.Apply(ctx, newMigration(
			`CREATE TABLE "keep" ("id" integer NOT NULL);`,
			`DROP TABLE "keep";`,
		))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDestructive))
		assert.Equal(t, 0, result.Applied)
		assert.False(t, tableExists(t, db, "keep"))
	})

	t.Run("nil database fails outside dry run", func(t *testing.T) {
		applier := NewApplier(nil, core.DialectSQLite, Options{})
		_, err := applier.Apply(ctx, newMigration(`CREATE TABLE "x" ("id" integer);`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no database connection")
	})
}

func TestApplierDryRun(t *testing.T) {
	db := openDB(t)
	var buf bytes.Buffer
	applier := NewApplier(db, core.DialectSQLite, Options{DryRun: true, Out: &buf})

	result, err := applier.Apply(context.Background(), newMigration(
		`CREATE TABLE "dry" ("id" integer NOT NULL);`,
		`CREATE INDEX "idx_dry" ON "dry" ("id");`,
	))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Applied)
	assert.False(t, tableExists(t, db, "dry"))

	output := buf.String()
	assert.Contains(t, output, "=== DRY RUN: blog (default) ===")
	assert.Contains(t, output, "--- Preflight Checks ---")
	assert.Contains(t, output, "[CAUTION]")
	assert.Contains(t, output, `1. CREATE TABLE "dry"`)
	assert.Contains(t, output, `2. CREATE INDEX "idx_dry"`)
}

func TestTruncateSQL(t *testing.T) {
	assert.Equal(t, "SELECT 1", truncateSQL("  SELECT 1  "))

	long := strings.Repeat("x", 100)
	got := truncateSQL(long)
	assert.Len(t, got, 80)
	assert.True(t, strings.HasSuffix(got, "..."))
}
