package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var analyzeStatementTests = []struct {
	name              string
	sql               string
	wantDestructive   bool
	wantBlocking      bool
	wantStatementType string
}{
	{
		name:              "DROP TABLE is destructive",
		sql:               "DROP TABLE users;",
		wantDestructive:   true,
		wantStatementType: "DROP TABLE",
	},
	{
		name:              "DROP DATABASE is destructive",
		sql:               "DROP DATABASE mydb;",
		wantDestructive:   true,
		wantStatementType: "DROP DATABASE",
	},
	{
		name:              "TRUNCATE TABLE is destructive",
		sql:               "TRUNCATE TABLE users;",
		wantDestructive:   true,
		wantStatementType: "TRUNCATE TABLE",
	},
	{
		name:              "DELETE is destructive",
		sql:               "DELETE FROM users WHERE id = 1;",
		wantDestructive:   true,
		wantStatementType: "DELETE",
	},
	{
		name:              "DROP COLUMN is destructive",
		sql:               "ALTER TABLE users DROP COLUMN email;",
		wantDestructive:   true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "CREATE TABLE is neither",
		sql:               "CREATE TABLE `users` (`id` bigint NOT NULL AUTO_INCREMENT, PRIMARY KEY (`id`));",
		wantStatementType: "CREATE TABLE",
	},
	{
		name:              "ADD COLUMN may block",
		sql:               "ALTER TABLE `users` ADD COLUMN `bio` text NULL;",
		wantBlocking:      true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "MODIFY COLUMN may block",
		sql:               "ALTER TABLE `users` MODIFY COLUMN `name` varchar(64) NOT NULL;",
		wantBlocking:      true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "CREATE INDEX may block",
		sql:               "CREATE UNIQUE INDEX `idx_login` ON `users` (`login`);",
		wantBlocking:      true,
		wantStatementType: "CREATE INDEX",
	},
	{
		name:              "DROP INDEX may block",
		sql:               "DROP INDEX `idx_login` ON `users`;",
		wantBlocking:      true,
		wantStatementType: "DROP INDEX",
	},
	{
		name:              "quoted DROP COLUMN falls back to keywords",
		sql:               `ALTER TABLE "users" DROP COLUMN "email";`,
		wantDestructive:   true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "quoted DROP TABLE falls back to keywords",
		sql:               `drop   table "users";`,
		wantDestructive:   true,
		wantStatementType: "DROP TABLE",
	},
	{
		name:              "quoted ALTER COLUMN may block",
		sql:               `ALTER TABLE "users" ALTER COLUMN "name" TYPE text USING "name"::text;`,
		wantBlocking:      true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "quoted DROP INDEX may block",
		sql:               `DROP INDEX "app_idx_login";`,
		wantBlocking:      true,
		wantStatementType: "DROP INDEX",
	},
}

func TestAnalyzeStatement(t *testing.T) {
	analyzer := NewStatementAnalyzer()

	for _, tt := range analyzeStatementTests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.AnalyzeStatement(tt.sql)
			assert.Equal(t, tt.wantDestructive, got.IsDestructive, "IsDestructive")
			assert.Equal(t, tt.wantBlocking, got.IsBlocking, "IsBlocking")
			assert.Equal(t, tt.wantStatementType, got.StatementType, "StatementType")
			if tt.wantDestructive {
				assert.NotEmpty(t, got.DestructiveReason)
			}
		})
	}
}

func TestAnalyzeStatements(t *testing.T) {
	analyzer := NewStatementAnalyzer()

	t.Run("additive plan has no danger", func(t *testing.T) {
		preflight := analyzer.AnalyzeStatements([]string{
			"CREATE TABLE `t` (`id` int NOT NULL);",
			"CREATE INDEX `i` ON `t` (`id`);",
		})
		assert.False(t, preflight.HasDestructive())
		assert.Len(t, preflight.Warnings, 1)
		assert.Equal(t, WarnCaution, preflight.Warnings[0].Level)
		assert.Contains(t, preflight.Warnings[0].Message, "Potentially blocking DDL")
	})

	t.Run("destructive statement raises danger", func(t *testing.T) {
		preflight := analyzer.AnalyzeStatements([]string{"TRUNCATE TABLE t;"})
		assert.True(t, preflight.HasDestructive())
		assert.Equal(t, "TRUNCATE TABLE t;", preflight.Warnings[0].SQL)
	})

	t.Run("empty input", func(t *testing.T) {
		preflight := analyzer.AnalyzeStatements(nil)
		assert.Empty(t, preflight.Warnings)
		assert.False(t, preflight.HasDestructive())
	})
}
