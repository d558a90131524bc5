package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemasync/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemasync.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleConfig = `
state_file = "state/sync.json"

[logging]
level = "debug"
format = "json"

[default]
dialect = "mysql"
dsn = "root:pw@tcp(localhost:3306)/app"
prefix = "app_"

[[connections]]
name = "reporting"
dialect = "postgres"
dsn = "postgres://localhost/reports"

[[schemas]]
source = "schema/core.json"

[[schemas]]
source = "/abs/reports.yaml"
connection = "reporting"
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	dir := filepath.Dir(path)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "state", "sync.json"), cfg.StateFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "app_", cfg.Default.Prefix)
	require.Len(t, cfg.Schemas, 2)
	assert.Equal(t, filepath.Join(dir, "schema", "core.json"), cfg.Schemas[0].Source)
	assert.Equal(t, "/abs/reports.yaml", cfg.Schemas[1].Source)

	conn, err := cfg.Connection("reporting")
	require.NoError(t, err)
	assert.Equal(t, core.DialectPostgreSQL, conn.DialectOf())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("SCHEMASYNC_LOG_LEVEL", "warn")
	t.Setenv("SCHEMASYNC_DEFAULT_DSN", "file:app.db")
	t.Setenv("SCHEMASYNC_DEFAULT_DIALECT", "sqlite3")
	t.Setenv("SCHEMASYNC_STATE_FILE", "/tmp/state.json")

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "file:app.db", cfg.Default.DSN)
	assert.Equal(t, core.DialectSQLite, cfg.Default.DialectOf())
	assert.Equal(t, "app_", cfg.Default.Prefix)
	assert.Equal(t, "/tmp/state.json", cfg.StateFile)
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	t.Run("optional", func(t *testing.T) {
		cfg, err := Load(path, false)
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, core.DialectMySQL, cfg.Default.DialectOf())
		assert.Empty(t, cfg.Schemas)
	})

	t.Run("required", func(t *testing.T) {
		_, err := Load(path, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config file")
	})
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "state_fiel = \"x\"\n")
	_, err := Load(path, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state_fiel")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"empty state file", func(c *Config) { c.StateFile = "" }, "state_file"},
		{"bad default dialect", func(c *Config) { c.Default.Dialect = "oracle" }, "default.dialect"},
		{
			name: "unnamed connection",
			mutate: func(c *Config) {
				c.Connections = []Connection{{Dialect: "mysql", DSN: "x"}}
			},
			wantErr: "connections[0].name",
		},
		{
			name: "connection named default",
			mutate: func(c *Config) {
				c.Connections = []Connection{{Name: "default", Dialect: "mysql", DSN: "x"}}
			},
			wantErr: "duplicate connection",
		},
		{
			name: "connection without dsn",
			mutate: func(c *Config) {
				c.Connections = []Connection{{Name: "r", Dialect: "mysql"}}
			},
			wantErr: "connections[0].dsn",
		},
		{
			name: "schema on unknown connection",
			mutate: func(c *Config) {
				c.Schemas = []Schema{{Source: "a.json", Connection: "nowhere"}}
			},
			wantErr: "unknown connection",
		},
		{
			name: "schema without source",
			mutate: func(c *Config) {
				c.Schemas = []Schema{{Source: " "}}
			},
			wantErr: "schemas[0].source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnection(t *testing.T) {
	cfg := Default()
	cfg.Default.DSN = "dsn"
	cfg.Connections = []Connection{{Name: "other", Dialect: "sqlite", DSN: "file:x.db"}}

	for _, name := range []string{"", "default"} {
		conn, err := cfg.Connection(name)
		require.NoError(t, err)
		assert.Equal(t, "default", conn.Name)
		assert.Equal(t, "dsn", conn.DSN)
	}

	conn, err := cfg.Connection("other")
	require.NoError(t, err)
	assert.Equal(t, core.DialectSQLite, conn.DialectOf())

	_, err = cfg.Connection("missing")
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "missing")
}
