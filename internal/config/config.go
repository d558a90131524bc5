// Package config loads the schemasync configuration: a TOML file followed by
// SCHEMASYNC_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"schemasync/internal/core"
	"schemasync/internal/registry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCHEMASYNC_"

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "schemasync.toml"

// Config represents the application configuration.
type Config struct {
	StateFile   string       `toml:"state_file"`
	Logging     Logging      `toml:"logging"`
	Default     Connection   `toml:"default"`
	Connections []Connection `toml:"connections"`
	Schemas     []Schema     `toml:"schemas"`
}

// overrides holds the settings that can be set from the environment.
type overrides struct {
	StateFile string     `env:"STATE_FILE"`
	Logging   Logging    `envPrefix:"LOG_"`
	Default   Connection `envPrefix:"DEFAULT_"`
}

// Logging represents logging configuration.
type Logging struct {
	Level  string `toml:"level"  env:"LEVEL"`  // debug, info, warn, error
	Format string `toml:"format" env:"FORMAT"` // text, json
}

// Connection describes one target database. Prefix is prepended to every table
// name stored in that database.
type Connection struct {
	Name    string `toml:"name"`
	Dialect string `toml:"dialect" env:"DIALECT"`
	DSN     string `toml:"dsn"     env:"DSN"`
	Prefix  string `toml:"prefix"  env:"PREFIX"`
}

// Schema is one tracked schema source and the connection it is stored in.
// An empty connection selects the default connection.
type Schema struct {
	Source     string `toml:"source"`
	Connection string `toml:"connection"`
}

// Default returns the configuration used before any file or environment
// overrides are applied.
func Default() *Config {
	return &Config{
		StateFile: filepath.Join(".schemasync", "state.json"),
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Default: Connection{
			Name:    registry.DefaultConnection,
			Dialect: string(core.DialectMySQL),
		},
	}
}

// Load reads the configuration at path, applies environment overrides and
// validates the result. A missing file is only an error when required is set;
// otherwise defaults and the environment are used. Relative schema sources and
// the state file are resolved against the directory of path.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to load config file %s: unknown key %q", path, undecoded[0].String())
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	o := overrides{StateFile: cfg.StateFile, Logging: cfg.Logging, Default: cfg.Default}
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	cfg.StateFile, cfg.Logging, cfg.Default = o.StateFile, o.Logging, o.Default

	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	if dir == "" || dir == "." {
		return
	}
	if c.StateFile != "" && !filepath.IsAbs(c.StateFile) {
		c.StateFile = filepath.Join(dir, c.StateFile)
	}
	for i := range c.Schemas {
		if !filepath.IsAbs(c.Schemas[i].Source) {
			c.Schemas[i].Source = filepath.Join(dir, c.Schemas[i].Source)
		}
	}
}

// Validate validates the configuration for common errors.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}
	if c.StateFile == "" {
		return errors.New("state_file must not be empty")
	}

	if _, ok := core.ParseDialect(c.Default.Dialect); !ok {
		return fmt.Errorf("default.dialect: unsupported dialect %q", c.Default.Dialect)
	}

	seen := map[string]bool{registry.DefaultConnection: true}
	for i, conn := range c.Connections {
		name := strings.TrimSpace(conn.Name)
		if name == "" {
			return fmt.Errorf("connections[%d].name must not be empty", i)
		}
		if seen[name] {
			return fmt.Errorf("connections[%d].name: duplicate connection %q", i, name)
		}
		seen[name] = true
		if _, ok := core.ParseDialect(conn.Dialect); !ok {
			return fmt.Errorf("connections[%d].dialect: unsupported dialect %q", i, conn.Dialect)
		}
		if conn.DSN == "" {
			return fmt.Errorf("connections[%d].dsn must not be empty", i)
		}
	}

	for i, s := range c.Schemas {
		if strings.TrimSpace(s.Source) == "" {
			return fmt.Errorf("schemas[%d].source must not be empty", i)
		}
		if !seen[registry.NormalizeConnection(s.Connection)] {
			return fmt.Errorf("schemas[%d].connection: unknown connection %q", i, s.Connection)
		}
	}
	return nil
}

// Connection returns the connection selected by name. "" and "default" select
// the default connection.
func (c *Config) Connection(name string) (Connection, error) {
	name = registry.NormalizeConnection(name)
	if name == registry.DefaultConnection {
		conn := c.Default
		conn.Name = registry.DefaultConnection
		return conn, nil
	}
	for _, conn := range c.Connections {
		if conn.Name == name {
			return conn, nil
		}
	}
	return Connection{}, &core.ConfigError{
		Path:    "connection",
		Message: fmt.Sprintf("unknown connection %q", name),
	}
}

// DialectOf returns the parsed dialect of conn.
func (conn Connection) DialectOf() core.Dialect {
	d, _ := core.ParseDialect(conn.Dialect)
	return d
}
