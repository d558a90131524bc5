// Package sqlite implements the SQLite provider on top of mattn/go-sqlite3.
// Metadata comes from sqlite_master and the table_info, index_list and index_info
// pragmas. SQLite cannot change a column in place, so AlterColumn always fails.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"schemasync/internal/core"
	"schemasync/internal/provider"
)

func init() {
	provider.Register(core.DialectSQLite, provider.Driver{
		DriverName: "sqlite3",
		Load: func(ctx context.Context, db *sql.DB, prefix string) (provider.Provider, error) {
			return Load(ctx, db, prefix)
		},
		NewLocker: func(*sql.DB) provider.Locker { return NewLock() },
		LockKey:   LockKey,
		ErrorCode: ErrorCode,
	})
}

// Provider is a SQLite metadata snapshot plus the SQLite matcher and emitter.
type Provider struct {
	*provider.Snapshot
}

// New returns a provider over an existing snapshot.
func New(snap *provider.Snapshot) *Provider {
	return &Provider{Snapshot: snap}
}

// Load reads every table of the main database with its columns and indexes.
func Load(ctx context.Context, db *sql.DB, prefix string) (*Provider, error) {
	snap := provider.NewSnapshot(prefix)
	tables, err := loadTables(ctx, db, snap)
	if err != nil {
		return nil, wrap("load tables", err)
	}
	for _, t := range tables {
		if err := loadColumns(ctx, db, t); err != nil {
			return nil, wrap("load columns", err)
		}
		if err := loadIndexes(ctx, db, snap, t); err != nil {
			return nil, wrap("load indexes", err)
		}
	}
	return New(snap), nil
}

// Dialect implements provider.Provider.
func (p *Provider) Dialect() core.Dialect { return core.DialectSQLite }

// ErrorCode returns the SQLite result code carried by err, or "".
func ErrorCode(err error) string {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return strconv.Itoa(int(se.Code))
	}
	return ""
}

func wrap(op string, err error) error {
	return &core.ProviderError{Dialect: core.DialectSQLite, Op: op, Code: ErrorCode(err), Err: err}
}
