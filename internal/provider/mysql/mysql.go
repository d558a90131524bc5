// Package mysql implements the MySQL provider: metadata snapshots read from
// information_schema, MySQL's type-aliasing rules and MySQL DDL.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"

	"schemasync/internal/core"
	"schemasync/internal/provider"
)

func init() {
	provider.Register(core.DialectMySQL, provider.Driver{
		DriverName: "mysql",
		Load: func(ctx context.Context, db *sql.DB, prefix string) (provider.Provider, error) {
			return Load(ctx, db, prefix)
		},
		NewLocker: func(db *sql.DB) provider.Locker { return NewLock(db) },
		LockKey:   LockKey,
		ErrorCode: errorCode,
	})
}

// Provider is a MySQL metadata snapshot plus the MySQL matcher and emitter.
type Provider struct {
	*provider.Snapshot
}

// New returns a provider over an existing snapshot.
func New(snap *provider.Snapshot) *Provider {
	return &Provider{Snapshot: snap}
}

// Load reads every table, column and non-primary index of the current database.
func Load(ctx context.Context, db *sql.DB, prefix string) (*Provider, error) {
	snap := provider.NewSnapshot(prefix)
	if err := loadTables(ctx, db, snap); err != nil {
		return nil, wrap("load tables", err)
	}
	if err := loadColumns(ctx, db, snap); err != nil {
		return nil, wrap("load columns", err)
	}
	if err := loadIndexes(ctx, db, snap); err != nil {
		return nil, wrap("load indexes", err)
	}
	return New(snap), nil
}

// Dialect implements provider.Provider.
func (p *Provider) Dialect() core.Dialect { return core.DialectMySQL }

func wrap(op string, err error) error {
	return &core.ProviderError{Dialect: core.DialectMySQL, Op: op, Code: errorCode(err), Err: err}
}

func errorCode(err error) string {
	if n := ErrorNumber(err); n != 0 {
		return strconv.Itoa(int(n))
	}
	return ""
}

// ErrorNumber returns the server error number carried by err, or 0.
func ErrorNumber(err error) uint16 {
	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}
