// Package postgres implements the PostgreSQL provider on top of pgx's database/sql
// driver. Tables and indexes are read from the current schema only.
//
// PostgreSQL index names share one namespace per schema, so index names carry the
// connection prefix in the database and have it stripped in the snapshot.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"schemasync/internal/core"
	"schemasync/internal/provider"
)

func init() {
	provider.Register(core.DialectPostgreSQL, provider.Driver{
		DriverName: "pgx",
		Load: func(ctx context.Context, db *sql.DB, prefix string) (provider.Provider, error) {
			return Load(ctx, db, prefix)
		},
		NewLocker: func(db *sql.DB) provider.Locker { return NewLock(db) },
		LockKey:   LockKey,
		ErrorCode: ErrorCode,
	})
}

// Provider is a PostgreSQL metadata snapshot plus the PostgreSQL matcher and emitter.
type Provider struct {
	*provider.Snapshot
}

// New returns a provider over an existing snapshot.
func New(snap *provider.Snapshot) *Provider {
	return &Provider{Snapshot: snap}
}

// Load reads the tables, columns and non-primary indexes of the current schema.
func Load(ctx context.Context, db *sql.DB, prefix string) (*Provider, error) {
	snap := provider.NewSnapshot(prefix)
	if err := loadTables(ctx, db, snap); err != nil {
		return nil, wrap("load tables", err)
	}
	if err := loadColumns(ctx, db, snap); err != nil {
		return nil, wrap("load columns", err)
	}
	if err := loadPrimaryKeys(ctx, db, snap); err != nil {
		return nil, wrap("load primary keys", err)
	}
	if err := loadIndexes(ctx, db, snap); err != nil {
		return nil, wrap("load indexes", err)
	}
	return New(snap), nil
}

// Dialect implements provider.Provider.
func (p *Provider) Dialect() core.Dialect { return core.DialectPostgreSQL }

// ErrorCode returns the SQLSTATE carried by err, or "".
func ErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func wrap(op string, err error) error {
	return &core.ProviderError{Dialect: core.DialectPostgreSQL, Op: op, Code: ErrorCode(err), Err: err}
}
