// Package provider defines the dialect-specific capability the reconciler works
// against: a read-only snapshot of live metadata, the dialect's matching rules and
// its DDL emitter. Dialect implementations register themselves from init.
package provider

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"schemasync/internal/core"
)

// Metadata answers "what exists" questions about the live database. Table names
// are given without the connection prefix.
type Metadata interface {
	HasTable(table string) bool
	HasColumn(table, column string) bool
	HasIndex(table, index string) bool
	Column(table, column string) *core.ObservedColumn
	Index(table, index string) *core.ObservedIndex
}

// Matcher encapsulates how a dialect compares observed metadata to definitions.
// With typeOnly set, defaults, nullability and auto-increment are ignored.
type Matcher interface {
	ColumnMatches(observed *core.ObservedColumn, desired *core.ColumnDefinition, typeOnly bool) bool
	IndexMatches(observed *core.ObservedIndex, desired *core.IndexDefinition) bool
}

// Emitter renders DDL statements. Table names are given without the connection
// prefix; the emitter adds it. No emitter produces DROP TABLE or DROP COLUMN.
type Emitter interface {
	CreateTable(e *core.EntityDefinition) (string, error)
	CreateColumn(table string, c *core.ColumnDefinition) (string, error)
	AlterColumn(table string, c *core.ColumnDefinition) (string, error)
	CreateIndex(table string, idx *core.IndexDefinition) (string, error)
	DropIndex(table string, idx *core.IndexDefinition) (string, error)
}

// Provider is the full dialect capability for one target database.
type Provider interface {
	Metadata
	Matcher
	Emitter
	Dialect() core.Dialect
}

// Locker serializes reconciliation of one database across processes.
type Locker interface {
	// Acquire obtains the lock for key. The returned release function must be
	// called to release it.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Driver describes a registered dialect implementation.
type Driver struct {
	// DriverName is the database/sql driver to open connections with.
	DriverName string

	// Load snapshots the metadata of db, keeping only tables whose names start
	// with prefix, and returns a provider over that snapshot.
	Load func(ctx context.Context, db *sql.DB, prefix string) (Provider, error)

	// NewLocker returns the lock used to serialize runs against db.
	NewLocker func(db *sql.DB) Locker

	// LockKey names the database a DSN points at, so differently named
	// connections to one database share a lock. Nil keys locks by connection
	// name.
	LockKey func(dsn string) (string, error)

	// ErrorCode extracts the server error code from a driver error, or "".
	ErrorCode func(err error) string
}

var (
	registry = make(map[core.Dialect]Driver)
	mu       sync.RWMutex
)

// Register makes a dialect implementation available.
func Register(dialect core.Dialect, d Driver) {
	mu.Lock()
	defer mu.Unlock()
	registry[dialect] = d
}

// Lookup returns the implementation registered for dialect.
func Lookup(dialect core.Dialect) (Driver, error) {
	mu.RLock()
	d, ok := registry[dialect]
	mu.RUnlock()

	if !ok {
		return Driver{}, fmt.Errorf("unsupported dialect %v", dialect)
	}
	return d, nil
}

// Open connects to a database with the driver registered for dialect and
// verifies the connection.
func Open(ctx context.Context, dialect core.Dialect, dsn string) (*sql.DB, error) {
	d, err := Lookup(dialect)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, Wrap(dialect, "open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Wrap(dialect, "ping", err)
	}
	return db, nil
}

// Wrap turns a database error into a *core.ProviderError, attaching the driver
// error code when the dialect's driver can extract one.
func Wrap(dialect core.Dialect, op string, err error) error {
	if err == nil {
		return nil
	}
	pe := &core.ProviderError{Dialect: dialect, Op: op, Err: err}
	if d, lerr := Lookup(dialect); lerr == nil && d.ErrorCode != nil {
		pe.Code = d.ErrorCode(err)
	}
	return pe
}

// Load snapshots db with the implementation registered for dialect.
func Load(ctx context.Context, dialect core.Dialect, db *sql.DB, prefix string) (Provider, error) {
	d, err := Lookup(dialect)
	if err != nil {
		return nil, err
	}
	return d.Load(ctx, db, prefix)
}
