package mysql

import (
	"context"
	"database/sql"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"schemasync/internal/core"
)

// lockTimeout is how long GET_LOCK waits, in seconds.
const lockTimeout = 60

// maxLockNameLength is the longest name GET_LOCK accepts.
const maxLockNameLength = 64

// LockKey returns the server address and database named by dsn.
func LockKey(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	return fmt.Sprintf("%s(%s)/%s", cfg.Net, cfg.Addr, cfg.DBName), nil
}

// Lock implements provider.Locker with MySQL named locks. Named locks belong to a
// session, so the lock holds a dedicated connection until released.
type Lock struct {
	db *sql.DB
}

// NewLock creates a new Lock.
func NewLock(db *sql.DB) *Lock {
	return &Lock{db: db}
}

// Acquire obtains the named lock for key.
func (l *Lock) Acquire(ctx context.Context, key string) (func(), error) {
	name := core.ShortenIdentifier(key, maxLockNameLength)

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, wrap("acquire lock", err)
	}

	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", name, lockTimeout).Scan(&got); err != nil {
		_ = conn.Close()
		return nil, wrap("acquire lock", err)
	}
	if !got.Valid || got.Int64 != 1 {
		_ = conn.Close()
		return nil, wrap("acquire lock", fmt.Errorf("GET_LOCK(%q) timed out after %ds", name, lockTimeout))
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT RELEASE_LOCK(?)", name)
		_ = conn.Close()
	}
	return release, nil
}
