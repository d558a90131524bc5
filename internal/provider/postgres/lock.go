package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgconn"
)

// LockKey returns the host, port and database named by dsn.
func LockKey(dsn string) (string, error) {
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("parse postgres dsn: %w", err)
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database), nil
}

// Lock implements provider.Locker with session-level advisory locks. The lock is
// taken and released on one dedicated connection, since advisory locks belong to
// the session that took them.
type Lock struct {
	db *sql.DB
}

// NewLock creates a new Lock.
func NewLock(db *sql.DB) *Lock {
	return &Lock{db: db}
}

// Acquire blocks until the advisory lock for key is held or ctx is done.
func (l *Lock) Acquire(ctx context.Context, key string) (func(), error) {
	id := hashLockKey(key)

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, wrap("acquire lock", err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", id); err != nil {
		_ = conn.Close()
		return nil, wrap("acquire lock", err)
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", id)
		_ = conn.Close()
	}
	return release, nil
}

// hashLockKey maps key to a stable non-negative int64 for pg_advisory_lock.
func hashLockKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}
