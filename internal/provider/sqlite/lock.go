package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

var (
	locksMu sync.Mutex
	locks   = make(map[string]chan struct{})
)

// Lock implements provider.Locker with process-local locks by key. SQLite has no
// advisory locks; across processes its own file locking applies.
type Lock struct{}

// NewLock returns a Lock. Every Lock shares the same keyed locks.
func NewLock() *Lock {
	return &Lock{}
}

// Acquire blocks until the lock for key is held or ctx is done.
func (l *Lock) Acquire(ctx context.Context, key string) (func(), error) {
	locksMu.Lock()
	sem, ok := locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		locks[key] = sem
	}
	locksMu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire sqlite lock: %w", ctx.Err())
	}

	var once sync.Once
	return func() { once.Do(func() { <-sem }) }, nil
}

// LockKey returns the absolute path of the database file named by dsn. In-memory
// databases are keyed by the DSN itself.
func LockKey(dsn string) (string, error) {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" {
		return dsn, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve sqlite path: %w", err)
	}
	return abs, nil
}
