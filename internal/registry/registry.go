// Package registry holds compiled schemas keyed by connection and schema name so
// that one schema can reference entities declared in another.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"schemasync/internal/core"
)

// DefaultConnection is the identifier of the default configured connection.
const DefaultConnection = "default"

// Key identifies a compiled schema.
type Key struct {
	Connection string
	Schema     string
}

// Registry is an append-only table of resolved schemas. Entries are never removed
// or replaced.
type Registry struct {
	mu      sync.RWMutex
	schemas map[Key]*core.SchemaDefinition
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{schemas: make(map[Key]*core.SchemaDefinition)}
}

// NormalizeConnection maps "" to DefaultConnection.
func NormalizeConnection(connection string) string {
	if connection == "" {
		return DefaultConnection
	}
	return connection
}

func makeKey(connection, schema string) Key {
	return Key{Connection: NormalizeConnection(connection), Schema: strings.ToLower(schema)}
}

// Register adds a schema under the given connection. Registering a second schema
// with the same name on the same connection is an error.
func (r *Registry) Register(connection string, s *core.SchemaDefinition) error {
	k := makeKey(connection, s.Name)
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.schemas[k]; ok {
		if prev == s {
			return nil
		}
		return &core.ConfigError{
			Source:  s.Source,
			Path:    "schema.name",
			Message: fmt.Sprintf("schema %q is already registered for connection %q by %s", s.Name, k.Connection, prev.Source),
		}
	}
	r.schemas[k] = s
	return nil
}

// Lookup returns the schema registered under connection and name, or nil.
func (r *Registry) Lookup(connection, name string) *core.SchemaDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[makeKey(connection, name)]
}

// Keys returns the registered keys in a stable order.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.schemas))
	for k := range r.schemas {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Connection != keys[j].Connection {
			return keys[i].Connection < keys[j].Connection
		}
		return keys[i].Schema < keys[j].Schema
	})
	return keys
}
