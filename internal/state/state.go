// Package state persists the modification times of schema sources between runs
// so that unchanged schemas are not reconciled again.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"
)

// Sources maps a schema source path to its last seen modification time.
type Sources map[string]time.Time

// Equal reports whether s and other track the same sources with the same times.
func (s Sources) Equal(other Sources) bool {
	return maps.EqualFunc(s, other, func(a, b time.Time) bool { return a.Equal(b) })
}

// Stat reads the current modification time of every path.
func Stat(paths []string) (Sources, error) {
	out := make(Sources, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat schema source: %w", err)
		}
		out[p] = info.ModTime().UTC()
	}
	return out, nil
}

// FileStore keeps Sources in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads and writes.
func (f *FileStore) Path() string { return f.path }

type document struct {
	Version int     `json:"version"`
	Sources Sources `json:"sources"`
}

const documentVersion = 1

// Load returns the saved sources. A missing file yields an empty set; an
// unreadable or corrupt file is an error and callers treat it as empty.
func (f *FileStore) Load() (Sources, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Sources{}, nil
	}
	if err != nil {
		return Sources{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Sources{}, fmt.Errorf("failed to parse state file %s: %w", f.path, err)
	}
	if doc.Version != documentVersion {
		return Sources{}, fmt.Errorf("state file %s has unsupported version %d", f.path, doc.Version)
	}
	if doc.Sources == nil {
		doc.Sources = Sources{}
	}
	return doc.Sources, nil
}

// Save writes sources atomically, replacing the previous file.
func (f *FileStore) Save(sources Sources) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(document{Version: documentVersion, Sources: sources}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
