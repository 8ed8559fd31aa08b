// ABOUTME: Key-value session storage backends for the client
// ABOUTME: Provides an in-memory store and an atomic JSON file store

package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage is an opaque key-value store holding the persisted session
// triple. Replace writes the full set atomically: readers never observe a
// partially-updated session.
type Storage interface {
	// Load returns the stored key-value set. A missing backing store is
	// not an error; it returns an empty map.
	Load() (map[string]string, error)

	// Replace atomically replaces the entire stored set.
	Replace(map[string]string) error
}

// MemoryStorage is an in-memory Storage for tests and short-lived clients.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Load returns a copy of the stored values.
func (m *MemoryStorage) Load() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

// Replace atomically replaces the stored values.
func (m *MemoryStorage) Replace(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = make(map[string]string, len(values))
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// FileStorage persists the session as a JSON file. Writes go through a
// temp file followed by rename so a crash never leaves a torn session.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage creates a FileStorage at the given path. Parent
// directories are created on first write.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load reads the stored key-value set from disk.
func (f *FileStorage) Load() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return values, nil
}

// Replace atomically rewrites the session file.
func (f *FileStorage) Replace(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}
