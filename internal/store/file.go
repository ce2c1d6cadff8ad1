package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps the whole key space in one JSON file, loaded at open and
// rewritten on every Set. Fast enough for the handful of small records a
// session persists.
type FileBackend struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// OpenFile loads (or initializes) the JSON map at path.
func OpenFile(path string) (*FileBackend, error) {
	b := &FileBackend{path: path, values: map[string]string{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(data, &b.values); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	return b, nil
}

// Get returns the stored value, or (nil, nil) when the key is absent.
func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value, ok := b.values[key]
	if !ok {
		return nil, nil
	}
	return []byte(value), nil
}

// Set stores the value and rewrites the backing file atomically.
func (b *FileBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[key] = string(value)
	return b.flush()
}

// flush writes via a temp file and rename so a crash mid-write cannot leave
// a truncated state file. Caller holds b.mu.
func (b *FileBackend) flush() error {
	data, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
