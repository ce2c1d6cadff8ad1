// Package store persists session records as an opaque key-value map.
//
// Two backends exist: a local single-file JSON map and a synchronized SQLite
// database meant to live on a synced path (network share, sync folder). The
// Store front toggles between them; data written under one mode is invisible
// under the other, and no migration happens on switch. Values are opaque
// byte payloads; schema validation belongs to the caller.
package store

import (
	"context"
	"sync"
)

// Backend is a minimal async key-value surface. Get returns (nil, nil) for
// an absent key. Removal is modeled as setting the empty value.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store fronts a local and an optional synchronized backend. Each session
// owns its own Store instance; the mode toggle is per-instance, not global.
// Writes are serialized so two racing writers cannot tear a key.
type Store struct {
	mu     sync.Mutex
	local  Backend
	synced Backend
	useSyn bool
}

// New builds a Store defaulting to the local backend. synced may be nil when
// synchronized storage is not configured; UseSync is then a no-op.
func New(local, synced Backend) *Store {
	return &Store{local: local, synced: synced}
}

// UseSync switches reads and writes to the synchronized backend. Callers are
// expected to flip this once during startup, before session data is read.
func (s *Store) UseSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synced != nil {
		s.useSyn = true
	}
}

// UseLocal switches reads and writes back to the local backend.
func (s *Store) UseLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useSyn = false
}

// Get reads a key from the active backend. Absent keys yield (nil, nil).
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	backend := s.active()
	s.mu.Unlock()
	return backend.Get(ctx, key)
}

// Set writes a key to the active backend.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active().Set(ctx, key, value)
}

// Remove clears a key by writing the empty value.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.Set(ctx, key, nil)
}

func (s *Store) active() Backend {
	if s.useSyn {
		return s.synced
	}
	return s.local
}
