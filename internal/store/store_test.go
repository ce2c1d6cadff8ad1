package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestFileBackend_RoundTripAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "local.json")

	b, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}

	got, err := b.Get(ctx, "config")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("Get(absent) = %q, want nil", got)
	}

	if err := b.Set(ctx, "config", []byte(`{"baseURL":"https://x"}`)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	// A fresh open must see what was flushed to disk.
	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile(reopen) returned error: %v", err)
	}
	got, err = reopened.Get(ctx, "config")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != `{"baseURL":"https://x"}` {
		t.Fatalf("Get after reload = %q, want stored value", got)
	}
}

func TestStore_RemoveWritesEmptyValue(t *testing.T) {
	ctx := context.Background()
	b, err := OpenFile(filepath.Join(t.TempDir(), "local.json"))
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	s := New(b, nil)

	if err := s.Set(ctx, "state", []byte(`{"view":"issue"}`)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Remove(ctx, "state"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	got, err := s.Get(ctx, "state")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Get after Remove = %q, want empty", got)
	}
}

func TestStore_ModesDoNotShareKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	local, err := OpenFile(filepath.Join(dir, "local.json"))
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	synced, err := OpenSQLite(filepath.Join(dir, "sync.db"))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = synced.Close() })

	s := New(local, synced)
	if err := s.Set(ctx, "config", []byte("local-copy")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	s.UseSync()
	got, err := s.Get(ctx, "config")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("sync Get = %q, want nil; keys must not migrate between modes", got)
	}

	if err := s.Set(ctx, "config", []byte("sync-copy")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	s.UseLocal()
	got, err = s.Get(ctx, "config")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != "local-copy" {
		t.Fatalf("local Get = %q, want local-copy", got)
	}
}

func TestSQLiteBackend_RevisionChangesPerWrite(t *testing.T) {
	ctx := context.Background()
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	if err := b.Set(ctx, "state", []byte("one")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	rev1, err := b.Revision(ctx, "state")
	if err != nil {
		t.Fatalf("Revision returned error: %v", err)
	}
	if rev1 == "" {
		t.Fatal("Revision = empty, want a revision id")
	}

	if err := b.Set(ctx, "state", []byte("two")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	rev2, err := b.Revision(ctx, "state")
	if err != nil {
		t.Fatalf("Revision returned error: %v", err)
	}
	if rev2 == rev1 {
		t.Fatalf("Revision unchanged across writes: %q", rev2)
	}

	got, err := b.Get(ctx, "state")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("Get = %q, want two", got)
	}
}

func TestStore_UseSyncWithoutBackendStaysLocal(t *testing.T) {
	ctx := context.Background()
	local, err := OpenFile(filepath.Join(t.TempDir(), "local.json"))
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	s := New(local, nil)
	s.UseSync()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("Get = %q, want v", got)
	}
}
