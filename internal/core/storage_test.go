package core

import (
	"context"
	"path/filepath"
	"testing"

	"hsecore/internal/infra/persistence/memory"
	"hsecore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreDefaultMemory(t *testing.T) {
	t.Setenv("HSE_STORAGE_DRIVER", "")
	store, err := OpenPersistentStore(nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	mem, ok := store.(*memory.Store)
	if !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
	if len(mem.RulesEngine().Rules()) != 2 {
		t.Fatalf("expected default rules on nil engine")
	}
}

func TestOpenPersistentStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.db")
	t.Setenv("HSE_STORAGE_DRIVER", "sqlite")
	t.Setenv("HSE_SQLITE_PATH", path)

	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	t.Cleanup(func() { _ = s.Close() })
	if s.Path() != path {
		t.Fatalf("expected path %s, got %s", path, s.Path())
	}

	svc := NewService(store)
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed sqlite-backed service: %v", err)
	}
	if got, err := svc.GetMedicine(context.Background(), "m1"); err != nil || got.Stock != 150 {
		t.Fatalf("expected seeded medicine, got %+v err=%v", got, err)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("HSE_STORAGE_DRIVER", "cassandra")
	if _, err := OpenPersistentStore(nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
