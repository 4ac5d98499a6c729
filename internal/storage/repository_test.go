package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"wisma/internal/storage"
	"wisma/internal/storage/storetest"
)

func newTestRepository(t *testing.T) storage.Store {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "wisma.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryContract(t *testing.T) {
	storetest.Run(t, newTestRepository)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wisma.db")
	first, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	first.Close()

	second, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if err := second.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
