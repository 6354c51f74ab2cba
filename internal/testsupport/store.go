package testsupport

import (
	"context"
	"testing"

	"triage/internal/config"
	"triage/internal/logging"
	"triage/internal/media"
	"triage/internal/records"
)

// MustOpenStore opens a records.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *records.Store {
	t.Helper()

	store, err := records.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("records.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddFile inserts a pending record classified from the file name.
func AddFile(t testing.TB, store *records.Store, path string, size int64) int64 {
	t.Helper()

	kind, ok := media.DefaultClassifier().ClassifyName(path)
	if !ok {
		kind = media.Document
	}
	id, err := store.AddFile(context.Background(), records.NewFile{Filepath: path, MediaType: kind, FileSize: size})
	if err != nil {
		t.Fatalf("store.AddFile: %v", err)
	}
	return id
}

// MustStatus fails the test unless path is recorded with the wanted status.
func MustStatus(t testing.TB, store *records.Store, path string, want records.Status) {
	t.Helper()

	rec := store.GetFile(context.Background(), path)
	if rec == nil {
		t.Fatalf("expected record for %s", path)
	}
	if rec.Status != want {
		t.Fatalf("%s: status %q, want %q", path, rec.Status, want)
	}
}
