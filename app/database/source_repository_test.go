package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/memo-comb/app/source"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("Expected clean schema version 1, got %d (dirty=%t)", version, dirty)
	}

	return db
}

func testSources() []source.Descriptor {
	return []source.Descriptor{
		{ID: "alice", DisplayName: "Alice", Endpoint: "https://alice.example.com", Dialect: source.DialectLegacyAll},
		{ID: "blogs", DisplayName: "Blogs", Endpoint: "https://blogs.example.com/rss", Dialect: source.DialectXML},
	}
}

func TestSourceRepository_Sync(t *testing.T) {
	ctx := context.Background()
	repo := NewSourceRepository(setupTestDB(t))

	if err := repo.SyncSources(ctx, testSources()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	statuses, err := repo.ListSources(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(statuses))
	}
	if statuses[0].ID != "blogs" || statuses[0].Kind != "feed" {
		t.Errorf("Expected feed source first, got %s (%s)", statuses[0].ID, statuses[0].Kind)
	}
	if statuses[1].Dialect != string(source.DialectLegacyAll) {
		t.Errorf("Expected dialect memo-all, got %s", statuses[1].Dialect)
	}
	if statuses[1].LastFetchedAt != nil {
		t.Error("Expected no fetch history for a new source")
	}

	// Re-sync with one source dropped and one renamed.
	renamed := testSources()[:1]
	renamed[0].DisplayName = "Alice B."
	if err := repo.SyncSources(ctx, renamed); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	count, err := repo.GetSourceCount(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 source after prune, got %d", count)
	}

	alice, err := repo.GetSource(ctx, "alice")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if alice == nil || alice.Name != "Alice B." {
		t.Errorf("Expected renamed source, got %+v", alice)
	}
}

func TestSourceRepository_RecordFetch(t *testing.T) {
	ctx := context.Background()
	repo := NewSourceRepository(setupTestDB(t))
	fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	if err := repo.SyncSources(ctx, testSources()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := repo.RecordFetch(ctx, "alice", 200, 12, nil); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	alice, _ := repo.GetSource(ctx, "alice")
	if !alice.Healthy() {
		t.Error("Expected source to be healthy after success")
	}
	if alice.RecordCount != 12 || alice.LastStatus != 200 {
		t.Errorf("Expected 12 records with status 200, got %d / %d", alice.RecordCount, alice.LastStatus)
	}
	if alice.LastSuccessAt == nil || !alice.LastSuccessAt.Equal(fixed) {
		t.Errorf("Expected last success at %v, got %v", fixed, alice.LastSuccessAt)
	}

	if err := repo.RecordFetch(ctx, "alice", 503, 0, errors.New("HTTP error: 503 Service Unavailable")); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	alice, _ = repo.GetSource(ctx, "alice")
	if alice.Healthy() {
		t.Error("Expected source to be unhealthy after failure")
	}
	if alice.LastError != "HTTP error: 503 Service Unavailable" {
		t.Errorf("Unexpected last error: %s", alice.LastError)
	}
	if alice.RecordCount != 12 {
		t.Errorf("Expected record count of last success to be kept, got %d", alice.RecordCount)
	}
	if alice.LastSuccessAt == nil {
		t.Error("Expected last success to be kept after failure")
	}

	if err := repo.RecordFetch(ctx, "unknown", 200, 1, nil); err != nil {
		t.Errorf("Expected unknown source to be ignored, got: %v", err)
	}
}

func TestSourceRepository_GetMissing(t *testing.T) {
	repo := NewSourceRepository(setupTestDB(t))

	status, err := repo.GetSource(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if status != nil {
		t.Errorf("Expected nil for missing source, got %+v", status)
	}
}

func TestOpen_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "status.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer db.Close()

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Expected migrations to run, got: %v", err)
	}
	// Second run is a no-op.
	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Expected repeated migrations to succeed, got: %v", err)
	}
}
