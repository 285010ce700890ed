package memory

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	tmpDir, err := os.MkdirTemp("", "taskmate-memory-test")
	if err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatal(err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func sampleLog(store Store) *Log {
	log := NewLog(store)
	log.Record("Research AI trends", StatusStarted, nil, "", map[string]any{"agent": "researcher"})
	log.Record("Research AI trends", StatusCompleted, map[string]any{"sources": 5, "insights": 12}, "", map[string]any{"agent": "researcher"})
	log.Record("Build web scraper", StatusStarted, nil, "", map[string]any{"agent": "developer"})
	log.Record("Build web scraper", StatusFailed, nil, "Connection timeout", map[string]any{"agent": "developer"})
	log.Record("Analyze data", StatusCompleted, map[string]any{"rows_processed": 1000}, "", map[string]any{"agent": "analyst"})
	return log
}

func TestRecordAndAll(t *testing.T) {
	log := NewLog(nil)

	entry := log.Record("Calculate totals", StatusCompleted, 30.0, "", nil)
	if entry.ID == "" {
		t.Error("Entry ID should not be empty")
	}
	if entry.Timestamp.IsZero() {
		t.Error("Entry timestamp should be set")
	}

	all := log.All()
	if len(all) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(all))
	}
	if all[0].Task != "Calculate totals" || all[0].Result != 30.0 {
		t.Errorf("Entry mismatch: %+v", all[0])
	}

	// All returns a copy
	all[0].Task = "mutated"
	if log.All()[0].Task != "Calculate totals" {
		t.Error("All should return a copy")
	}
}

func TestFilters(t *testing.T) {
	log := sampleLog(nil)

	failed := log.FilterByStatus(StatusFailed)
	if len(failed) != 1 || failed[0].Error != "Connection timeout" {
		t.Errorf("Unexpected failed entries: %+v", failed)
	}

	research := log.FilterByTask("RESEARCH")
	if len(research) != 2 {
		t.Errorf("Expected 2 research entries, got %d", len(research))
	}

	if got := log.FilterByTask("nothing like this"); len(got) != 0 {
		t.Errorf("Expected no entries, got %d", len(got))
	}
}

func TestRecent(t *testing.T) {
	log := sampleLog(nil)

	recent := log.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(recent))
	}
	if recent[0].Task != "Build web scraper" || recent[2].Task != "Analyze data" {
		t.Errorf("Recent entries out of order: %s .. %s", recent[0].Task, recent[2].Task)
	}

	if got := log.Recent(100); len(got) != 5 {
		t.Errorf("Recent beyond length should return all, got %d", len(got))
	}
	if got := log.Recent(0); len(got) != 0 {
		t.Errorf("Recent(0) should be empty, got %d", len(got))
	}
}

func TestSummary(t *testing.T) {
	if s := NewLog(nil).Summary(); s != (Summary{}) {
		t.Errorf("Empty summary should be zero, got %+v", s)
	}

	s := sampleLog(nil).Summary()
	want := Summary{Total: 5, Completed: 2, Failed: 1, Started: 2}
	if s != want {
		t.Errorf("Summary mismatch: expected %+v, got %+v", want, s)
	}
}

func TestClear(t *testing.T) {
	log := sampleLog(nil)
	if err := log.Clear(); err != nil {
		t.Fatal(err)
	}
	if log.Len() != 0 {
		t.Errorf("Expected empty log after clear, got %d", log.Len())
	}
}

func TestExportImportJSON(t *testing.T) {
	log := sampleLog(nil)
	path := filepath.Join(t.TempDir(), "memory_audit.json")

	if err := log.ExportJSON(path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	restored := NewLog(nil)
	restored.Record("will be replaced", StatusStarted, nil, "", nil)
	if err := restored.ImportJSON(path); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	got := restored.All()
	if len(got) != 5 {
		t.Fatalf("Expected 5 imported entries, got %d", len(got))
	}
	if got[3].Error != "Connection timeout" || got[3].Status != StatusFailed {
		t.Errorf("Imported entry mismatch: %+v", got[3])
	}
	if got[4].Metadata["agent"] != "analyst" {
		t.Errorf("Metadata not restored: %+v", got[4].Metadata)
	}
	if restored.Summary() != log.Summary() {
		t.Error("Summary should survive export/import")
	}

	// Empty log exports an empty array
	emptyPath := filepath.Join(t.TempDir(), "empty.json")
	if err := NewLog(nil).ExportJSON(emptyPath); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(emptyPath)
	if string(data) != "[]" {
		t.Errorf("Expected [], got %s", data)
	}

	if err := restored.ImportJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Importing a missing file should fail")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	before := time.Now()
	sampleLog(store)

	entries, err := store.ListEntries(0)
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Task != "Research AI trends" || first.Status != StatusStarted {
		t.Errorf("First entry mismatch: %+v", first)
	}
	if first.Result != nil {
		t.Errorf("Nil result should stay nil, got %v", first.Result)
	}
	if first.Timestamp.Before(before.Add(-time.Second)) {
		t.Errorf("Timestamp not restored: %v", first.Timestamp)
	}

	// JSON round trip turns numbers into float64
	result, ok := entries[1].Result.(map[string]any)
	if !ok || result["sources"] != 5.0 {
		t.Errorf("Result not restored: %#v", entries[1].Result)
	}
	if entries[3].Error != "Connection timeout" {
		t.Errorf("Error not restored: %q", entries[3].Error)
	}
}

func TestSQLiteStoreLimit(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	sampleLog(store)

	entries, err := store.ListEntries(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	// Most recent two, oldest first
	if entries[0].Status != StatusFailed || entries[1].Task != "Analyze data" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}

func TestLogLoadAndClearWithStore(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	sampleLog(store)

	reloaded := NewLog(store)
	n, err := reloaded.Load(0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n != 5 || reloaded.Len() != 5 {
		t.Errorf("Expected 5 loaded entries, got %d", n)
	}
	if s := reloaded.Summary(); s.Failed != 1 || s.Completed != 2 {
		t.Errorf("Unexpected summary after load: %+v", s)
	}

	if err := reloaded.Clear(); err != nil {
		t.Fatal(err)
	}
	entries, err := store.ListEntries(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Store should be empty after clear, got %d", len(entries))
	}

	if _, err := NewLog(nil).Load(0); err == nil {
		t.Error("Load without a store should fail")
	}
}
