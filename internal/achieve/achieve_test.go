package achieve

import (
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelsync/reelsync/internal/store"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	backend, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return NewLog(backend.RawDB(), log.New(os.Stderr, "[test] ", 0))
}

func TestRecordAndEntries(t *testing.T) {
	l := newTestLog(t)

	l.Record(KindWatchlistAdd, "550")
	l.Record(KindRatingSet, "550:9")
	l.Record(KindMoodSet, "cozy")

	entries, err := l.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Kind != KindWatchlistAdd || entries[0].Detail != "550" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[2].Kind != KindMoodSet {
		t.Errorf("entries not in insertion order: %+v", entries)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("expected a parsed timestamp")
	}
}

func TestRecordTimestamps(t *testing.T) {
	l := newTestLog(t)
	fixed := time.Date(2026, 5, 10, 14, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Record(KindHistoryView, "603")

	entries, err := l.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].CreatedAt.Equal(fixed) {
		t.Errorf("expected timestamp %v, got %v", fixed, entries[0].CreatedAt)
	}
}

func TestEmptyLog(t *testing.T) {
	l := newTestLog(t)
	entries, err := l.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty log, got %d entries", len(entries))
	}
}
