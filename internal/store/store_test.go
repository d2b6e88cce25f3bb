package store

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/reelsync/reelsync/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backend, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	st := New(backend, log.New(os.Stderr, "[test] ", 0))
	t.Cleanup(func() { st.Close() })
	return st
}

func movie(id int, title string) model.MovieRef {
	return model.MovieRef{ID: id, Title: title}
}

func TestWatchlistAddIsIdempotent(t *testing.T) {
	st := newTestStore(t)

	if err := st.AddToWatchlist(movie(550, "Fight Club")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := st.AddToWatchlist(movie(550, "Fight Club")); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	u := st.GetAll()
	if len(u.Watchlist) != 1 {
		t.Errorf("expected 1 watchlist entry, got %d", len(u.Watchlist))
	}
}

func TestWatchlistRemoveAbsentIsNoop(t *testing.T) {
	st := newTestStore(t)
	if err := st.RemoveFromWatchlist(999); err != nil {
		t.Fatalf("remove of absent id should be a no-op, got %v", err)
	}
}

func TestToggleFavorite(t *testing.T) {
	st := newTestStore(t)

	added, err := st.ToggleFavorite(movie(603, "The Matrix"))
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !added {
		t.Error("first toggle should add")
	}
	if !st.GetAll().InFavorites(603) {
		t.Error("movie should be in favorites")
	}

	added, err = st.ToggleFavorite(movie(603, "The Matrix"))
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if added {
		t.Error("second toggle should remove")
	}
	if st.GetAll().InFavorites(603) {
		t.Error("movie should no longer be in favorites")
	}
}

func TestSetRatingRejectsOutOfRange(t *testing.T) {
	st := newTestStore(t)

	if err := st.SetRating(550, 8); err != nil {
		t.Fatalf("valid rating failed: %v", err)
	}
	for _, bad := range []int{0, -1, 11} {
		if err := st.SetRating(550, bad); err == nil {
			t.Errorf("rating %d should be rejected", bad)
		}
	}
	// Prior value survives the rejected writes.
	if got := st.GetAll().Ratings[550].Value; got != 8 {
		t.Errorf("expected prior rating 8 to survive, got %d", got)
	}
}

func TestViewHistoryMoveToFront(t *testing.T) {
	st := newTestStore(t)

	for _, id := range []int{1, 2, 3, 2} {
		if err := st.AddToViewHistory(id); err != nil {
			t.Fatalf("add view %d failed: %v", id, err)
		}
	}
	got := st.GetAll().ViewHistory
	want := []int{2, 3, 1}
	if len(got) != len(want) {
		t.Fatalf("expected history %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected history %v, got %v", want, got)
		}
	}
}

func TestViewHistoryTruncation(t *testing.T) {
	st := newTestStore(t)

	for i := 1; i <= model.HistoryLimit+10; i++ {
		if err := st.AddToViewHistory(i); err != nil {
			t.Fatalf("add view %d failed: %v", i, err)
		}
	}
	got := st.GetAll().ViewHistory
	if len(got) != model.HistoryLimit {
		t.Fatalf("expected history capped at %d, got %d", model.HistoryLimit, len(got))
	}
	if got[0] != model.HistoryLimit+10 {
		t.Errorf("expected most recent view first, got %d", got[0])
	}
}

func TestComparisonSlots(t *testing.T) {
	st := newTestStore(t)

	for i, id := range []int{11, 22, 33} {
		slot, err := st.AddToComparison(id)
		if err != nil {
			t.Fatalf("add to comparison failed: %v", err)
		}
		if slot != i {
			t.Errorf("expected movie %d in slot %d, got %d", id, i, slot)
		}
	}

	// Tray full: no-op, -1.
	slot, err := st.AddToComparison(44)
	if err != nil {
		t.Fatalf("add to full tray failed: %v", err)
	}
	if slot != -1 {
		t.Errorf("expected -1 for a full tray, got %d", slot)
	}

	// Re-adding a staged movie returns its existing slot.
	slot, err = st.AddToComparison(22)
	if err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	if slot != 1 {
		t.Errorf("expected existing slot 1, got %d", slot)
	}

	if err := st.ClearComparisonSlot(1); err != nil {
		t.Fatalf("clear slot failed: %v", err)
	}
	slot, err = st.AddToComparison(44)
	if err != nil {
		t.Fatalf("add after clear failed: %v", err)
	}
	if slot != 1 {
		t.Errorf("expected freed slot 1, got %d", slot)
	}

	if err := st.ClearComparison(); err != nil {
		t.Fatalf("clear all failed: %v", err)
	}
	for i, id := range st.GetAll().ComparisonSlots {
		if id != 0 {
			t.Errorf("slot %d not cleared: %d", i, id)
		}
	}
}

func TestCollectionsLifecycle(t *testing.T) {
	st := newTestStore(t)

	col, err := st.CreateCollection("Noir Night", "🎬", "rainy evenings")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if col.ID == "" {
		t.Fatal("expected a generated collection id")
	}

	if err := st.AddToCollection(col.ID, 550); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := st.AddToCollection(col.ID, 550); err != nil {
		t.Fatalf("duplicate add failed: %v", err)
	}
	got := st.GetAll().FindCollection(col.ID)
	if got == nil || len(got.MovieIDs) != 1 {
		t.Fatalf("expected 1 movie in collection, got %+v", got)
	}

	if err := st.AddToCollection("rs-missing", 1); err == nil {
		t.Error("expected unknown collection to be an error")
	}

	if err := st.RemoveFromCollection(col.ID, 550); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := st.DeleteCollection(col.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if st.GetAll().FindCollection(col.ID) != nil {
		t.Error("collection should be gone")
	}
}

func TestRevisionAdvancesOnEveryWrite(t *testing.T) {
	st := newTestStore(t)

	before, err := st.Revision()
	if err != nil {
		t.Fatalf("revision failed: %v", err)
	}
	if err := st.AddToWatchlist(movie(550, "Fight Club")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	mid, err := st.Revision()
	if err != nil {
		t.Fatalf("revision failed: %v", err)
	}
	if mid <= before {
		t.Errorf("revision did not advance: %d -> %d", before, mid)
	}
	if err := st.SetMood("cozy", nil); err != nil {
		t.Fatalf("mood failed: %v", err)
	}
	after, err := st.Revision()
	if err != nil {
		t.Fatalf("revision failed: %v", err)
	}
	if after <= mid {
		t.Errorf("revision did not advance: %d -> %d", mid, after)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	st := newTestStore(t)

	if err := st.AddToWatchlist(movie(550, "Fight Club")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := st.SetRating(550, 9); err != nil {
		t.Fatalf("rate failed: %v", err)
	}
	if err := st.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	u := st.GetAll()
	if len(u.Watchlist) != 0 || len(u.Ratings) != 0 {
		t.Errorf("expected empty aggregate after reset, got %+v", u)
	}
}

func TestCorruptDocumentFallsBackToDefaults(t *testing.T) {
	st := newTestStore(t)

	if err := st.Backend().Save([]byte("not json at all")); err != nil {
		t.Fatalf("raw save failed: %v", err)
	}
	u := st.GetAll()
	if err := u.Validate(); err != nil {
		t.Fatalf("fallback aggregate invalid: %v", err)
	}
	if len(u.Watchlist) != 0 {
		t.Errorf("expected a fresh aggregate, got %+v", u)
	}

	// The store stays writable after the fallback.
	if err := st.AddToWatchlist(movie(550, "Fight Club")); err != nil {
		t.Fatalf("add after corruption failed: %v", err)
	}
	if got := len(st.GetAll().Watchlist); got != 1 {
		t.Errorf("expected 1 watchlist entry, got %d", got)
	}
}

func TestMemoryFallbackWhenPathUnusable(t *testing.T) {
	// A path under a file (not a directory) cannot be created.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	st := Open(filepath.Join(blocker, "sub", "test.db"), log.New(os.Stderr, "[test] ", 0))
	defer st.Close()

	if st.Durable() {
		t.Error("expected in-memory fallback")
	}
	if err := st.AddToWatchlist(movie(550, "Fight Club")); err != nil {
		t.Fatalf("fallback store not writable: %v", err)
	}
}

func TestMemoryBackendRoundTrip(t *testing.T) {
	st := New(NewMemory(), log.New(os.Stderr, "[test] ", 0))
	defer st.Close()

	if err := st.SetMood("cozy", []int{35}); err != nil {
		t.Fatalf("mood failed: %v", err)
	}
	u := st.GetAll()
	if u.LastMood == nil || u.LastMood.Label != "cozy" {
		t.Errorf("mood not persisted: %+v", u.LastMood)
	}
}
