package cloud

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reelsync/reelsync/internal/model"
)

func TestUserKeyLayout(t *testing.T) {
	cases := []struct {
		userID, field, want string
	}{
		{"alice", "watchlist", "reelsync:user:alice:watchlist"},
		{"alice", "meta", "reelsync:user:alice:meta"},
		{"u-42", "comparison", "reelsync:user:u-42:comparison"},
	}
	for _, tc := range cases {
		if got := userKey(tc.userID, tc.field); got != tc.want {
			t.Errorf("userKey(%q, %q) = %q, want %q", tc.userID, tc.field, got, tc.want)
		}
	}
}

// newIntegrationStore connects to the Redis named by REELSYNC_TEST_REDIS,
// or skips. The test uses DB 9 and flushes it.
func newIntegrationStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REELSYNC_TEST_REDIS")
	if addr == "" {
		t.Skip("set REELSYNC_TEST_REDIS to run redis integration tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 9})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis at %s not reachable: %v", addr, err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush test db: %v", err)
	}
	st := NewRedisStoreFromClient(client)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRedisRoundTrip(t *testing.T) {
	st := newIntegrationStore(t)
	ctx := context.Background()
	const user = "it-user"

	if u, err := st.GetUserData(ctx, user); err != nil || u != nil {
		t.Fatalf("expected no document for a fresh user, got %+v, %v", u, err)
	}

	m := model.MovieRef{ID: 550, Title: "Fight Club", GenreIDs: []int{18}}
	if err := st.AddWatchlistMovie(ctx, user, m); err != nil {
		t.Fatalf("add watchlist failed: %v", err)
	}
	// Idempotent: same movie again is an upsert, not a duplicate.
	if err := st.AddWatchlistMovie(ctx, user, m); err != nil {
		t.Fatalf("re-add watchlist failed: %v", err)
	}
	if err := st.SetRating(ctx, user, 550, model.Rating{Value: 9, RatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("set rating failed: %v", err)
	}
	if err := st.SetViewHistory(ctx, user, []int{550}); err != nil {
		t.Fatalf("set history failed: %v", err)
	}
	if err := st.SetComparisonSlots(ctx, user, []int{550, 0, 0}); err != nil {
		t.Fatalf("set comparison failed: %v", err)
	}
	if err := st.SetMood(ctx, user, model.Mood{Label: "tense", SetAt: time.Now().UTC()}); err != nil {
		t.Fatalf("set mood failed: %v", err)
	}

	u, err := st.GetUserData(ctx, user)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if u == nil {
		t.Fatal("expected a document")
	}
	if len(u.Watchlist) != 1 || u.Watchlist[0].ID != 550 {
		t.Errorf("watchlist wrong: %+v", u.Watchlist)
	}
	if u.Ratings[550].Value != 9 {
		t.Errorf("rating wrong: %+v", u.Ratings)
	}
	if len(u.ViewHistory) != 1 || u.ViewHistory[0] != 550 {
		t.Errorf("history wrong: %v", u.ViewHistory)
	}
	if u.ComparisonSlots[0] != 550 {
		t.Errorf("comparison wrong: %v", u.ComparisonSlots)
	}
	if u.LastMood == nil || u.LastMood.Label != "tense" {
		t.Errorf("mood wrong: %+v", u.LastMood)
	}
}

func TestRedisMigrationMarker(t *testing.T) {
	st := newIntegrationStore(t)
	ctx := context.Background()
	const user = "it-marker"

	migrated, err := st.IsMigrated(ctx, user)
	if err != nil {
		t.Fatalf("IsMigrated failed: %v", err)
	}
	if migrated {
		t.Fatal("fresh user should not be migrated")
	}

	if err := st.SetMigrated(ctx, user); err != nil {
		t.Fatalf("SetMigrated failed: %v", err)
	}
	if err := st.SetMigrated(ctx, user); err != nil {
		t.Fatalf("second SetMigrated failed: %v", err)
	}

	migrated, err = st.IsMigrated(ctx, user)
	if err != nil {
		t.Fatalf("IsMigrated failed: %v", err)
	}
	if !migrated {
		t.Fatal("marker not readable after set")
	}

	if err := st.DeleteUserData(ctx, user); err != nil {
		t.Fatalf("DeleteUserData failed: %v", err)
	}
	migrated, err = st.IsMigrated(ctx, user)
	if err != nil {
		t.Fatalf("IsMigrated failed: %v", err)
	}
	if migrated {
		t.Fatal("marker should be gone after delete")
	}
}

func TestRedisRemovalsAreNoopsWhenAbsent(t *testing.T) {
	st := newIntegrationStore(t)
	ctx := context.Background()
	const user = "it-noop"

	if err := st.RemoveWatchlistMovie(ctx, user, 999); err != nil {
		t.Errorf("remove absent watchlist movie: %v", err)
	}
	if err := st.RemoveFavoriteMovie(ctx, user, 999); err != nil {
		t.Errorf("remove absent favorite: %v", err)
	}
	if err := st.RemoveRating(ctx, user, 999); err != nil {
		t.Errorf("remove absent rating: %v", err)
	}
	if err := st.DeleteCollection(ctx, user, "rs-missing"); err != nil {
		t.Errorf("delete absent collection: %v", err)
	}
}
