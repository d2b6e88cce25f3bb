// Package sync coordinates the local store with the cloud mirror.
//
// The orchestrator is the write path for the whole engine: every mutation
// is applied to the local store synchronously, the achievement tracker is
// notified, and, only while an authenticated user is in the Synced state,
// the corresponding idempotent cloud operation is issued from a detached
// goroutine. The caller never waits on the cloud; failures are logged,
// counted in the status side-channel and otherwise invisible.
//
// At first sign-in the orchestrator performs a one-shot migration: the
// full local aggregate is pushed through the cloud adapter's idempotent
// operations and a per-user migration marker is recorded. Because every
// push is idempotent, an interrupted migration is simply re-run in full on
// the next sign-in or manual resync.
package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	gosync "sync"
	"time"

	"github.com/reelsync/reelsync/internal/achieve"
	"github.com/reelsync/reelsync/internal/cloud"
	"github.com/reelsync/reelsync/internal/model"
	"github.com/reelsync/reelsync/internal/store"
)

// State is the orchestrator's lifecycle state.
type State string

const (
	// StateAnonymous means no user is signed in; mutations are local only.
	StateAnonymous State = "anonymous"

	// StateAuthenticating means a sign-in is in progress.
	StateAuthenticating State = "authenticating"

	// StateMigrationPending means the user is authenticated but the
	// one-shot local-to-cloud migration has not completed yet.
	StateMigrationPending State = "migration_pending"

	// StateSynced means mutations are mirrored to the cloud.
	StateSynced State = "synced"
)

// Status is the sync status exposed to UIs. It is a side-channel only:
// no mutation ever blocks on it.
type Status struct {
	State          State     `json:"state"`
	UserID         string    `json:"user_id,omitempty"`
	IsSyncing      bool      `json:"is_syncing"`
	IsCloudEnabled bool      `json:"is_cloud_enabled"`
	LastSyncTime   time.Time `json:"last_sync_time,omitzero"`
	CloudErrors    int64     `json:"cloud_errors"`
}

// cloudWriteTimeout bounds each detached cloud write. There is no retry
// layer; a timed-out write is repaired by the next resync.
const cloudWriteTimeout = 15 * time.Second

// Orchestrator composes the local store, the cloud adapter and the
// achievement tracker into the engine's mutator set.
type Orchestrator struct {
	local   *store.Store
	cloud   cloud.Store // nil when no cloud is configured
	tracker achieve.Tracker
	logger  *log.Logger

	mu           gosync.Mutex
	state        State
	userID       string
	inflight     int
	lastSyncTime time.Time
	cloudErrors  int64

	wg gosync.WaitGroup

	// now is swappable for tests.
	now func() time.Time
}

// New creates an orchestrator. cloudStore may be nil, in which case the
// engine runs local-only and sign-in fails. If tracker is nil a no-op
// tracker is used; if logger is nil a default stderr logger is used.
func New(local *store.Store, cloudStore cloud.Store, tracker achieve.Tracker, logger *log.Logger) *Orchestrator {
	if tracker == nil {
		tracker = achieve.NopTracker{}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Orchestrator{
		local:   local,
		cloud:   cloudStore,
		tracker: tracker,
		logger:  logger,
		state:   StateAnonymous,
		now:     time.Now,
	}
}

// Local returns the underlying local store, for read paths that bypass
// the mutator set (views, dashboard).
func (o *Orchestrator) Local() *store.Store { return o.local }

// Status returns the current sync status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		State:          o.state,
		UserID:         o.userID,
		IsSyncing:      o.inflight > 0,
		IsCloudEnabled: o.cloud != nil && o.state == StateSynced,
		LastSyncTime:   o.lastSyncTime,
		CloudErrors:    o.cloudErrors,
	}
}

// SignIn transitions Anonymous -> Authenticating -> (MigrationPending ->)
// Synced for the given user identity. Identity comes from the external
// auth provider; this engine only reacts to its presence.
//
// If the migration marker is not set, the full local aggregate is pushed
// to the cloud before the marker is recorded. A failed migration leaves
// the marker unset and the state MigrationPending so the next SignIn or
// Resync retries the full, idempotent push.
func (o *Orchestrator) SignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if o.cloud == nil {
		return fmt.Errorf("cloud store not configured")
	}

	o.mu.Lock()
	o.state = StateAuthenticating
	o.userID = userID
	o.mu.Unlock()

	migrated, err := o.cloud.IsMigrated(ctx, userID)
	if err != nil {
		o.setState(StateMigrationPending)
		return fmt.Errorf("failed to check migration marker: %w", err)
	}

	if !migrated {
		o.setState(StateMigrationPending)
		if err := o.migrate(ctx, userID); err != nil {
			return fmt.Errorf("migration failed (will retry on next sign-in or resync): %w", err)
		}
	} else {
		// Status display only: local remains authoritative for all
		// reads, and the next local mutation overwrites the cloud.
		if remote, err := o.cloud.GetUserData(ctx, userID); err != nil {
			o.logger.Printf("WARNING: failed to fetch cloud mirror for status: %v", err)
		} else if remote != nil {
			o.logger.Printf("Cloud mirror present for %s: watchlist=%d favorites=%d ratings=%d collections=%d",
				userID, len(remote.Watchlist), len(remote.Favorites), len(remote.Ratings), len(remote.Collections))
		}
	}

	o.mu.Lock()
	o.state = StateSynced
	o.lastSyncTime = o.now()
	o.mu.Unlock()

	o.logger.Printf("Signed in as %s, sync enabled", userID)
	return nil
}

// SignOut transitions back to Anonymous. The local aggregate is retained
// and cloud calls cease. In-flight cloud writes are not cancelled.
func (o *Orchestrator) SignOut() {
	o.mu.Lock()
	userID := o.userID
	o.state = StateAnonymous
	o.userID = ""
	o.mu.Unlock()
	if userID != "" {
		o.logger.Printf("Signed out %s, sync disabled", userID)
	}
}

// Resync re-runs the full migration path on demand. It is the recovery
// path for previously failed pushes.
func (o *Orchestrator) Resync(ctx context.Context) error {
	o.mu.Lock()
	userID := o.userID
	state := o.state
	o.mu.Unlock()

	if userID == "" || state == StateAnonymous {
		return fmt.Errorf("not signed in")
	}
	if err := o.migrate(ctx, userID); err != nil {
		return fmt.Errorf("resync failed: %w", err)
	}
	o.mu.Lock()
	o.state = StateSynced
	o.lastSyncTime = o.now()
	o.mu.Unlock()
	return nil
}

// Wait blocks until all detached cloud writes issued so far have
// finished. Mutations never call this; it exists so a short-lived process
// can flush before exit and so tests can observe mirror effects.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// migrate pushes the entire local aggregate through the idempotent cloud
// operations, then records the migration marker. Individual entity
// failures are logged and counted; any failure leaves the marker unset so
// the whole push is retried later.
func (o *Orchestrator) migrate(ctx context.Context, userID string) error {
	u := o.local.GetAll()
	o.logger.Printf("Starting migration for %s: watchlist=%d favorites=%d ratings=%d collections=%d history=%d",
		userID, len(u.Watchlist), len(u.Favorites), len(u.Ratings), len(u.Collections), len(u.ViewHistory))

	var failed int
	push := func(what string, err error) {
		if err != nil {
			o.logger.Printf("WARNING: failed to push %s: %v", what, err)
			failed++
		}
	}

	for _, m := range u.Watchlist {
		push(fmt.Sprintf("watchlist movie %d", m.ID), o.cloud.AddWatchlistMovie(ctx, userID, m))
	}
	for _, m := range u.Favorites {
		push(fmt.Sprintf("favorite movie %d", m.ID), o.cloud.AddFavoriteMovie(ctx, userID, m))
	}
	for id, r := range u.Ratings {
		push(fmt.Sprintf("rating for movie %d", id), o.cloud.SetRating(ctx, userID, id, r))
	}
	for _, c := range u.Collections {
		push(fmt.Sprintf("collection %s", c.ID), o.cloud.PutCollection(ctx, userID, c))
	}
	push("view history", o.cloud.SetViewHistory(ctx, userID, u.ViewHistory))
	push("comparison slots", o.cloud.SetComparisonSlots(ctx, userID, u.ComparisonSlots))
	if u.LastMood != nil {
		push("mood", o.cloud.SetMood(ctx, userID, *u.LastMood))
	}

	if failed > 0 {
		return fmt.Errorf("%d entities failed to push, migration marker not set", failed)
	}
	if err := o.cloud.SetMigrated(ctx, userID); err != nil {
		return fmt.Errorf("failed to set migration marker: %w", err)
	}
	o.logger.Printf("Migration complete for %s", userID)
	return nil
}

// mirror issues one cloud operation from a detached goroutine if the
// orchestrator is in the Synced state. The mutation path never observes
// the outcome; errors only move the status counters.
func (o *Orchestrator) mirror(what string, op func(ctx context.Context, c cloud.Store, userID string) error) {
	o.mu.Lock()
	if o.state != StateSynced || o.cloud == nil || o.userID == "" {
		o.mu.Unlock()
		return
	}
	userID := o.userID
	o.inflight++
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), cloudWriteTimeout)
		defer cancel()

		err := op(ctx, o.cloud, userID)

		o.mu.Lock()
		o.inflight--
		if err != nil {
			o.cloudErrors++
			o.mu.Unlock()
			o.logger.Printf("WARNING: cloud write failed (%s): %v", what, err)
			return
		}
		o.lastSyncTime = o.now()
		o.mu.Unlock()
	}()
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// ---- mutator set ----
//
// Each mutator is: synchronous local write, tracker notification,
// best-effort cloud mirror. Local failure aborts the whole call; cloud
// failure is invisible here.

// AddToWatchlist adds a movie to the watchlist.
func (o *Orchestrator) AddToWatchlist(m model.MovieRef) error {
	if err := o.local.AddToWatchlist(m); err != nil {
		return err
	}
	o.tracker.Record(achieve.KindWatchlistAdd, strconv.Itoa(m.ID))
	o.mirror("watchlist add", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.AddWatchlistMovie(ctx, userID, m)
	})
	return nil
}

// RemoveFromWatchlist removes a movie from the watchlist.
func (o *Orchestrator) RemoveFromWatchlist(movieID int) error {
	if err := o.local.RemoveFromWatchlist(movieID); err != nil {
		return err
	}
	o.tracker.Record(achieve.KindWatchlistRemove, strconv.Itoa(movieID))
	o.mirror("watchlist remove", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.RemoveWatchlistMovie(ctx, userID, movieID)
	})
	return nil
}

// ToggleFavorite flips the movie's favorite state and returns whether it
// is a favorite after the call.
func (o *Orchestrator) ToggleFavorite(m model.MovieRef) (bool, error) {
	nowFavorite, err := o.local.ToggleFavorite(m)
	if err != nil {
		return false, err
	}
	if nowFavorite {
		o.tracker.Record(achieve.KindFavoriteAdd, strconv.Itoa(m.ID))
		o.mirror("favorite add", func(ctx context.Context, c cloud.Store, userID string) error {
			return c.AddFavoriteMovie(ctx, userID, m)
		})
	} else {
		o.tracker.Record(achieve.KindFavoriteRemove, strconv.Itoa(m.ID))
		o.mirror("favorite remove", func(ctx context.Context, c cloud.Store, userID string) error {
			return c.RemoveFavoriteMovie(ctx, userID, m.ID)
		})
	}
	return nowFavorite, nil
}

// SetRating records a 1-10 rating.
func (o *Orchestrator) SetRating(movieID, value int) error {
	if err := o.local.SetRating(movieID, value); err != nil {
		return err
	}
	o.tracker.Record(achieve.KindRatingSet, strconv.Itoa(movieID))
	// Mirror the stored rating so the local and remote timestamps agree.
	r, ok := o.local.GetAll().Ratings[movieID]
	if !ok {
		return nil
	}
	o.mirror("rating set", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.SetRating(ctx, userID, movieID, r)
	})
	return nil
}

// RemoveRating deletes the rating for a movie.
func (o *Orchestrator) RemoveRating(movieID int) error {
	if err := o.local.RemoveRating(movieID); err != nil {
		return err
	}
	o.mirror("rating remove", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.RemoveRating(ctx, userID, movieID)
	})
	return nil
}

// CreateCollection creates an empty named collection.
func (o *Orchestrator) CreateCollection(name, emoji, description string) (*model.Collection, error) {
	col, err := o.local.CreateCollection(name, emoji, description)
	if err != nil {
		return nil, err
	}
	o.tracker.Record(achieve.KindCollectionNew, col.ID)
	snapshot := *col
	o.mirror("collection create", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.PutCollection(ctx, userID, snapshot)
	})
	return col, nil
}

// DeleteCollection removes a collection.
func (o *Orchestrator) DeleteCollection(collectionID string) error {
	if err := o.local.DeleteCollection(collectionID); err != nil {
		return err
	}
	o.mirror("collection delete", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.DeleteCollection(ctx, userID, collectionID)
	})
	return nil
}

// AddToCollection appends a movie to a collection.
func (o *Orchestrator) AddToCollection(collectionID string, movieID int) error {
	if err := o.local.AddToCollection(collectionID, movieID); err != nil {
		return err
	}
	o.tracker.Record(achieve.KindCollectionAdd, collectionID)
	o.mirrorCollection(collectionID)
	return nil
}

// RemoveFromCollection removes a movie from a collection.
func (o *Orchestrator) RemoveFromCollection(collectionID string, movieID int) error {
	if err := o.local.RemoveFromCollection(collectionID, movieID); err != nil {
		return err
	}
	o.mirrorCollection(collectionID)
	return nil
}

// mirrorCollection re-puts the whole collection document after a
// membership change; the put is idempotent.
func (o *Orchestrator) mirrorCollection(collectionID string) {
	col := o.local.GetAll().FindCollection(collectionID)
	if col == nil {
		return
	}
	snapshot := *col
	o.mirror("collection update", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.PutCollection(ctx, userID, snapshot)
	})
}

// AddToViewHistory records a view, most recent first.
func (o *Orchestrator) AddToViewHistory(movieID int) error {
	if err := o.local.AddToViewHistory(movieID); err != nil {
		return err
	}
	o.tracker.Record(achieve.KindHistoryView, strconv.Itoa(movieID))
	history := o.local.GetAll().ViewHistory
	o.mirror("view history", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.SetViewHistory(ctx, userID, history)
	})
	return nil
}

// AddToComparison stages a movie in the first free comparison slot.
func (o *Orchestrator) AddToComparison(movieID int) (int, error) {
	slot, err := o.local.AddToComparison(movieID)
	if err != nil {
		return slot, err
	}
	if slot >= 0 {
		o.tracker.Record(achieve.KindComparisonAdd, strconv.Itoa(movieID))
		o.mirrorComparison()
	}
	return slot, nil
}

// SetComparisonSlot stages a movie in a specific slot.
func (o *Orchestrator) SetComparisonSlot(slot, movieID int) error {
	if err := o.local.SetComparisonSlot(slot, movieID); err != nil {
		return err
	}
	o.tracker.Record(achieve.KindComparisonAdd, strconv.Itoa(movieID))
	o.mirrorComparison()
	return nil
}

// ClearComparisonSlot empties one slot.
func (o *Orchestrator) ClearComparisonSlot(slot int) error {
	if err := o.local.ClearComparisonSlot(slot); err != nil {
		return err
	}
	o.mirrorComparison()
	return nil
}

// ClearComparison empties the whole tray.
func (o *Orchestrator) ClearComparison() error {
	if err := o.local.ClearComparison(); err != nil {
		return err
	}
	o.mirrorComparison()
	return nil
}

func (o *Orchestrator) mirrorComparison() {
	slots := o.local.GetAll().ComparisonSlots
	o.mirror("comparison slots", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.SetComparisonSlots(ctx, userID, slots)
	})
}

// SetMood records the current browsing mood.
func (o *Orchestrator) SetMood(label string, genreIDs []int) error {
	if err := o.local.SetMood(label, genreIDs); err != nil {
		return err
	}
	o.tracker.Record(achieve.KindMoodSet, label)
	mood := o.local.GetAll().LastMood
	if mood == nil {
		return nil
	}
	snapshot := *mood
	o.mirror("mood", func(ctx context.Context, c cloud.Store, userID string) error {
		return c.SetMood(ctx, userID, snapshot)
	})
	return nil
}

// Reset destroys the local aggregate and, for a signed-in user, the cloud
// document including the migration marker. This is the only operation
// that clears the marker.
func (o *Orchestrator) Reset(ctx context.Context) error {
	if err := o.local.Reset(); err != nil {
		return err
	}
	o.mu.Lock()
	userID := o.userID
	state := o.state
	o.mu.Unlock()
	if state == StateSynced && o.cloud != nil && userID != "" {
		if err := o.cloud.DeleteUserData(ctx, userID); err != nil {
			o.logger.Printf("WARNING: failed to delete cloud data for %s: %v", userID, err)
		}
	}
	return nil
}
