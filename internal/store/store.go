// Package store provides the local, authoritative store for the user data
// aggregate.
//
// All UI-facing reads come from here. Every mutator is a synchronous
// read-modify-write: the aggregate is loaded, validated against its
// invariants, changed, and persisted in full before the call returns. The
// backing storage bumps a revision counter on every write so independent
// readers (other processes, the change notifier) can detect foreign writes
// cheaply.
//
// The store never surfaces decode errors to callers: missing or corrupt
// stored data falls back to a fresh default aggregate.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/reelsync/reelsync/internal/model"
)

// Backend is the durable storage under the store. Implementations persist
// one JSON document under a fixed key and maintain a revision counter that
// increases on every Save.
type Backend interface {
	// Load returns the stored aggregate document. found is false when
	// nothing has been stored yet.
	Load() (data []byte, found bool, err error)

	// Save persists the document and bumps the revision.
	Save(data []byte) error

	// Revision returns the current revision counter (0 when empty).
	Revision() (int64, error)

	// Reset removes the stored document and resets the revision.
	Reset() error

	Close() error
}

// Store applies aggregate mutations against a Backend.
//
// A process-level mutex serializes mutators so each read-modify-write runs
// to completion before the next; across processes the backend's last write
// wins, which is acceptable because every mutation rewrites the full
// aggregate.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *log.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Store over the given backend. If logger is nil, a default
// logger writing to stderr is used.
func New(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
	return &Store{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
}

// Open opens a SQLite-backed store at path, falling back to an in-memory
// backend when the database cannot be opened (read-only filesystems,
// sandboxed environments). The fallback is logged once and the session
// continues without durability.
func Open(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
	backend, err := OpenSQLite(path)
	if err != nil {
		logger.Printf("WARNING: local storage unavailable (%v), continuing in-memory for this session", err)
		return New(NewMemory(), logger)
	}
	return New(backend, logger)
}

// Durable reports whether the store persists across restarts.
func (s *Store) Durable() bool {
	_, ok := s.backend.(*MemoryBackend)
	return !ok
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Close closes the underlying backend.
func (s *Store) Close() error { return s.backend.Close() }

// GetAll returns the full aggregate. It never fails: on a missing or
// unparsable document it returns a fresh default aggregate.
func (s *Store) GetAll() *model.UserData {
	data, found, err := s.backend.Load()
	if err != nil {
		s.logger.Printf("WARNING: failed to load aggregate: %v (using defaults)", err)
		return model.New()
	}
	if !found {
		return model.New()
	}
	u, ok := model.Decode(data)
	if !ok {
		s.logger.Printf("WARNING: discarding corrupt aggregate (%d bytes), reinitializing", len(data))
		return model.New()
	}
	return u
}

// Revision returns the backend's current revision counter.
func (s *Store) Revision() (int64, error) {
	return s.backend.Revision()
}

// mutate runs fn against the current aggregate and persists the result.
// fn returning an error aborts the write and leaves stored state untouched.
func (s *Store) mutate(fn func(u *model.UserData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.GetAll()
	if err := fn(u); err != nil {
		return err
	}
	if err := u.Validate(); err != nil {
		return fmt.Errorf("mutation violates aggregate invariants: %w", err)
	}
	data, err := model.Encode(u)
	if err != nil {
		return err
	}
	if err := s.backend.Save(data); err != nil {
		return fmt.Errorf("failed to persist aggregate: %w", err)
	}
	return nil
}

// AddToWatchlist adds a movie snapshot to the watchlist. Adding an id that
// is already present is a no-op, so the call is idempotent.
func (s *Store) AddToWatchlist(m model.MovieRef) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid movie: %w", err)
	}
	return s.mutate(func(u *model.UserData) error {
		if u.InWatchlist(m.ID) {
			return nil
		}
		if m.AddedAt.IsZero() {
			m.AddedAt = s.now()
		}
		u.Watchlist = append(u.Watchlist, m)
		return nil
	})
}

// RemoveFromWatchlist removes a movie by id. Removing an absent id is a
// no-op.
func (s *Store) RemoveFromWatchlist(movieID int) error {
	return s.mutate(func(u *model.UserData) error {
		u.Watchlist = removeRef(u.Watchlist, movieID)
		return nil
	})
}

// AddToFavorites adds a movie snapshot to favorites, idempotently.
func (s *Store) AddToFavorites(m model.MovieRef) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid movie: %w", err)
	}
	return s.mutate(func(u *model.UserData) error {
		if u.InFavorites(m.ID) {
			return nil
		}
		if m.AddedAt.IsZero() {
			m.AddedAt = s.now()
		}
		u.Favorites = append(u.Favorites, m)
		return nil
	})
}

// RemoveFromFavorites removes a movie by id from favorites.
func (s *Store) RemoveFromFavorites(movieID int) error {
	return s.mutate(func(u *model.UserData) error {
		u.Favorites = removeRef(u.Favorites, movieID)
		return nil
	})
}

// ToggleFavorite adds the movie to favorites if absent and removes it if
// present. It returns true when the movie is a favorite after the call.
func (s *Store) ToggleFavorite(m model.MovieRef) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, fmt.Errorf("invalid movie: %w", err)
	}
	var nowFavorite bool
	err := s.mutate(func(u *model.UserData) error {
		if u.InFavorites(m.ID) {
			u.Favorites = removeRef(u.Favorites, m.ID)
			nowFavorite = false
			return nil
		}
		if m.AddedAt.IsZero() {
			m.AddedAt = s.now()
		}
		u.Favorites = append(u.Favorites, m)
		nowFavorite = true
		return nil
	})
	return nowFavorite, err
}

// SetRating records a rating for a movie. Values outside [1,10] are
// rejected and any prior rating is preserved.
func (s *Store) SetRating(movieID, value int) error {
	if movieID <= 0 {
		return fmt.Errorf("movie id must be positive (got %d)", movieID)
	}
	if value < model.RatingMin || value > model.RatingMax {
		return fmt.Errorf("rating must be between %d and %d (got %d)", model.RatingMin, model.RatingMax, value)
	}
	return s.mutate(func(u *model.UserData) error {
		u.Ratings[movieID] = model.Rating{Value: value, RatedAt: s.now()}
		return nil
	})
}

// RemoveRating deletes the rating for a movie, if any.
func (s *Store) RemoveRating(movieID int) error {
	return s.mutate(func(u *model.UserData) error {
		delete(u.Ratings, movieID)
		return nil
	})
}

// CreateCollection creates a new, empty collection and returns it.
func (s *Store) CreateCollection(name, emoji, description string) (*model.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	col := model.Collection{
		ID:          newCollectionID(),
		Name:        name,
		Emoji:       emoji,
		Description: description,
		MovieIDs:    []int{},
		CreatedAt:   s.now(),
	}
	err := s.mutate(func(u *model.UserData) error {
		u.Collections = append(u.Collections, col)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &col, nil
}

// DeleteCollection removes a collection by id. Unknown ids are a no-op.
func (s *Store) DeleteCollection(collectionID string) error {
	return s.mutate(func(u *model.UserData) error {
		kept := u.Collections[:0]
		for _, c := range u.Collections {
			if c.ID != collectionID {
				kept = append(kept, c)
			}
		}
		u.Collections = kept
		return nil
	})
}

// AddToCollection appends a movie id to a collection, idempotently.
func (s *Store) AddToCollection(collectionID string, movieID int) error {
	return s.mutate(func(u *model.UserData) error {
		col := u.FindCollection(collectionID)
		if col == nil {
			return fmt.Errorf("collection %s not found", collectionID)
		}
		for _, id := range col.MovieIDs {
			if id == movieID {
				return nil
			}
		}
		col.MovieIDs = append(col.MovieIDs, movieID)
		return nil
	})
}

// RemoveFromCollection removes a movie id from a collection.
func (s *Store) RemoveFromCollection(collectionID string, movieID int) error {
	return s.mutate(func(u *model.UserData) error {
		col := u.FindCollection(collectionID)
		if col == nil {
			return fmt.Errorf("collection %s not found", collectionID)
		}
		kept := col.MovieIDs[:0]
		for _, id := range col.MovieIDs {
			if id != movieID {
				kept = append(kept, id)
			}
		}
		col.MovieIDs = kept
		return nil
	})
}

// AddToViewHistory records that a movie was viewed. Re-viewing moves the
// id to the front rather than duplicating it; the history is truncated to
// model.HistoryLimit entries, most recent first.
func (s *Store) AddToViewHistory(movieID int) error {
	if movieID <= 0 {
		return fmt.Errorf("movie id must be positive (got %d)", movieID)
	}
	return s.mutate(func(u *model.UserData) error {
		history := make([]int, 0, len(u.ViewHistory)+1)
		history = append(history, movieID)
		for _, id := range u.ViewHistory {
			if id != movieID {
				history = append(history, id)
			}
		}
		if len(history) > model.HistoryLimit {
			history = history[:model.HistoryLimit]
		}
		u.ViewHistory = history
		return nil
	})
}

// AddToComparison places a movie in the first empty comparison slot and
// returns the slot index. If the movie is already staged its existing slot
// is returned. When all three slots are full the call is a no-op and
// returns -1.
func (s *Store) AddToComparison(movieID int) (int, error) {
	if movieID <= 0 {
		return -1, fmt.Errorf("movie id must be positive (got %d)", movieID)
	}
	slot := -1
	err := s.mutate(func(u *model.UserData) error {
		for i, id := range u.ComparisonSlots {
			if id == movieID {
				slot = i
				return nil
			}
		}
		for i, id := range u.ComparisonSlots {
			if id == 0 {
				u.ComparisonSlots[i] = movieID
				slot = i
				return nil
			}
		}
		return nil
	})
	return slot, err
}

// SetComparisonSlot places a movie in a specific slot, replacing whatever
// was there.
func (s *Store) SetComparisonSlot(slot, movieID int) error {
	if slot < 0 || slot >= model.ComparisonSlotCount {
		return fmt.Errorf("comparison slot out of range: %d", slot)
	}
	if movieID <= 0 {
		return fmt.Errorf("movie id must be positive (got %d)", movieID)
	}
	return s.mutate(func(u *model.UserData) error {
		u.ComparisonSlots[slot] = movieID
		return nil
	})
}

// ClearComparisonSlot empties a slot. Clearing an already empty slot is a
// no-op.
func (s *Store) ClearComparisonSlot(slot int) error {
	if slot < 0 || slot >= model.ComparisonSlotCount {
		return fmt.Errorf("comparison slot out of range: %d", slot)
	}
	return s.mutate(func(u *model.UserData) error {
		u.ComparisonSlots[slot] = 0
		return nil
	})
}

// ClearComparison empties all comparison slots.
func (s *Store) ClearComparison() error {
	return s.mutate(func(u *model.UserData) error {
		u.ComparisonSlots = make([]int, model.ComparisonSlotCount)
		return nil
	})
}

// SetMood records the current browsing mood.
func (s *Store) SetMood(label string, genreIDs []int) error {
	if label == "" {
		return fmt.Errorf("mood label is required")
	}
	return s.mutate(func(u *model.UserData) error {
		u.LastMood = &model.Mood{Label: label, GenreIDs: genreIDs, SetAt: s.now()}
		return nil
	})
}

// Reset restores the aggregate to defaults. This is the only operation
// that destroys stored state.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Reset(); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	return nil
}

func removeRef(refs []model.MovieRef, movieID int) []model.MovieRef {
	kept := refs[:0]
	for _, m := range refs {
		if m.ID != movieID {
			kept = append(kept, m)
		}
	}
	return kept
}

// newCollectionID returns a short random identifier, rs-xxxxxxxx.
func newCollectionID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Extremely unlikely; fall back to a time-based id.
		return fmt.Sprintf("rs-%x", time.Now().UnixNano())
	}
	return "rs-" + hex.EncodeToString(b[:])
}
