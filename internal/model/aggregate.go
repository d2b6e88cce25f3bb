// Package model defines the user data aggregate and its invariants.
//
// The aggregate is the single composite object holding all of a user's
// movie-related state: watchlist, favorites, ratings, collections, view
// history, the comparison tray and the current mood. It is persisted as
// one JSON document under a fixed key and every mutation is a full
// read-modify-write of this structure.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// HistoryLimit bounds the view history length. Older entries are
	// dropped from the tail when the limit is exceeded.
	HistoryLimit = 50

	// ComparisonSlotCount is the fixed size of the comparison tray.
	ComparisonSlotCount = 3

	// RatingMin and RatingMax bound the rating domain. Writes outside
	// this range are rejected and the prior value is preserved.
	RatingMin = 1
	RatingMax = 10
)

// MovieRef is the minimal movie snapshot stored in watchlist and
// favorites. Fields come verbatim from the metadata provider; the engine
// never validates or refreshes them.
type MovieRef struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"poster_path,omitempty"`
	VoteAverage float64   `json:"vote_average,omitempty"`
	GenreIDs    []int     `json:"genre_ids,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// Validate checks the snapshot's required fields.
func (m *MovieRef) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("movie id must be positive (got %d)", m.ID)
	}
	if m.Title == "" {
		return fmt.Errorf("movie title is required")
	}
	return nil
}

// Rating is a single 1-10 rating with its timestamp.
type Rating struct {
	Value   int       `json:"value"`
	RatedAt time.Time `json:"rated_at"`
}

// Collection is a named, ordered list of movie ids.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Emoji       string    `json:"emoji,omitempty"`
	Description string    `json:"description,omitempty"`
	MovieIDs    []int     `json:"movie_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the collection's required fields.
func (c *Collection) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("collection id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	return nil
}

// Mood records the most recently selected browsing mood.
type Mood struct {
	Label    string    `json:"label"`
	GenreIDs []int     `json:"genre_ids,omitempty"`
	SetAt    time.Time `json:"set_at"`
}

// UserData is the aggregate. One instance exists per user session; all
// reads and mutations go through it.
type UserData struct {
	Watchlist       []MovieRef        `json:"watchlist"`
	Favorites       []MovieRef        `json:"favorites"`
	Collections     []Collection      `json:"collections"`
	Ratings         map[int]Rating    `json:"ratings"`
	ViewHistory     []int             `json:"view_history"`
	ComparisonSlots []int             `json:"comparison_slots"`
	LastMood        *Mood             `json:"last_mood,omitempty"`
}

// New returns an empty aggregate with all invariants satisfied.
func New() *UserData {
	return &UserData{
		Watchlist:       []MovieRef{},
		Favorites:       []MovieRef{},
		Collections:     []Collection{},
		Ratings:         map[int]Rating{},
		ViewHistory:     []int{},
		ComparisonSlots: make([]int, ComparisonSlotCount),
	}
}

// Validate checks the aggregate's structural invariants: id uniqueness in
// watchlist and favorites, rating domain, comparison slot count and a
// duplicate-free bounded history.
func (u *UserData) Validate() error {
	if err := uniqueRefs("watchlist", u.Watchlist); err != nil {
		return err
	}
	if err := uniqueRefs("favorites", u.Favorites); err != nil {
		return err
	}
	for id, r := range u.Ratings {
		if r.Value < RatingMin || r.Value > RatingMax {
			return fmt.Errorf("rating for movie %d out of range: %d", id, r.Value)
		}
	}
	if len(u.ComparisonSlots) != ComparisonSlotCount {
		return fmt.Errorf("comparison slots must have length %d (got %d)", ComparisonSlotCount, len(u.ComparisonSlots))
	}
	if len(u.ViewHistory) > HistoryLimit {
		return fmt.Errorf("view history exceeds limit of %d (got %d)", HistoryLimit, len(u.ViewHistory))
	}
	seen := make(map[int]bool, len(u.ViewHistory))
	for _, id := range u.ViewHistory {
		if seen[id] {
			return fmt.Errorf("duplicate movie %d in view history", id)
		}
		seen[id] = true
	}
	for i := range u.Collections {
		if err := u.Collections[i].Validate(); err != nil {
			return fmt.Errorf("collection %d: %w", i, err)
		}
	}
	return nil
}

// SetDefaults replaces nil slices and maps so the aggregate always
// round-trips through JSON with the same shape.
func (u *UserData) SetDefaults() {
	if u.Watchlist == nil {
		u.Watchlist = []MovieRef{}
	}
	if u.Favorites == nil {
		u.Favorites = []MovieRef{}
	}
	if u.Collections == nil {
		u.Collections = []Collection{}
	}
	if u.Ratings == nil {
		u.Ratings = map[int]Rating{}
	}
	if u.ViewHistory == nil {
		u.ViewHistory = []int{}
	}
	if len(u.ComparisonSlots) != ComparisonSlotCount {
		slots := make([]int, ComparisonSlotCount)
		copy(slots, u.ComparisonSlots)
		u.ComparisonSlots = slots
	}
}

// InWatchlist reports whether the movie id is present in the watchlist.
func (u *UserData) InWatchlist(id int) bool {
	return containsRef(u.Watchlist, id)
}

// InFavorites reports whether the movie id is present in favorites.
func (u *UserData) InFavorites(id int) bool {
	return containsRef(u.Favorites, id)
}

// FindCollection returns the collection with the given id, or nil.
func (u *UserData) FindCollection(id string) *Collection {
	for i := range u.Collections {
		if u.Collections[i].ID == id {
			return &u.Collections[i]
		}
	}
	return nil
}

// Encode serializes the aggregate to JSON.
func Encode(u *UserData) ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aggregate: %w", err)
	}
	return data, nil
}

// Decode parses and validates a stored aggregate. It never panics and
// never returns a partially valid aggregate: on any parse or invariant
// failure it reports ok=false and the caller falls back to defaults.
func Decode(data []byte) (*UserData, bool) {
	var u UserData
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, false
	}
	u.SetDefaults()
	if err := u.Validate(); err != nil {
		return nil, false
	}
	return &u, true
}

func uniqueRefs(field string, refs []MovieRef) error {
	seen := make(map[int]bool, len(refs))
	for _, m := range refs {
		if seen[m.ID] {
			return fmt.Errorf("duplicate movie %d in %s", m.ID, field)
		}
		seen[m.ID] = true
	}
	return nil
}

func containsRef(refs []MovieRef, id int) bool {
	for _, m := range refs {
		if m.ID == id {
			return true
		}
	}
	return false
}
