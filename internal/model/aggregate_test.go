package model

import (
	"testing"
	"time"
)

func TestNewSatisfiesInvariants(t *testing.T) {
	u := New()
	if err := u.Validate(); err != nil {
		t.Fatalf("fresh aggregate invalid: %v", err)
	}
	if len(u.ComparisonSlots) != ComparisonSlotCount {
		t.Errorf("expected %d comparison slots, got %d", ComparisonSlotCount, len(u.ComparisonSlots))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	u := New()
	u.Watchlist = append(u.Watchlist, MovieRef{
		ID:          550,
		Title:       "Fight Club",
		PosterPath:  "/poster.jpg",
		VoteAverage: 8.4,
		GenreIDs:    []int{18, 53},
		AddedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	u.Ratings[550] = Rating{Value: 9, RatedAt: time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)}
	u.ViewHistory = []int{550, 603}
	u.ComparisonSlots[1] = 603
	u.LastMood = &Mood{Label: "tense", GenreIDs: []int{53}, SetAt: time.Now().UTC()}

	data, err := Encode(u)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, ok := Decode(data)
	if !ok {
		t.Fatal("Decode rejected a valid aggregate")
	}
	if len(got.Watchlist) != 1 || got.Watchlist[0].Title != "Fight Club" {
		t.Errorf("watchlist did not survive round trip: %+v", got.Watchlist)
	}
	if got.Ratings[550].Value != 9 {
		t.Errorf("rating did not survive round trip: %+v", got.Ratings)
	}
	if got.ComparisonSlots[1] != 603 {
		t.Errorf("comparison slots did not survive round trip: %v", got.ComparisonSlots)
	}
	if got.LastMood == nil || got.LastMood.Label != "tense" {
		t.Errorf("mood did not survive round trip: %+v", got.LastMood)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "{{{"},
		{"wrong shape", `"just a string"`},
		{"rating out of range", `{"ratings":{"550":{"value":11}}}`},
		{"duplicate watchlist", `{"watchlist":[{"id":1,"title":"A"},{"id":1,"title":"B"}]}`},
		{"duplicate history", `{"view_history":[1,2,1]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Decode([]byte(tc.data)); ok {
				t.Errorf("Decode accepted %s", tc.name)
			}
		})
	}
}

func TestDecodeFillsDefaults(t *testing.T) {
	u, ok := Decode([]byte(`{}`))
	if !ok {
		t.Fatal("Decode rejected an empty document")
	}
	if u.Watchlist == nil || u.Ratings == nil || u.ViewHistory == nil {
		t.Error("expected nil fields to be defaulted")
	}
	if len(u.ComparisonSlots) != ComparisonSlotCount {
		t.Errorf("expected %d comparison slots, got %d", ComparisonSlotCount, len(u.ComparisonSlots))
	}
}

func TestValidateHistoryLimit(t *testing.T) {
	u := New()
	for i := 1; i <= HistoryLimit+1; i++ {
		u.ViewHistory = append(u.ViewHistory, i)
	}
	if err := u.Validate(); err == nil {
		t.Error("expected over-limit history to be rejected")
	}
}

func TestMovieRefValidate(t *testing.T) {
	m := MovieRef{ID: 0, Title: "No ID"}
	if err := m.Validate(); err == nil {
		t.Error("expected zero id to be rejected")
	}
	m = MovieRef{ID: 42, Title: ""}
	if err := m.Validate(); err == nil {
		t.Error("expected empty title to be rejected")
	}
}
