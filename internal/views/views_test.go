package views

import (
	"testing"
	"time"

	"github.com/reelsync/reelsync/internal/achieve"
	"github.com/reelsync/reelsync/internal/model"
)

func entryOn(kind, detail string, day time.Time) achieve.Entry {
	return achieve.Entry{Kind: kind, Detail: detail, CreatedAt: day}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.Local)
}

func TestGenreCounts(t *testing.T) {
	u := model.New()
	u.Watchlist = []model.MovieRef{
		{ID: 1, Title: "A", GenreIDs: []int{18, 53}},
		{ID: 2, Title: "B", GenreIDs: []int{18}},
	}
	u.Favorites = []model.MovieRef{
		{ID: 3, Title: "C", GenreIDs: []int{53, 35}},
	}

	counts := GenreCounts(u)
	if counts[18] != 2 {
		t.Errorf("genre 18: expected 2, got %d", counts[18])
	}
	if counts[53] != 2 {
		t.Errorf("genre 53: expected 2, got %d", counts[53])
	}
	if counts[35] != 1 {
		t.Errorf("genre 35: expected 1, got %d", counts[35])
	}
}

func TestActivityStreakEmpty(t *testing.T) {
	s := ActivityStreak(nil, time.Now())
	if s.Current != 0 || s.Longest != 0 {
		t.Errorf("expected zero streaks, got %+v", s)
	}
}

func TestActivityStreakConsecutiveDays(t *testing.T) {
	now := day(2026, 6, 10)
	entries := []achieve.Entry{
		entryOn(achieve.KindWatchlistAdd, "1", day(2026, 6, 8)),
		entryOn(achieve.KindRatingSet, "1", day(2026, 6, 9)),
		entryOn(achieve.KindHistoryView, "2", day(2026, 6, 9)),
		entryOn(achieve.KindMoodSet, "cozy", day(2026, 6, 10)),
	}
	s := ActivityStreak(entries, now)
	if s.Current != 3 {
		t.Errorf("expected current streak 3, got %d", s.Current)
	}
	if s.Longest != 3 {
		t.Errorf("expected longest streak 3, got %d", s.Longest)
	}
}

func TestActivityStreakSurvivesQuietToday(t *testing.T) {
	// Activity yesterday and the day before, nothing yet today.
	now := day(2026, 6, 10)
	entries := []achieve.Entry{
		entryOn(achieve.KindWatchlistAdd, "1", day(2026, 6, 8)),
		entryOn(achieve.KindWatchlistAdd, "2", day(2026, 6, 9)),
	}
	s := ActivityStreak(entries, now)
	if s.Current != 2 {
		t.Errorf("expected current streak 2, got %d", s.Current)
	}
}

func TestActivityStreakBrokenByGap(t *testing.T) {
	now := day(2026, 6, 10)
	entries := []achieve.Entry{
		entryOn(achieve.KindWatchlistAdd, "1", day(2026, 6, 1)),
		entryOn(achieve.KindWatchlistAdd, "2", day(2026, 6, 2)),
		entryOn(achieve.KindWatchlistAdd, "3", day(2026, 6, 3)),
		// gap
		entryOn(achieve.KindWatchlistAdd, "4", day(2026, 6, 10)),
	}
	s := ActivityStreak(entries, now)
	if s.Current != 1 {
		t.Errorf("expected current streak 1, got %d", s.Current)
	}
	if s.Longest != 3 {
		t.Errorf("expected longest streak 3, got %d", s.Longest)
	}
}

func TestActivityStreakStaleActivity(t *testing.T) {
	now := day(2026, 6, 10)
	entries := []achieve.Entry{
		entryOn(achieve.KindWatchlistAdd, "1", day(2026, 6, 1)),
	}
	s := ActivityStreak(entries, now)
	if s.Current != 0 {
		t.Errorf("expected no current streak, got %d", s.Current)
	}
	if s.Longest != 1 {
		t.Errorf("expected longest streak 1, got %d", s.Longest)
	}
}

func TestAIUsageCounters(t *testing.T) {
	entries := []achieve.Entry{
		entryOn(achieve.KindAIChat, "", day(2026, 6, 1)),
		entryOn(achieve.KindAIChat, "", day(2026, 6, 1)),
		entryOn(achieve.KindAIChat, "", day(2026, 6, 3)),
		entryOn(achieve.KindWatchlistAdd, "1", day(2026, 6, 2)),
	}
	usage := AIUsageCounters(entries)
	if usage.ChatCount != 3 {
		t.Errorf("expected 3 chats, got %d", usage.ChatCount)
	}
	if usage.DistinctDays != 2 {
		t.Errorf("expected 2 distinct days, got %d", usage.DistinctDays)
	}
}

func TestDistinctMoods(t *testing.T) {
	entries := []achieve.Entry{
		entryOn(achieve.KindMoodSet, "tense", day(2026, 6, 1)),
		entryOn(achieve.KindMoodSet, "cozy", day(2026, 6, 2)),
		entryOn(achieve.KindMoodSet, "tense", day(2026, 6, 3)),
		entryOn(achieve.KindMoodSet, "", day(2026, 6, 4)),
	}
	moods := DistinctMoods(entries)
	if len(moods) != 2 || moods[0] != "cozy" || moods[1] != "tense" {
		t.Errorf("expected [cozy tense], got %v", moods)
	}
}

func TestBuild(t *testing.T) {
	u := model.New()
	u.Ratings[550] = model.Rating{Value: 9}
	u.ViewHistory = []int{550, 603}

	summary := Build(u, nil, time.Now())
	if summary.TotalRatings != 1 {
		t.Errorf("expected 1 rating, got %d", summary.TotalRatings)
	}
	if summary.TotalViews != 2 {
		t.Errorf("expected 2 views, got %d", summary.TotalViews)
	}
}
