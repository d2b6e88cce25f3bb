// Package views computes read-only aggregates over the user data and the
// achievement log. Every function is pure and deterministic for a given
// input and clock; results are recomputed on each read, which is cheap at
// the aggregate's size.
package views

import (
	"sort"
	"time"

	"github.com/reelsync/reelsync/internal/achieve"
	"github.com/reelsync/reelsync/internal/model"
)

// Streak describes the user's activity streak in days.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// AIUsage summarizes chat activity recorded by the external chat flow.
type AIUsage struct {
	ChatCount    int `json:"chat_count"`
	DistinctDays int `json:"distinct_days"`
}

// Summary is the full derived view exposed to UIs.
type Summary struct {
	GenreCounts   map[int]int `json:"genre_counts"`
	Streak        Streak      `json:"streak"`
	AIUsage       AIUsage     `json:"ai_usage"`
	DistinctMoods []string    `json:"distinct_moods"`
	TotalRatings  int         `json:"total_ratings"`
	TotalViews    int         `json:"total_views"`
}

// Build assembles the full summary.
func Build(u *model.UserData, entries []achieve.Entry, now time.Time) Summary {
	return Summary{
		GenreCounts:   GenreCounts(u),
		Streak:        ActivityStreak(entries, now),
		AIUsage:       AIUsageCounters(entries),
		DistinctMoods: DistinctMoods(entries),
		TotalRatings:  len(u.Ratings),
		TotalViews:    len(u.ViewHistory),
	}
}

// GenreCounts counts how often each genre id appears across the watchlist
// and favorites.
func GenreCounts(u *model.UserData) map[int]int {
	counts := map[int]int{}
	for _, m := range u.Watchlist {
		for _, g := range m.GenreIDs {
			counts[g]++
		}
	}
	for _, m := range u.Favorites {
		for _, g := range m.GenreIDs {
			counts[g]++
		}
	}
	return counts
}

// ActivityStreak computes the current and longest streak of consecutive
// days with at least one logged activity. The current streak counts back
// from today, or from yesterday when today has no activity yet.
func ActivityStreak(entries []achieve.Entry, now time.Time) Streak {
	if len(entries) == 0 {
		return Streak{}
	}

	daySet := map[time.Time]bool{}
	var days []time.Time
	for _, e := range entries {
		day := startOfDay(e.CreatedAt)
		if !daySet[day] {
			daySet[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	today := startOfDay(now)
	last := days[len(days)-1]
	current := 0
	if last.Equal(today) || last.AddDate(0, 0, 1).Equal(today) {
		current = 1
		for i := len(days) - 2; i >= 0; i-- {
			if !days[i].AddDate(0, 0, 1).Equal(days[i+1]) {
				break
			}
			current++
		}
	}

	return Streak{Current: current, Longest: longest}
}

func startOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AIUsageCounters counts chat events and the distinct days they occurred.
func AIUsageCounters(entries []achieve.Entry) AIUsage {
	var usage AIUsage
	days := map[string]bool{}
	for _, e := range entries {
		if e.Kind != achieve.KindAIChat {
			continue
		}
		usage.ChatCount++
		days[e.CreatedAt.Local().Format("2006-01-02")] = true
	}
	usage.DistinctDays = len(days)
	return usage
}

// DistinctMoods returns the sorted set of mood labels ever used.
func DistinctMoods(entries []achieve.Entry) []string {
	seen := map[string]bool{}
	var moods []string
	for _, e := range entries {
		if e.Kind != achieve.KindMoodSet || e.Detail == "" {
			continue
		}
		if !seen[e.Detail] {
			seen[e.Detail] = true
			moods = append(moods, e.Detail)
		}
	}
	sort.Strings(moods)
	return moods
}
