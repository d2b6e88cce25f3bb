package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/achieve"
	"github.com/reelsync/reelsync/internal/sync"
	"github.com/reelsync/reelsync/internal/ui"
	"github.com/reelsync/reelsync/internal/views"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show sync state and library summary",
	GroupID: "sync",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		st := e.orch.Status()
		fmt.Println(ui.RenderAccent("Sync"))
		fmt.Printf("  state:        %s\n", renderState(st.State))
		if st.UserID != "" {
			fmt.Printf("  user:         %s\n", st.UserID)
		}
		fmt.Printf("  cloud:        %s\n", renderBool(st.IsCloudEnabled, "enabled", "disabled"))
		fmt.Printf("  storage:      %s\n", renderBool(e.st.Durable(), "durable", ui.RenderWarn("in-memory")))
		if !st.LastSyncTime.IsZero() {
			fmt.Printf("  last sync:    %s\n", st.LastSyncTime.Format(time.RFC3339))
		}
		if st.CloudErrors > 0 {
			fmt.Printf("  cloud errors: %s\n", ui.RenderWarn(fmt.Sprintf("%d", st.CloudErrors)))
		}

		u := e.st.GetAll()
		var entries []achieve.Entry
		if e.alog != nil {
			entries, _ = e.alog.Entries()
		}
		summary := views.Build(u, entries, time.Now())

		fmt.Println(ui.RenderAccent("Library"))
		fmt.Printf("  watchlist:    %d\n", len(u.Watchlist))
		fmt.Printf("  favorites:    %d\n", len(u.Favorites))
		fmt.Printf("  collections:  %d\n", len(u.Collections))
		fmt.Printf("  ratings:      %d\n", summary.TotalRatings)
		fmt.Printf("  views:        %d\n", summary.TotalViews)
		if u.LastMood != nil {
			fmt.Printf("  mood:         %s\n", u.LastMood.Label)
		}

		fmt.Println(ui.RenderAccent("Activity"))
		fmt.Printf("  streak:       %d day(s), longest %d\n", summary.Streak.Current, summary.Streak.Longest)
		if summary.AIUsage.ChatCount > 0 {
			fmt.Printf("  ai chats:     %d over %d day(s)\n", summary.AIUsage.ChatCount, summary.AIUsage.DistinctDays)
		}
		if len(summary.DistinctMoods) > 0 {
			fmt.Printf("  moods used:   %s\n", strings.Join(summary.DistinctMoods, ", "))
		}
		if len(summary.GenreCounts) > 0 {
			fmt.Printf("  top genres:   %s\n", topGenres(summary.GenreCounts, 5))
		}
	},
}

func renderState(s sync.State) string {
	switch s {
	case sync.StateSynced:
		return ui.RenderPass(string(s))
	case sync.StateMigrationPending:
		return ui.RenderWarn(string(s))
	default:
		return ui.RenderDim(string(s))
	}
}

func renderBool(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

// topGenres formats the n most frequent genre ids.
func topGenres(counts map[int]int, n int) string {
	type gc struct{ id, count int }
	all := make([]gc, 0, len(counts))
	for id, count := range counts {
		all = append(all, gc{id, count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].id < all[j].id
	})
	if len(all) > n {
		all = all[:n]
	}
	parts := make([]string, len(all))
	for i, g := range all {
		parts[i] = fmt.Sprintf("%d (%d)", g.id, g.count)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
