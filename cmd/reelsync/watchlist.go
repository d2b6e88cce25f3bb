package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/ui"
)

var watchlistTitle string

var watchlistCmd = &cobra.Command{
	Use:     "watchlist",
	Short:   "Manage your watchlist",
	GroupID: "library",
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add <movie-id>",
	Short: "Add a movie to the watchlist",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openEngine(ctx)
		defer e.close()

		movieID := parseMovieID(args[0])
		ref := resolveMovie(ctx, e, movieID, watchlistTitle)
		if err := e.orch.AddToWatchlist(ref); err != nil {
			fatal("failed to add to watchlist: %v", err)
		}
		fmt.Printf("%s %s added to watchlist\n", ui.RenderPass("✓"), ref.Title)
	},
}

var watchlistRemoveCmd = &cobra.Command{
	Use:   "remove <movie-id>",
	Short: "Remove a movie from the watchlist",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		movieID := parseMovieID(args[0])
		if err := e.orch.RemoveFromWatchlist(movieID); err != nil {
			fatal("failed to remove from watchlist: %v", err)
		}
		fmt.Printf("%s movie %d removed from watchlist\n", ui.RenderPass("✓"), movieID)
	},
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the watchlist",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		u := e.st.GetAll()
		if len(u.Watchlist) == 0 {
			fmt.Println(ui.RenderDim("Watchlist is empty."))
			return
		}
		fmt.Println(ui.RenderAccent(fmt.Sprintf("Watchlist (%d):", len(u.Watchlist))))
		for _, m := range u.Watchlist {
			line := fmt.Sprintf("  %d  %s", m.ID, m.Title)
			if m.VoteAverage > 0 {
				line += ui.RenderDim(fmt.Sprintf("  (%.1f)", m.VoteAverage))
			}
			fmt.Println(line)
		}
	},
}

func init() {
	watchlistAddCmd.Flags().StringVar(&watchlistTitle, "title", "", "Movie title (skips metadata lookup)")
	watchlistCmd.AddCommand(watchlistAddCmd, watchlistRemoveCmd, watchlistListCmd)
	rootCmd.AddCommand(watchlistCmd)
}
