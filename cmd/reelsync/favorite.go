package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/ui"
)

var favoriteTitle string

var favoriteCmd = &cobra.Command{
	Use:     "favorite <movie-id>",
	Short:   "Toggle a movie in favorites",
	GroupID: "library",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openEngine(ctx)
		defer e.close()

		movieID := parseMovieID(args[0])
		ref := resolveMovie(ctx, e, movieID, favoriteTitle)
		added, err := e.orch.ToggleFavorite(ref)
		if err != nil {
			fatal("failed to toggle favorite: %v", err)
		}
		if added {
			fmt.Printf("%s %s added to favorites\n", ui.RenderPass("♥"), ref.Title)
		} else {
			fmt.Printf("%s %s removed from favorites\n", ui.RenderDim("♡"), ref.Title)
		}
	},
}

func init() {
	favoriteCmd.Flags().StringVar(&favoriteTitle, "title", "", "Movie title (skips metadata lookup)")
	rootCmd.AddCommand(favoriteCmd)
}
