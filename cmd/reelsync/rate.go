package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/ui"
)

var rateUnset bool

var rateCmd = &cobra.Command{
	Use:     "rate <movie-id> [value]",
	Short:   "Rate a movie from 1 to 10",
	GroupID: "library",
	Args:    cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		movieID := parseMovieID(args[0])

		if rateUnset {
			if err := e.orch.RemoveRating(movieID); err != nil {
				fatal("failed to remove rating: %v", err)
			}
			fmt.Printf("%s rating for movie %d removed\n", ui.RenderPass("✓"), movieID)
			return
		}

		if len(args) != 2 {
			fatal("a rating value is required (or pass --unset)")
		}
		value, err := strconv.Atoi(args[1])
		if err != nil {
			fatal("invalid rating %q", args[1])
		}
		if err := e.orch.SetRating(movieID, value); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s movie %d rated %d/10\n", ui.RenderPass("✓"), movieID, value)
	},
}

func init() {
	rateCmd.Flags().BoolVar(&rateUnset, "unset", false, "Remove the rating instead of setting one")
	rootCmd.AddCommand(rateCmd)
}
