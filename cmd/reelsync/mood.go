package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/ui"
)

var moodCmd = &cobra.Command{
	Use:     "mood <label> [genre-id...]",
	Short:   "Record the current viewing mood",
	GroupID: "library",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		var genreIDs []int
		for _, arg := range args[1:] {
			id, err := strconv.Atoi(arg)
			if err != nil {
				fatal("invalid genre id %q", arg)
			}
			genreIDs = append(genreIDs, id)
		}
		if err := e.orch.SetMood(args[0], genreIDs); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s mood set to %s\n", ui.RenderPass("✓"), ui.RenderAccent(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(moodCmd)
}
