package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Manage the view history",
	GroupID: "library",
}

var historyAddCmd = &cobra.Command{
	Use:   "add <movie-id>",
	Short: "Record that a movie's detail was viewed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		movieID := parseMovieID(args[0])
		if err := e.orch.AddToViewHistory(movieID); err != nil {
			fatal("failed to record view: %v", err)
		}
		fmt.Printf("%s movie %d recorded\n", ui.RenderPass("✓"), movieID)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the view history, most recent first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		u := e.st.GetAll()
		if len(u.ViewHistory) == 0 {
			fmt.Println(ui.RenderDim("No views recorded."))
			return
		}
		fmt.Println(ui.RenderAccent(fmt.Sprintf("View history (%d):", len(u.ViewHistory))))
		for i, id := range u.ViewHistory {
			fmt.Printf("  %2d. movie %d\n", i+1, id)
		}
	},
}

func init() {
	historyCmd.AddCommand(historyAddCmd, historyListCmd)
	rootCmd.AddCommand(historyCmd)
}
