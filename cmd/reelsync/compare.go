package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/ui"
)

var compareCmd = &cobra.Command{
	Use:     "compare",
	Short:   "Manage the three-slot comparison tray",
	GroupID: "library",
}

var compareAddCmd = &cobra.Command{
	Use:   "add <movie-id>",
	Short: "Put a movie in the first free slot",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		movieID := parseMovieID(args[0])
		slot, err := e.orch.AddToComparison(movieID)
		if err != nil {
			fatal("%v", err)
		}
		if slot < 0 {
			fmt.Println(ui.RenderWarn("Comparison tray is full; clear a slot first."))
			return
		}
		fmt.Printf("%s movie %d placed in slot %d\n", ui.RenderPass("✓"), movieID, slot)
	},
}

var compareSetCmd = &cobra.Command{
	Use:   "set <slot> <movie-id>",
	Short: "Put a movie in a specific slot (0-2)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		slot, err := strconv.Atoi(args[0])
		if err != nil {
			fatal("invalid slot %q", args[0])
		}
		movieID := parseMovieID(args[1])
		if err := e.orch.SetComparisonSlot(slot, movieID); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s movie %d placed in slot %d\n", ui.RenderPass("✓"), movieID, slot)
	},
}

var compareClearCmd = &cobra.Command{
	Use:   "clear [slot]",
	Short: "Clear one slot, or the whole tray",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		if len(args) == 0 {
			if err := e.orch.ClearComparison(); err != nil {
				fatal("%v", err)
			}
			fmt.Printf("%s comparison tray cleared\n", ui.RenderPass("✓"))
			return
		}
		slot, err := strconv.Atoi(args[0])
		if err != nil {
			fatal("invalid slot %q", args[0])
		}
		if err := e.orch.ClearComparisonSlot(slot); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s slot %d cleared\n", ui.RenderPass("✓"), slot)
	},
}

var compareShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the comparison tray",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		u := e.st.GetAll()
		fmt.Println(ui.RenderAccent("Comparison tray:"))
		for i, id := range u.ComparisonSlots {
			if id == 0 {
				fmt.Printf("  slot %d: %s\n", i, ui.RenderDim("empty"))
			} else {
				fmt.Printf("  slot %d: movie %d\n", i, id)
			}
		}
	},
}

func init() {
	compareCmd.AddCommand(compareAddCmd, compareSetCmd, compareClearCmd, compareShowCmd)
	rootCmd.AddCommand(compareCmd)
}
