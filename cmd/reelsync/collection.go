package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/ui"
)

var (
	collectionEmoji       string
	collectionDescription string
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Short:   "Manage named movie collections",
	GroupID: "library",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		c, err := e.orch.CreateCollection(args[0], collectionEmoji, collectionDescription)
		if err != nil {
			fatal("failed to create collection: %v", err)
		}
		fmt.Printf("%s collection %s created (%s)\n", ui.RenderPass("✓"), c.Name, ui.RenderDim(c.ID))
	},
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete <collection-id>",
	Short: "Delete a collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		if err := e.orch.DeleteCollection(args[0]); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s collection %s deleted\n", ui.RenderPass("✓"), args[0])
	},
}

var collectionAddCmd = &cobra.Command{
	Use:   "add <collection-id> <movie-id>",
	Short: "Add a movie to a collection",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		movieID := parseMovieID(args[1])
		if err := e.orch.AddToCollection(args[0], movieID); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s movie %d added to collection %s\n", ui.RenderPass("✓"), movieID, args[0])
	},
}

var collectionRemoveCmd = &cobra.Command{
	Use:   "remove <collection-id> <movie-id>",
	Short: "Remove a movie from a collection",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		movieID := parseMovieID(args[1])
		if err := e.orch.RemoveFromCollection(args[0], movieID); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s movie %d removed from collection %s\n", ui.RenderPass("✓"), movieID, args[0])
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all collections",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		u := e.st.GetAll()
		if len(u.Collections) == 0 {
			fmt.Println(ui.RenderDim("No collections."))
			return
		}
		for _, c := range u.Collections {
			header := c.Name
			if c.Emoji != "" {
				header = c.Emoji + " " + header
			}
			fmt.Printf("%s %s\n", ui.RenderAccent(header), ui.RenderDim("("+c.ID+")"))
			if c.Description != "" {
				fmt.Printf("  %s\n", ui.RenderDim(c.Description))
			}
			for _, id := range c.MovieIDs {
				fmt.Printf("  - movie %d\n", id)
			}
		}
	},
}

func init() {
	collectionCreateCmd.Flags().StringVar(&collectionEmoji, "emoji", "", "Collection emoji")
	collectionCreateCmd.Flags().StringVar(&collectionDescription, "description", "", "Collection description")
	collectionCmd.AddCommand(collectionCreateCmd, collectionDeleteCmd, collectionAddCmd, collectionRemoveCmd, collectionListCmd)
	rootCmd.AddCommand(collectionCmd)
}
