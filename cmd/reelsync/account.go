package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/sync"
	"github.com/reelsync/reelsync/internal/ui"
)

var resetForce bool

var loginCmd = &cobra.Command{
	Use:     "login <user-id>",
	Short:   "Sign in and start mirroring to the cloud",
	GroupID: "sync",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openEngine(ctx)
		defer e.close()

		userID := args[0]
		if e.rds == nil {
			fatal("cloud is not configured (set REELSYNC_REDIS_ADDR)")
		}
		if err := e.orch.SignIn(ctx, userID); err != nil {
			fatal("sign-in failed: %v", err)
		}
		if err := e.saveSession(userID); err != nil {
			fatal("%v", err)
		}
		e.orch.Wait()
		switch e.orch.Status().State {
		case sync.StateSynced:
			fmt.Printf("%s signed in as %s\n", ui.RenderPass("✓"), userID)
		case sync.StateMigrationPending:
			fmt.Printf("%s signed in as %s, but migration is incomplete; it will be retried\n",
				ui.RenderWarn("!"), userID)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Sign out; local data stays, cloud mirroring stops",
	GroupID: "sync",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd.Context())
		defer e.close()

		e.orch.SignOut()
		e.clearSession()
		fmt.Printf("%s signed out (local data retained)\n", ui.RenderPass("✓"))
	},
}

var resyncCmd = &cobra.Command{
	Use:     "resync",
	Short:   "Push the full local state to the cloud again",
	GroupID: "sync",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openEngine(ctx)
		defer e.close()

		if err := e.orch.Resync(ctx); err != nil {
			fatal("resync failed: %v", err)
		}
		fmt.Printf("%s local state pushed to the cloud\n", ui.RenderPass("✓"))
	},
}

var resetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Erase all local data (and cloud data when signed in)",
	GroupID: "advanced",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openEngine(ctx)
		defer e.close()

		if !resetForce {
			fatal("reset erases everything; pass --force to confirm")
		}
		if err := e.orch.Reset(ctx); err != nil {
			fatal("reset failed: %v", err)
		}
		e.clearSession()
		fmt.Printf("%s all data erased\n", ui.RenderPass("✓"))
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Confirm the reset")
	rootCmd.AddCommand(loginCmd, logoutCmd, resyncCmd, resetCmd)
}
