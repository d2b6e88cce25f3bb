package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/reelsync/reelsync/internal/dashboard"
	"github.com/reelsync/reelsync/internal/notify"
	"github.com/reelsync/reelsync/internal/ui"
)

var daemonPort int

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Short:   "Watch the database and serve the live dashboard",
	GroupID: "advanced",
	Long: `daemon watches the local database for changes made by any process
(other CLI invocations, other sessions on the same machine) and pushes the
fresh aggregate, sync status and summary to dashboard clients over
WebSocket. Detection is at-least-once: file events are debounced and a
revision poll backstops missed events.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openEngine(ctx)
		defer e.close()

		var out io.Writer = os.Stderr
		if e.cfg.LogFile != "" {
			out = &lumberjack.Logger{
				Filename:   e.cfg.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			}
		}
		logger := log.New(out, "[daemon] ", log.LstdFlags)

		notifier, err := notify.New(e.st, e.cfg.DBPath(), &notify.Config{
			PollInterval:     e.cfg.PollInterval,
			DebounceInterval: e.cfg.DebounceInterval,
			Logger:           logger,
		})
		if err != nil {
			fatal("failed to create notifier: %v", err)
		}
		if err := notifier.Start(); err != nil {
			fatal("failed to start notifier: %v", err)
		}
		defer notifier.Stop()

		bridge := dashboard.NewBridge(e.orch, e.alog, logger)
		defer bridge.Stop()

		port := daemonPort
		if port == 0 {
			port = e.cfg.DashboardPort
		}
		server := dashboard.NewServer(bridge, &dashboard.Config{Port: port, Logger: logger})
		if err := server.Start(); err != nil {
			fatal("failed to start dashboard: %v", err)
		}
		defer server.Stop()

		go bridge.Run(notifier.Subscribe(), server)

		fmt.Printf("%s dashboard listening on %s\n", ui.RenderPass("✓"), ui.RenderAccent("http://"+server.GetAddr()))
		fmt.Println(ui.RenderDim("Press Ctrl+C to stop."))

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		logger.Printf("shutting down")
	},
}

func init() {
	daemonCmd.Flags().IntVar(&daemonPort, "port", 0, "Dashboard port (default from config)")
	rootCmd.AddCommand(daemonCmd)
}
