package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reelsync/reelsync/internal/achieve"
	"github.com/reelsync/reelsync/internal/cloud"
	"github.com/reelsync/reelsync/internal/config"
	"github.com/reelsync/reelsync/internal/store"
	"github.com/reelsync/reelsync/internal/sync"
)

var rootCmd = &cobra.Command{
	Use:   "reelsync",
	Short: "Local-first personal movie state with cloud sync",
	Long: `reelsync keeps your watchlist, favorites, ratings, collections, view
history, comparison tray and mood in a local database that is
authoritative for all reads. When you log in, every change is mirrored
best-effort to the cloud, and your pre-existing local state is migrated
there once at first login.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "library", Title: "Library commands:"},
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
		&cobra.Group{ID: "advanced", Title: "Advanced commands:"},
	)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// engine bundles the pieces a command needs: the local store, the
// achievement log, the optional cloud mirror and the orchestrator.
type engine struct {
	cfg  *config.Config
	st   *store.Store
	alog *achieve.Log
	rds  *cloud.RedisStore
	orch *sync.Orchestrator
}

// openEngine builds the engine from configuration. When a session user is
// recorded and the cloud is reachable the orchestrator is signed in,
// which also retries a pending migration.
func openEngine(ctx context.Context) *engine {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "[reelsync] ", log.LstdFlags)
	st := store.Open(cfg.DBPath(), logger)

	var alog *achieve.Log
	if sqlite, ok := st.Backend().(*store.SQLiteBackend); ok {
		alog = achieve.NewLog(sqlite.RawDB(), logger)
	}

	var rds *cloud.RedisStore
	if cfg.Redis.Addr != "" {
		rds, err = cloud.NewRedisStore(ctx, cloud.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Printf("WARNING: cloud unavailable: %v", err)
			rds = nil
		}
	}

	var tracker achieve.Tracker = achieve.NopTracker{}
	if alog != nil {
		tracker = alog
	}

	var cloudStore cloud.Store
	if rds != nil {
		cloudStore = rds
	}
	orch := sync.New(st, cloudStore, tracker, logger)

	e := &engine{cfg: cfg, st: st, alog: alog, rds: rds, orch: orch}

	if userID := e.sessionUser(); userID != "" && rds != nil {
		if err := orch.SignIn(ctx, userID); err != nil {
			logger.Printf("WARNING: sign-in as %s failed: %v", userID, err)
		}
	}

	return e
}

// close flushes in-flight cloud writes and releases resources.
func (e *engine) close() {
	e.orch.Wait()
	if e.rds != nil {
		_ = e.rds.Close()
	}
	_ = e.st.Close()
}

// sessionPath is where the logged-in user id is remembered between runs.
func (e *engine) sessionPath() string {
	return filepath.Join(e.cfg.DataDir, "session")
}

// sessionUser returns the recorded user id, or "".
func (e *engine) sessionUser() string {
	data, err := os.ReadFile(e.sessionPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// saveSession records the user id for future runs.
func (e *engine) saveSession(userID string) error {
	if err := os.MkdirAll(e.cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(e.sessionPath(), []byte(userID+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// clearSession forgets the recorded user id.
func (e *engine) clearSession() {
	_ = os.Remove(e.sessionPath())
}

// fatal prints an error and exits.
func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
