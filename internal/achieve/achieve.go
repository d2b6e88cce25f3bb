// Package achieve receives fire-and-forget activity notifications per
// mutation and persists them to an append-only log. The engine consumes
// the Tracker interface; it does not own achievement logic. The derived
// view builder reads the log back for streaks and usage counters.
package achieve

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"
)

// Event kinds recorded by the sync layer. External collaborators (the
// chat flow, the UI) may record additional kinds; the log is open-ended.
const (
	KindWatchlistAdd    = "watchlist_add"
	KindWatchlistRemove = "watchlist_remove"
	KindFavoriteAdd     = "favorite_add"
	KindFavoriteRemove  = "favorite_remove"
	KindRatingSet       = "rating_set"
	KindCollectionNew   = "collection_create"
	KindCollectionAdd   = "collection_add"
	KindHistoryView     = "history_view"
	KindComparisonAdd   = "comparison_add"
	KindMoodSet         = "mood_set"
	KindAIChat          = "ai_chat"
)

// Entry is one logged activity event.
type Entry struct {
	ID        int64
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// Tracker receives activity notifications. Implementations must never
// block or fail the caller; errors are swallowed internally.
type Tracker interface {
	Record(kind, detail string)
}

// NopTracker discards all events.
type NopTracker struct{}

// Record implements Tracker.
func (NopTracker) Record(kind, detail string) {}

// Log is a SQLite-backed Tracker writing to the achievement_log table.
// It shares the local store's database handle.
type Log struct {
	conn   *sql.DB
	logger *log.Logger
	now    func() time.Time
}

// NewLog creates a tracker over an existing connection. The table is
// created by the store's schema init. If logger is nil, a default logger
// writing to stderr is used.
func NewLog(conn *sql.DB, logger *log.Logger) *Log {
	if logger == nil {
		logger = log.New(os.Stderr, "[achieve] ", log.LstdFlags)
	}
	return &Log{conn: conn, logger: logger, now: time.Now}
}

// Record implements Tracker. Failures are logged and swallowed; activity
// tracking must never affect the mutation result.
func (l *Log) Record(kind, detail string) {
	_, err := l.conn.Exec(
		"INSERT INTO achievement_log (kind, detail, created_at) VALUES (?, ?, ?)",
		kind, detail, l.now().Format(time.RFC3339),
	)
	if err != nil {
		l.logger.Printf("WARNING: failed to record %s event: %v", kind, err)
	}
}

// Entries returns the full log, oldest first.
func (l *Log) Entries() ([]Entry, error) {
	rows, err := l.conn.Query(
		"SELECT id, kind, COALESCE(detail, ''), created_at FROM achievement_log ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievement log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievement log: %w", err)
	}
	return entries, nil
}
