package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// aggregateKey is the fixed key the aggregate document is stored under.
// One row per key; this engine only ever uses the one.
const aggregateKey = "user_data"

// SQLiteBackend stores the aggregate document in an embedded SQLite
// database. WAL mode keeps reads concurrent with writes and makes every
// write visible as file activity, which the change notifier watches.
type SQLiteBackend struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens (creating if necessary) the store database at path.
//
// The caller MUST call Close() when done to ensure the WAL is
// checkpointed.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	b := &SQLiteBackend{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := b.initSchema(); err != nil {
		_ = b.Close()
		return nil, err
	}

	return b, nil
}

// initSchema creates the tables if they don't exist. Idempotent.
func (b *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS aggregate (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		revision INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	-- Append-only activity log consumed by the derived view builder.
	CREATE TABLE IF NOT EXISTS achievement_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		detail TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_achievement_kind ON achievement_log(kind);
	CREATE INDEX IF NOT EXISTS idx_achievement_created ON achievement_log(created_at);
	`
	if _, err := b.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// RawDB returns the underlying sql.DB connection. The achievement log
// shares this handle.
func (b *SQLiteBackend) RawDB() *sql.DB {
	return b.conn
}

// Path returns the database file path. The change notifier watches the
// containing directory.
func (b *SQLiteBackend) Path() string {
	return b.path
}

// Load implements Backend.
func (b *SQLiteBackend) Load() ([]byte, bool, error) {
	var data string
	err := b.conn.QueryRow(
		"SELECT data FROM aggregate WHERE key = ?", aggregateKey,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load aggregate: %w", err)
	}
	return []byte(data), true, nil
}

// Save implements Backend. The upsert bumps the revision on every write.
func (b *SQLiteBackend) Save(data []byte) error {
	query := `
	INSERT INTO aggregate (key, data, revision, updated_at)
	VALUES (?, ?, 1, ?)
	ON CONFLICT(key) DO UPDATE SET
		data = excluded.data,
		revision = aggregate.revision + 1,
		updated_at = excluded.updated_at
	`
	_, err := b.conn.Exec(query, aggregateKey, string(data), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}
	return nil
}

// Revision implements Backend.
func (b *SQLiteBackend) Revision() (int64, error) {
	var rev int64
	err := b.conn.QueryRow(
		"SELECT revision FROM aggregate WHERE key = ?", aggregateKey,
	).Scan(&rev)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read revision: %w", err)
	}
	return rev, nil
}

// Reset implements Backend. It removes the aggregate row and the
// achievement log.
func (b *SQLiteBackend) Reset() error {
	if _, err := b.conn.Exec("DELETE FROM aggregate WHERE key = ?", aggregateKey); err != nil {
		return fmt.Errorf("failed to clear aggregate: %w", err)
	}
	if _, err := b.conn.Exec("DELETE FROM achievement_log"); err != nil {
		return fmt.Errorf("failed to clear achievement log: %w", err)
	}
	return nil
}

// Close checkpoints the WAL and closes the connection.
func (b *SQLiteBackend) Close() error {
	if b.conn == nil {
		return nil
	}
	if _, err := b.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := b.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	b.conn = nil
	return nil
}
