package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is an append-only log of session connect/disconnect events,
// backing the server-log display. It records what happened, not who:
// client identity is never carried across reconnects.
type Store struct {
	conn *sql.DB
}

// Entry is one logged lifecycle event.
type Entry struct {
	ID         int64
	SessionID  string
	RemoteAddr string
	Event      string
	Commands   int64
	CreatedAt  time.Time
}

func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory %q: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database at %q: %w", path, err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS session_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	remote_addr TEXT NOT NULL,
	event TEXT NOT NULL,
	commands INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_created_at ON session_events(created_at);
`

func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO session_events (session_id, remote_addr, event, commands, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.SessionID, e.RemoteAddr, e.Event, e.Commands, formatTimestamp(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("record session event: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, session_id, remote_addr, event, commands, created_at
		 FROM session_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdRaw string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.RemoteAddr, &e.Event, &e.Commands, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		e.CreatedAt, err = parseTimestamp(createdRaw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return ts.UTC().Format(time.RFC3339)
}

func parseTimestamp(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return ts, nil
}

func (s *Store) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
