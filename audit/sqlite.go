package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_events (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	session_id  TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	ip_address  TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	metadata    TEXT,
	timestamp   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_user ON session_events(user_id, seq);
CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, seq);
CREATE TRIGGER IF NOT EXISTS session_events_no_update BEFORE UPDATE ON session_events
BEGIN SELECT RAISE(ABORT, 'session_events is append-only'); END;
CREATE TRIGGER IF NOT EXISTS session_events_no_delete BEFORE DELETE ON session_events
BEGIN SELECT RAISE(ABORT, 'session_events is append-only'); END;
`

// SQLiteTrail stores events in an append-only SQLite table. Update and delete
// are rejected by triggers.
type SQLiteTrail struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the database at path and prepares the schema.
func OpenSQLite(path string) (*SQLiteTrail, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_txlock=immediate&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	t, err := NewSQLiteTrail(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

// NewSQLiteTrail wraps an existing database handle and prepares the schema.
func NewSQLiteTrail(db *sql.DB) (*SQLiteTrail, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &SQLiteTrail{db: db}, nil
}

// Append implements [Trail].
func (t *SQLiteTrail) Append(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	var metadata sql.NullString
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO session_events (id, session_id, user_id, event_type, ip_address, user_agent, reason, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.SessionID, event.UserID, string(event.Type), event.IPAddress, event.UserAgent, event.Reason, metadata, event.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Recent implements [Reader].
func (t *SQLiteTrail) Recent(ctx context.Context, filter Filter) ([]Event, error) {
	query := `SELECT id, session_id, user_id, event_type, ip_address, user_agent, reason, metadata, timestamp
		FROM session_events WHERE 1=1`
	args := make([]any, 0, 3)
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, filter.limit())

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var (
			e        Event
			typ      string
			metadata sql.NullString
			ts       int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &typ, &e.IPAddress, &e.UserAgent, &e.Reason, &metadata, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Type = EventType(typ)
		e.Timestamp = time.Unix(0, ts).UTC()
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Close closes the underlying database.
func (t *SQLiteTrail) Close() error {
	return t.db.Close()
}
