package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresSchema creates the audit table. Revoking UPDATE/DELETE from the
// application role is left to the deployment.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS session_events (
	seq        BIGSERIAL PRIMARY KEY,
	id         UUID NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	event_type TEXT NOT NULL,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL DEFAULT '',
	metadata   JSONB,
	timestamp  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_user ON session_events (user_id, seq DESC);
CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events (session_id, seq DESC);
`

// DB is the subset of *pgxpool.Pool the trail uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresTrail stores events in PostgreSQL through pgx.
type PostgresTrail struct {
	db DB
}

// NewPostgresTrail wraps db. Call EnsureSchema once at startup.
func NewPostgresTrail(db DB) *PostgresTrail {
	return &PostgresTrail{db: db}
}

// EnsureSchema creates the audit table and indexes if missing.
func (t *PostgresTrail) EnsureSchema(ctx context.Context) error {
	if _, err := t.db.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append implements [Trail].
func (t *PostgresTrail) Append(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	var metadata []byte
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = data
	}

	tag, err := t.db.Exec(ctx, `INSERT INTO session_events
		(id, session_id, user_id, event_type, ip_address, user_agent, reason, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.SessionID, event.UserID, string(event.Type), event.IPAddress, event.UserAgent, event.Reason, metadata, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("failed to insert audit event: %d rows affected", tag.RowsAffected())
	}
	return nil
}

// Recent implements [Reader].
func (t *PostgresTrail) Recent(ctx context.Context, filter Filter) ([]Event, error) {
	query := `SELECT id::text, session_id, user_id, event_type, ip_address, user_agent, reason, metadata, timestamp
		FROM session_events
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR session_id = $2)
		ORDER BY seq DESC LIMIT $3`

	rows, err := t.db.Query(ctx, query, filter.UserID, filter.SessionID, filter.limit())
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var (
			e        Event
			typ      string
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &typ, &e.IPAddress, &e.UserAgent, &e.Reason, &metadata, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Type = EventType(typ)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
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
