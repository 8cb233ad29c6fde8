package audit

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the postgres driver for database/sql.
	_ "github.com/lib/pq"

	id "hookwarden/pkg/domain"
)

// PostgresStore persists audit events through database/sql. The audit trail
// is deliberately on its own connection, separate from the workflow stores:
// a trail write must never contend with a workflow transaction.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens a database/sql connection for the audit trail.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the audit table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS audit_events (
	id            BIGSERIAL PRIMARY KEY,
	occurred_at   TIMESTAMPTZ NOT NULL,
	action        TEXT NOT NULL,
	program_id    TEXT NOT NULL,
	submission_id TEXT NOT NULL DEFAULT '',
	actor         TEXT NOT NULL DEFAULT '',
	detail        TEXT NOT NULL DEFAULT '',
	reason        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_program ON audit_events (program_id, occurred_at)`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO audit_events (occurred_at, action, program_id, submission_id, actor, detail, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.Timestamp, event.Action, string(event.ProgramID),
		event.SubmissionID, event.Actor, event.Detail, event.Reason)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByProgram(ctx context.Context, programID id.ProgramID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT occurred_at, action, program_id, submission_id, actor, detail, reason
FROM audit_events WHERE program_id = $1 ORDER BY occurred_at`,
		string(programID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event   Event
			program string
		)
		if err := rows.Scan(&event.Timestamp, &event.Action, &program,
			&event.SubmissionID, &event.Actor, &event.Detail, &event.Reason); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.ProgramID = id.ProgramID(program)
		out = append(out, event)
	}
	return out, rows.Err()
}

// Close releases the audit connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
