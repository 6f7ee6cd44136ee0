package audit

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
)

// LogSink writes audit events to the process log as JSON lines. It is the
// default sink when no durable backend is configured.
type LogSink struct{}

// NewLogSink creates a log-based audit sink
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Write emits the event as a single JSON log line
func (s *LogSink) Write(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	log.Printf("[audit] %s", data)
	return nil
}

// Execer is the subset of pgxpool.Pool used by the Postgres sink.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink persists audit events to the audit_log table.
type PostgresSink struct {
	db Execer
}

// NewPostgresSink creates a PostgreSQL audit sink
func NewPostgresSink(db Execer) *PostgresSink {
	return &PostgresSink{db: db}
}

// EnsureSchema creates the audit_log table if it does not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_log (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			occurred_at   TIMESTAMPTZ NOT NULL,
			request_id    TEXT NOT NULL,
			action        TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id   TEXT NOT NULL,
			environment   TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT ''
		)
	`)
	return err
}

// Write persists an audit event to the database
func (s *PostgresSink) Write(ctx context.Context, event Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_log
			(occurred_at, request_id, action, resource_type, resource_id, environment, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		event.OccurredAt,
		event.RequestID,
		event.Action,
		event.ResourceType,
		event.ResourceID,
		event.Environment,
		event.Status,
		event.ErrorMessage,
	)
	return err
}
