package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements rule-set persistence backed by a pgxpool
// connection pool. One row per (key, env) pair; documents are stored as
// jsonb and replaced wholesale on upsert.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore around an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool exposes the underlying connection pool so sibling components (e.g.
// the audit sink) can share it.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// EnsureSchema creates the rule_sets table if it does not exist yet.
// Safe to call on every startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rule_sets (
			id          UUID PRIMARY KEY,
			key         TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			env         TEXT NOT NULL,
			document    JSONB NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (key, env)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure rule_sets schema: %w", err)
	}
	return nil
}

// GetAll returns all rule sets for the given environment ordered by key.
func (s *PostgresStore) GetAll(ctx context.Context, env string) ([]RuleSetRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, key, description, env, document, updated_at
		FROM rule_sets
		WHERE env = $1
		ORDER BY key
	`, env)
	if err != nil {
		return nil, fmt.Errorf("list rule sets: %w", err)
	}
	defer rows.Close()

	records := make([]RuleSetRecord, 0)
	for rows.Next() {
		var r RuleSetRecord
		if err := rows.Scan(&r.ID, &r.Key, &r.Description, &r.Env, &r.Document, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rule set: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rule sets rows: %w", err)
	}

	return records, nil
}

// GetByKey retrieves a single rule set by key and environment.
func (s *PostgresStore) GetByKey(ctx context.Context, key, env string) (*RuleSetRecord, error) {
	var r RuleSetRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, key, description, env, document, updated_at
		FROM rule_sets
		WHERE key = $1 AND env = $2
	`, key, env).Scan(&r.ID, &r.Key, &r.Description, &r.Env, &r.Document, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("get rule set: %w", err)
	}

	return &r, nil
}

// Upsert inserts the rule set or replaces the existing row for (key, env),
// preserving the original row ID, and returns the stored record.
func (s *PostgresStore) Upsert(ctx context.Context, params UpsertParams) (*RuleSetRecord, error) {
	var r RuleSetRecord
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rule_sets (id, key, description, env, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (key, env) DO UPDATE
		SET description = EXCLUDED.description,
		    document = EXCLUDED.document,
		    updated_at = NOW()
		RETURNING id, key, description, env, document, updated_at
	`,
		uuid.NewString(),
		params.Key,
		params.Description,
		params.Env,
		params.Document,
	).Scan(&r.ID, &r.Key, &r.Description, &r.Env, &r.Document, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert rule set: %w", err)
	}

	return &r, nil
}

// Delete removes a rule set by key and environment. Idempotent.
func (s *PostgresStore) Delete(ctx context.Context, key, env string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rule_sets WHERE key = $1 AND env = $2`, key, env)
	if err != nil {
		return fmt.Errorf("delete rule set: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
