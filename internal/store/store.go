package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no rule set exists for the requested key.
var ErrNotFound = errors.New("rule set not found")

// Store defines the interface for rule-set persistence operations.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// GetAll retrieves all rule sets for the given environment.
	// Returns an empty slice if none are found.
	GetAll(ctx context.Context, env string) ([]RuleSetRecord, error)

	// GetByKey retrieves a single rule set by key and environment.
	// Returns ErrNotFound (wrapped) if it does not exist.
	GetByKey(ctx context.Context, key, env string) (*RuleSetRecord, error)

	// Upsert creates or replaces the rule set stored under (key, env) and
	// returns the stored record. Documents are replaced wholesale; there is
	// no partial update.
	Upsert(ctx context.Context, params UpsertParams) (*RuleSetRecord, error)

	// Delete removes a rule set by key and environment.
	// Returns no error if it doesn't exist (idempotent).
	Delete(ctx context.Context, key, env string) error

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}

// RuleSetRecord is a stored rule-set document with its metadata. Document
// holds the raw JSON exactly as pushed; parsing and validation happen before
// storage and again when the snapshot is built.
type RuleSetRecord struct {
	ID          string          `json:"id"`
	Key         string          `json:"key"`
	Description string          `json:"description"`
	Env         string          `json:"env"`
	Document    json.RawMessage `json:"document"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// UpsertParams contains the parameters for upserting a rule set.
type UpsertParams struct {
	Key         string          `json:"key"`
	Description string          `json:"description"`
	Env         string          `json:"env"`
	Document    json.RawMessage `json:"document"`
}
