package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type recordKey struct {
	key string
	env string
}

// MemoryStore is an in-memory implementation of the Store interface.
// It uses a map for storage and RWMutex for thread-safe concurrent access.
// This implementation is suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	ruleSets map[recordKey]RuleSetRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ruleSets: make(map[recordKey]RuleSetRecord),
	}
}

// GetAll retrieves all rule sets for the given environment.
func (m *MemoryStore) GetAll(ctx context.Context, env string) ([]RuleSetRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]RuleSetRecord, 0, len(m.ruleSets))
	for k, record := range m.ruleSets {
		if k.env == env {
			result = append(result, record)
		}
	}
	return result, nil
}

// GetByKey retrieves a single rule set by key and environment.
func (m *MemoryStore) GetByKey(ctx context.Context, key, env string) (*RuleSetRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.ruleSets[recordKey{key: key, env: env}]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return &record, nil
}

// Upsert creates or replaces a rule set in memory. The record ID is assigned
// on first insert and preserved across replacements.
func (m *MemoryStore) Upsert(ctx context.Context, params UpsertParams) (*RuleSetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey{key: params.Key, env: params.Env}
	id := uuid.NewString()
	if existing, exists := m.ruleSets[k]; exists {
		id = existing.ID
	}

	record := RuleSetRecord{
		ID:          id,
		Key:         params.Key,
		Description: params.Description,
		Env:         params.Env,
		Document:    append([]byte(nil), params.Document...),
		UpdatedAt:   time.Now().UTC(),
	}

	m.ruleSets[k] = record
	return &record, nil
}

// Delete removes a rule set from memory. Idempotent: no error if it doesn't exist.
func (m *MemoryStore) Delete(ctx context.Context, key, env string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.ruleSets, recordKey{key: key, env: env})
	return nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}
