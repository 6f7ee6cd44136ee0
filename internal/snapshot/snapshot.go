package snapshot

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/TimurManjosov/godecide/internal/rules"
	"github.com/TimurManjosov/godecide/internal/store"
)

// RuleSetView is one rule set inside a snapshot: the raw document for
// serving, plus the parsed tree evaluation runs against. Compiled is built
// exactly once per snapshot; request handlers never re-parse.
type RuleSetView struct {
	Key         string          `json:"key"`
	Description string          `json:"description"`
	Env         string          `json:"env"`
	Document    json.RawMessage `json:"document"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Compiled *rules.RuleSet `json:"-"`
}

// Snapshot is an immutable view of every rule set in one environment.
// Readers share the same instance; updates swap the whole pointer.
type Snapshot struct {
	ETag      string                 `json:"etag"`
	RuleSets  map[string]RuleSetView `json:"ruleSets"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

var current atomic.Pointer[Snapshot]

// Load returns the current snapshot. Before the first Update it returns an
// empty snapshot rather than nil.
func Load() *Snapshot {
	if s := current.Load(); s != nil {
		return s
	}
	return &Snapshot{ETag: emptyETag(), RuleSets: map[string]RuleSetView{}, UpdatedAt: time.Now().UTC()}
}

// Get returns one rule set from the current snapshot.
func Get(key string) (RuleSetView, bool) {
	view, ok := Load().RuleSets[key]
	return view, ok
}

// Build parses and validates every stored document and assembles a new
// snapshot. A document that fails to parse or validate fails the whole
// build; records are expected to have been checked before storage.
func Build(records []store.RuleSetRecord) (*Snapshot, error) {
	views := make(map[string]RuleSetView, len(records))
	for _, r := range records {
		rs, err := rules.ParseRuleSet(r.Document)
		if err != nil {
			return nil, fmt.Errorf("rule set %q: %w", r.Key, err)
		}
		if err := rules.Validate(rs); err != nil {
			return nil, fmt.Errorf("rule set %q: %w", r.Key, err)
		}

		views[r.Key] = RuleSetView{
			Key:         r.Key,
			Description: r.Description,
			Env:         r.Env,
			Document:    r.Document,
			UpdatedAt:   r.UpdatedAt,
			Compiled:    rs,
		}
	}

	blob, err := json.Marshal(views)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot views: %w", err)
	}

	return &Snapshot{
		ETag:      weakETag(blob),
		RuleSets:  views,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Update atomically installs s as the current snapshot and notifies
// subscribers of what changed.
func Update(s *Snapshot, change Change) {
	current.Store(s)
	change.ETag = s.ETag
	publishUpdate(change)
}

func weakETag(blob []byte) string {
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(blob))
}

func emptyETag() string {
	return weakETag([]byte("{}"))
}
