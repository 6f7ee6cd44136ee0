package snapshot

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TimurManjosov/godecide/internal/store"
)

func record(key, env, doc string) store.RuleSetRecord {
	return store.RuleSetRecord{
		ID:        "id-" + key,
		Key:       key,
		Env:       env,
		Document:  json.RawMessage(doc),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

const chipDoc = `{
	"rules": [
		{"if": {"field": "region", "op": "equals", "value": "cn"}, "then": "chip_rtd_cn"}
	],
	"fallback": "default_chip"
}`

func TestBuild_Empty(t *testing.T) {
	snap, err := Build(nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(snap.RuleSets) != 0 {
		t.Errorf("Expected 0 rule sets, got %d", len(snap.RuleSets))
	}
	if snap.ETag == "" {
		t.Error("Expected non-empty ETag")
	}
}

func TestBuild_CompilesDocuments(t *testing.T) {
	snap, err := Build([]store.RuleSetRecord{
		record("chip-selection", "prod", chipDoc),
		record("other", "prod", `{"rules":[]}`),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(snap.RuleSets) != 2 {
		t.Fatalf("Expected 2 rule sets, got %d", len(snap.RuleSets))
	}

	view, ok := snap.RuleSets["chip-selection"]
	if !ok {
		t.Fatal("chip-selection not found in snapshot")
	}
	if view.Compiled == nil {
		t.Fatal("Expected compiled rule set")
	}
	if len(view.Compiled.Rules) != 1 || view.Compiled.Fallback == nil {
		t.Errorf("Compiled rule set incorrect: %+v", view.Compiled)
	}
}

func TestBuild_RejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "invalid json", doc: `{"rules": [`},
		{name: "schema violation", doc: `{"rules": [{"then": "x"}]}`},
		{name: "invalid regex", doc: `{"rules": [{"if": {"field": "a", "op": "regex", "value": "("}, "then": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build([]store.RuleSetRecord{record("bad", "prod", tt.doc)})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), `"bad"`) {
				t.Errorf("error %q should name the offending rule set", err)
			}
		})
	}
}

func TestBuild_ETags_Deterministic(t *testing.T) {
	records := []store.RuleSetRecord{record("test", "prod", chipDoc)}

	snap1, err := Build(records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	snap2, err := Build(records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if snap1.ETag != snap2.ETag {
		t.Errorf("Expected deterministic ETags, got %s and %s", snap1.ETag, snap2.ETag)
	}
}

func TestBuild_ETags_Different(t *testing.T) {
	snap1, err := Build([]store.RuleSetRecord{record("rs1", "prod", chipDoc)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	snap2, err := Build([]store.RuleSetRecord{record("rs2", "prod", `{"rules":[]}`)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if snap1.ETag == snap2.ETag {
		t.Error("Expected different ETags for different contents")
	}
}

func TestETagFormat(t *testing.T) {
	snap, err := Build([]store.RuleSetRecord{record("test", "prod", chipDoc)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !strings.HasPrefix(snap.ETag, `W/"`) {
		t.Errorf("Expected ETag to start with 'W/\"', got %s", snap.ETag)
	}
	if !strings.HasSuffix(snap.ETag, `"`) {
		t.Errorf("Expected ETag to end with '\"', got %s", snap.ETag)
	}
}

func TestLoadAndUpdate(t *testing.T) {
	initial := Load()
	if initial == nil {
		t.Fatal("Load returned nil")
	}

	snap, err := Build([]store.RuleSetRecord{record("new-set", "prod", chipDoc)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	Update(snap, Change{Type: ChangeCreated, Key: "new-set", Env: "prod"})

	loaded := Load()
	if len(loaded.RuleSets) != 1 {
		t.Errorf("Expected 1 rule set after update, got %d", len(loaded.RuleSets))
	}
	if loaded.ETag != snap.ETag {
		t.Errorf("Expected ETag %s, got %s", snap.ETag, loaded.ETag)
	}

	view, ok := Get("new-set")
	if !ok {
		t.Fatal("Get did not find new-set")
	}
	if view.Compiled == nil {
		t.Error("Get returned view without compiled rules")
	}
}

func TestUpdateNotifiesSubscribers(t *testing.T) {
	updates, unsub := Subscribe()
	defer unsub()

	snap, err := Build([]store.RuleSetRecord{record("notify-test", "prod", chipDoc)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		Update(snap, Change{Type: ChangeUpdated, Key: "notify-test", Env: "prod"})
	}()

	select {
	case change := <-updates:
		if change.ETag != snap.ETag {
			t.Errorf("Expected ETag %s, got %s", snap.ETag, change.ETag)
		}
		if change.Type != ChangeUpdated || change.Key != "notify-test" {
			t.Errorf("Unexpected change: %+v", change)
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for update")
	}
}

func TestConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	iterations := 100

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := Load()
			if snap == nil {
				t.Error("Load returned nil")
			}
		}()
	}

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := Build([]store.RuleSetRecord{record("concurrent", "prod", chipDoc)})
			if err != nil {
				t.Errorf("Build: %v", err)
				return
			}
			Update(snap, Change{Type: ChangeUpdated, Key: "concurrent", Env: "prod"})
		}()
	}

	wg.Wait()

	if final := Load(); final == nil {
		t.Error("Final Load returned nil")
	}
}

func TestSnapshotMarshaling(t *testing.T) {
	snap, err := Build([]store.RuleSetRecord{record("json-test", "prod", chipDoc)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Failed to marshal snapshot: %v", err)
	}

	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal snapshot: %v", err)
	}

	if decoded.ETag != snap.ETag {
		t.Errorf("ETag mismatch after unmarshal: %s != %s", decoded.ETag, snap.ETag)
	}
	if len(decoded.RuleSets) != len(snap.RuleSets) {
		t.Errorf("Rule set count mismatch: %d != %d", len(decoded.RuleSets), len(snap.RuleSets))
	}
	// Compiled trees are rebuild-only state and must not leak into the wire form.
	if strings.Contains(string(data), "Compiled") {
		t.Error("Snapshot JSON should not contain compiled state")
	}
}
