package webhook

import (
	"time"

	"github.com/TimurManjosov/godecide/internal/snapshot"
)

// Event types that can trigger webhooks
const (
	EventRuleSetCreated = "ruleset.created"
	EventRuleSetUpdated = "ruleset.updated"
	EventRuleSetDeleted = "ruleset.deleted"
	EventSnapshotReload = "snapshot.reloaded"
)

// Event represents a webhook event that will be sent to configured endpoints.
type Event struct {
	Type        string    `json:"event"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
	Resource    Resource  `json:"resource"`
	ETag        string    `json:"etag"`
}

// Resource identifies the resource that triggered the event.
type Resource struct {
	Type string `json:"type"` // always "ruleset"
	Key  string `json:"key"`
}

// FromChange converts a snapshot change notification into a webhook event.
// Returns false for change types that have no webhook event mapping.
func FromChange(change snapshot.Change) (Event, bool) {
	var eventType string
	switch change.Type {
	case snapshot.ChangeCreated:
		eventType = EventRuleSetCreated
	case snapshot.ChangeUpdated:
		eventType = EventRuleSetUpdated
	case snapshot.ChangeDeleted:
		eventType = EventRuleSetDeleted
	case snapshot.ChangeReload:
		eventType = EventSnapshotReload
	default:
		return Event{}, false
	}

	return Event{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		Environment: change.Env,
		Resource: Resource{
			Type: "ruleset",
			Key:  change.Key,
		},
		ETag: change.ETag,
	}, true
}
