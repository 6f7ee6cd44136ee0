package snapshot

import (
	"sync"
)

// ChangeType labels what kind of mutation produced a new snapshot.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
	ChangeReload  ChangeType = "reload"
)

// Change describes one snapshot transition for subscribers.
type Change struct {
	Type ChangeType
	Key  string
	Env  string
	ETag string
}

type subCh = chan Change

var (
	mu   sync.Mutex
	subs = make(map[subCh]struct{})
)

// Subscribe registers a listener and returns its channel and an unsubscribe func.
func Subscribe() (subCh, func()) {
	ch := make(subCh, 1)
	mu.Lock()
	subs[ch] = struct{}{}
	mu.Unlock()

	unsub := func() {
		mu.Lock()
		delete(subs, ch)
		close(ch)
		mu.Unlock()
	}
	return ch, unsub
}

// publishUpdate notifies all listeners (non-blocking).
func publishUpdate(change Change) {
	mu.Lock()
	for ch := range subs {
		select {
		case ch <- change:
		default: // if a listener is slow, skip instead of blocking
		}
	}
	mu.Unlock()
}
