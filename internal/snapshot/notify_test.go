package snapshot

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribeReturnsChannel(t *testing.T) {
	updates, unsub := Subscribe()
	defer unsub()

	if updates == nil {
		t.Error("Subscribe returned nil channel")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	updates, unsub := Subscribe()

	unsub()

	select {
	case _, ok := <-updates:
		if ok {
			t.Error("Expected channel to be closed after unsubscribe")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for channel close")
	}
}

func TestPublishUpdateNonBlocking(t *testing.T) {
	// Create a subscriber but don't read from it (slow client simulation)
	updates, unsub := Subscribe()
	defer unsub()

	// Fill the buffer
	publishUpdate(Change{Type: ChangeUpdated, Key: "one"})

	// This should not block even though the channel is full
	done := make(chan bool)
	go func() {
		publishUpdate(Change{Type: ChangeUpdated, Key: "two"})
		publishUpdate(Change{Type: ChangeUpdated, Key: "three"})
		done <- true
	}()

	select {
	case <-done:
		// Success - publishUpdate did not block
	case <-time.After(100 * time.Millisecond):
		t.Error("publishUpdate blocked on slow subscriber")
	}

	// Clean up: drain the channel
	for len(updates) > 0 {
		<-updates
	}
}

func TestMultipleSubscribersReceiveUpdates(t *testing.T) {
	const numSubscribers = 5
	var channels []chan Change
	var unsubs []func()

	for i := 0; i < numSubscribers; i++ {
		ch, unsub := Subscribe()
		channels = append(channels, ch)
		unsubs = append(unsubs, unsub)
	}

	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	want := Change{Type: ChangeDeleted, Key: "fanout-test", Env: "prod", ETag: `W/"abc"`}
	publishUpdate(want)

	timeout := time.After(1 * time.Second)
	received := 0

	for _, ch := range channels {
		select {
		case change := <-ch:
			if change == want {
				received++
			} else {
				t.Errorf("Expected change %+v, got %+v", want, change)
			}
		case <-timeout:
			t.Errorf("Timeout: only %d of %d subscribers received update", received, numSubscribers)
			return
		}
	}

	if received != numSubscribers {
		t.Errorf("Expected %d subscribers to receive update, got %d", numSubscribers, received)
	}
}

func TestConcurrentSubscribeUnsubscribe(t *testing.T) {
	var wg sync.WaitGroup
	iterations := 50

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			updates, unsub := Subscribe()
			time.Sleep(1 * time.Millisecond)
			unsub()
			// Reading from the closed channel must not panic.
			_, _ = <-updates
		}()
	}

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			publishUpdate(Change{Type: ChangeUpdated, Key: "concurrent"})
		}()
	}

	wg.Wait()
}

func TestSubscriberReceivesOnlyAfterSubscription(t *testing.T) {
	publishUpdate(Change{Type: ChangeUpdated, Key: "before-sub"})

	updates, unsub := Subscribe()
	defer unsub()

	publishUpdate(Change{Type: ChangeUpdated, Key: "after-sub"})

	select {
	case change := <-updates:
		if change.Key != "after-sub" {
			t.Errorf("Expected key after-sub, got %s", change.Key)
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("Timeout waiting for update")
	}

	select {
	case change := <-updates:
		t.Errorf("Unexpected update received: %+v", change)
	case <-time.After(100 * time.Millisecond):
		// Expected - no more updates
	}
}
