package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// queueSize is the buffer size for the event queue
	queueSize = 1000

	// maxRetries is how many times a failed delivery is retried per endpoint
	maxRetries = 3

	// requestTimeout bounds a single delivery attempt
	requestTimeout = 10 * time.Second

	// maxResponseBodySize limits how much of the response body we read for logging (1KB)
	maxResponseBodySize = 1024
)

// Dispatcher delivers rule set change events to the configured endpoints.
// Endpoints and the signing secret come from configuration; every delivery
// carries an HMAC signature of the payload.
type Dispatcher struct {
	endpoints []string
	secret    string
	client    *http.Client
	queue     chan Event
	done      chan struct{}
	closed    int32 // atomic flag to prevent double-close

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewDispatcher creates a dispatcher for the given endpoints. An empty
// endpoint list yields a dispatcher that drains its queue without delivering.
func NewDispatcher(endpoints []string, secret string) *Dispatcher {
	return &Dispatcher{
		endpoints: endpoints,
		secret:    secret,
		client: &http.Client{
			Timeout: requestTimeout,
		},
		queue: make(chan Event, queueSize),
		done:  make(chan struct{}),
		sleep: time.Sleep,
	}
}

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close gracefully shuts down the dispatcher. It closes the event queue and
// waits for pending deliveries to complete. After Close is called, no new
// events should be dispatched.
//
// Close is safe to call multiple times - subsequent calls are no-ops.
func (d *Dispatcher) Close() error {
	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return nil // Already closed
	}
	close(d.queue)
	<-d.done
	return nil
}

// Dispatch queues an event for delivery.
// This is non-blocking and will not slow down the caller.
func (d *Dispatcher) Dispatch(event Event) {
	select {
	case d.queue <- event:
	default:
		// Queue is full, drop event and log warning
		log.Printf("[webhook] queue full (size=%d), dropping event: type=%s key=%s env=%s",
			queueSize, event.Type, event.Resource.Key, event.Environment)
	}
}

// worker processes events from the queue
func (d *Dispatcher) worker() {
	defer close(d.done)

	for event := range d.queue {
		for _, endpoint := range d.endpoints {
			d.deliverWithRetry(context.Background(), endpoint, event)
		}
	}
}

// deliverWithRetry attempts to deliver an event to one endpoint with
// exponential backoff between attempts.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, endpoint string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[webhook] failed to marshal event payload: url=%s event_type=%s error=%v",
			endpoint, event.Type, err)
		return
	}

	signature := ComputeHMAC(payload, d.secret)
	deliveryID := uuid.New().String()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			log.Printf("[webhook] failed to create request: url=%s error=%v", endpoint, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Godecide-Signature", signature)
		req.Header.Set("X-Godecide-Event", event.Type)
		req.Header.Set("X-Godecide-Delivery", deliveryID)

		resp, err := d.client.Do(req)
		duration := time.Since(start)

		var statusCode int
		var errorMsg string
		if err != nil {
			errorMsg = err.Error()
		} else {
			statusCode = resp.StatusCode
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
			resp.Body.Close()
		}

		if err == nil && statusCode >= 200 && statusCode < 300 {
			log.Printf("[webhook] delivery succeeded: url=%s status=%d duration=%dms attempt=%d/%d",
				endpoint, statusCode, duration.Milliseconds(), attempt+1, maxRetries+1)
			return
		}

		if attempt < maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			log.Printf("[webhook] delivery failed: url=%s status=%d error=%q attempt=%d/%d retry_in=%s",
				endpoint, statusCode, errorMsg, attempt+1, maxRetries+1, backoff)
			d.sleep(backoff)
		} else {
			log.Printf("[webhook] delivery failed permanently: url=%s status=%d error=%q attempts=%d",
				endpoint, statusCode, errorMsg, attempt+1)
		}
	}
}
