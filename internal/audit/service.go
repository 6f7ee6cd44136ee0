// Package audit records admin mutations (rule set upserts and deletes) to a
// pluggable sink. Logging is asynchronous and never blocks the caller.
package audit

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Action constants for audit logging
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ResourceTypeRuleSet is the only audited resource type.
const ResourceTypeRuleSet = "ruleset"

// Status constants for audit logging
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Clock interface for testable time operations
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Event represents a canonical audit event
type Event struct {
	OccurredAt   time.Time `json:"occurred_at"`
	RequestID    string    `json:"request_id"`
	Action       string    `json:"action"` // created, updated, deleted
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Environment  string    `json:"environment,omitempty"`
	Status       string    `json:"status"` // success, failure
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Sink defines the interface for persisting audit events
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Service provides audit logging functionality
type Service struct {
	sink   Sink
	clock  Clock
	queue  chan Event
	stopCh chan struct{}
	done   chan struct{}
	closed int32 // atomic flag to prevent double-close
}

// NewService creates a new audit service with a background worker.
func NewService(sink Sink, queueSize int) *Service {
	s := &Service{
		sink:   sink,
		clock:  SystemClock{},
		queue:  make(chan Event, queueSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.worker()
	return s
}

// worker processes audit events in the background
func (s *Service) worker() {
	defer close(s.done)
	for {
		select {
		case event := <-s.queue:
			s.write(event)
		case <-s.stopCh:
			// Drain remaining events before stopping
			for {
				select {
				case event := <-s.queue:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.Write(ctx, event); err != nil {
		// Audit logging must be non-blocking; failures are logged, not returned.
		log.Printf("audit: failed to write event: %v", err)
	}
}

// Close gracefully shuts down the audit service. It drains any remaining
// queued events before returning.
//
// Close is safe to call multiple times - subsequent calls are no-ops.
func (s *Service) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil // Already closed
	}
	close(s.stopCh)
	<-s.done
	return nil
}

// Log queues an audit event for asynchronous processing
func (s *Service) Log(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now()
	}
	if event.RequestID == "" {
		event.RequestID = uuid.NewString()
	}
	if event.ResourceType == "" {
		event.ResourceType = ResourceTypeRuleSet
	}

	// Try to queue, drop if full
	select {
	case s.queue <- event:
	default:
		log.Printf("audit: queue full, dropping event for %s/%s", event.ResourceType, event.ResourceID)
	}
}
