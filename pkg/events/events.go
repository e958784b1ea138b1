package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of release lifecycle event
type EventType string

const (
	EventDeployStarted     EventType = "deploy.started"
	EventDeployHealthy     EventType = "deploy.healthy"
	EventDeployFailed      EventType = "deploy.failed"
	EventCanaryStarted     EventType = "canary.started"
	EventCanaryPassed      EventType = "canary.passed"
	EventCanaryFailed      EventType = "canary.failed"
	EventPromoteStep       EventType = "promote.step"
	EventPromoteCompleted  EventType = "promote.completed"
	EventRollbackStarted   EventType = "rollback.started"
	EventRollbackCompleted EventType = "rollback.completed"
)

// Event represents one release lifecycle event
type Event struct {
	ID          string
	Type        EventType
	Environment string
	Timestamp   time.Time
	Message     string
	Metadata    map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe registers a new subscriber
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 10)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscriber
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish emits an event to all subscribers
func (b *Broker) Publish(eventType EventType, environment, message string, metadata map[string]string) {
	event := &Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		Environment: environment,
		Timestamp:   time.Now(),
		Message:     message,
		Metadata:    metadata,
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

// run distributes events to subscribers
func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.mu.RLock()
			for sub := range b.subscribers {
				// Non-blocking send: a slow subscriber drops events
				// rather than stalling the release
				select {
				case sub <- event:
				default:
				}
			}
			b.mu.RUnlock()
		case <-b.stopCh:
			return
		}
	}
}
