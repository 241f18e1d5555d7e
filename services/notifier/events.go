package notifier

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// Critical events
	EventCircuitBreakerOpen  EventType = "circuit_breaker_open"
	EventServerStartupFailed EventType = "server_startup_failed"

	// Warning events
	EventHighFailureRate  EventType = "high_failure_rate"
	EventMetadataDegraded EventType = "metadata_degraded"

	// Info events
	EventCircuitBreakerRecovered EventType = "circuit_breaker_recovered"
	EventServerStarted           EventType = "server_started"
	EventCacheCleared            EventType = "cache_cleared"
)

// Severity represents the severity level of an event
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Event represents a system event
type Event struct {
	Type      EventType
	Severity  Severity
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, severity Severity, message string) *Event {
	return &Event{
		Type:      eventType,
		Severity:  severity,
		Message:   message,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// WithData adds data to the event (chainable)
func (e *Event) WithData(key string, value interface{}) *Event {
	e.Data[key] = value
	return e
}

// EventHandler is a function that handles events
type EventHandler func(event *Event)

// EventBus fans events out to subscribers. Handlers run on their own
// goroutine so a slow notifier never blocks the publisher.
type EventBus struct {
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
	mu          sync.RWMutex
}

var globalBus *EventBus
var busOnce sync.Once

// NewEventBus creates an empty event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers:    make(map[EventType][]EventHandler),
		allHandlers: make([]EventHandler, 0),
	}
}

// GetEventBus returns the global event bus instance
func GetEventBus() *EventBus {
	busOnce.Do(func() {
		globalBus = NewEventBus()
	})
	return globalBus
}

// Subscribe adds a handler for a specific event type
func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll adds a handler that receives all events
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

// Publish sends an event to all subscribed handlers
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.handlers[event.Type] {
		go handler(event)
	}

	for _, handler := range b.allHandlers {
		go handler(event)
	}
}

// PublishCircuitBreakerOpen publishes a circuit breaker open event
func PublishCircuitBreakerOpen(name string, failures int, cooldown time.Duration) {
	event := NewEvent(EventCircuitBreakerOpen, SeverityCritical,
		"Circuit breaker has opened due to consecutive failures").
		WithData("name", name).
		WithData("failures", failures).
		WithData("cooldown", cooldown.String())
	GetEventBus().Publish(event)
}

// PublishCircuitBreakerRecovered publishes a circuit breaker recovery event
func PublishCircuitBreakerRecovered(name string) {
	event := NewEvent(EventCircuitBreakerRecovered, SeverityInfo,
		"Circuit breaker has recovered and is operational").
		WithData("name", name)
	GetEventBus().Publish(event)
}

// PublishHighFailureRate publishes a high failure rate warning
func PublishHighFailureRate(name string, failures, threshold int) {
	event := NewEvent(EventHighFailureRate, SeverityWarning,
		"High failure rate detected, circuit breaker may trip soon").
		WithData("name", name).
		WithData("failures", failures).
		WithData("threshold", threshold)
	GetEventBus().Publish(event)
}

// PublishMetadataDegraded publishes when one or more reference lists failed
// to load and were replaced with empty lists
func PublishMetadataDegraded(failed []string, firstErr error) {
	event := NewEvent(EventMetadataDegraded, SeverityWarning,
		"Filter metadata loaded with missing reference lists").
		WithData("failed", failed).
		WithData("error", errString(firstErr))
	GetEventBus().Publish(event)
}

// PublishCacheCleared publishes when the memo cache is cleared
func PublishCacheCleared(entries int) {
	event := NewEvent(EventCacheCleared, SeverityInfo,
		"Cache has been cleared").
		WithData("entries", entries)
	GetEventBus().Publish(event)
}

// PublishServerStarted publishes when server starts successfully
func PublishServerStarted(port, upstream string) {
	event := NewEvent(EventServerStarted, SeverityInfo,
		"Server started successfully").
		WithData("port", port).
		WithData("upstream", upstream)
	GetEventBus().Publish(event)
}

// PublishServerStartupFailed publishes when server fails to start
func PublishServerStartupFailed(component string, err error) {
	event := NewEvent(EventServerStartupFailed, SeverityCritical,
		"Server failed to start").
		WithData("component", component).
		WithData("error", errString(err))
	GetEventBus().Publish(event)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
