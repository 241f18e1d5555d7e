package notifier

import (
	"fmt"
	"dogs-api-go/logcolors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultAlertCooldown is the minimum gap between alerts of the same type
	DefaultAlertCooldown = 15 * time.Minute
)

// AlertHandler turns bus events into notifications, throttled per event type
type AlertHandler struct {
	notifiers        []Notifier
	cooldowns        map[EventType]time.Time
	cooldownDuration time.Duration
	mu               sync.Mutex
}

// AlertConfig holds configuration for the alert handler
type AlertConfig struct {
	Notifiers        []Notifier
	CooldownDuration time.Duration
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(config AlertConfig) *AlertHandler {
	cooldown := config.CooldownDuration
	if cooldown == 0 {
		cooldown = DefaultAlertCooldown
	}

	return &AlertHandler{
		notifiers:        config.Notifiers,
		cooldowns:        make(map[EventType]time.Time),
		cooldownDuration: cooldown,
	}
}

// Start subscribes the handler to the given bus
func (h *AlertHandler) Start(bus *EventBus) {
	bus.SubscribeAll(h.HandleEvent)
	log.Infof("%s Alert handler started (cooldown: %v, notifiers: %d)",
		logcolors.LogNotifier, h.cooldownDuration, len(h.notifiers))
}

// HandleEvent formats the event and sends it unless its type is cooling down
func (h *AlertHandler) HandleEvent(event *Event) {
	if !h.shouldAlert(event.Type) {
		log.Debugf("%s Skipping alert for %s (cooldown active)", logcolors.LogNotifier, event.Type)
		return
	}

	subject, message := FormatAlert(event)
	if subject == "" {
		return
	}

	h.sendAlert(subject, message)
}

func (h *AlertHandler) shouldAlert(eventType EventType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	lastAlert, exists := h.cooldowns[eventType]
	if !exists || time.Since(lastAlert) >= h.cooldownDuration {
		h.cooldowns[eventType] = time.Now()
		return true
	}
	return false
}

// FormatAlert renders an event as a subject and body. Unknown event types
// yield an empty subject.
func FormatAlert(event *Event) (subject, message string) {
	switch event.Type {
	case EventCircuitBreakerOpen:
		subject = "Circuit Breaker OPEN"
		message = fmt.Sprintf(
			"The %s circuit breaker has tripped after %d consecutive failures.\n\n"+
				"Upstream requests are blocked for %s. Cached and fallback data is still served.\n\n"+
				"Action: Check the rescue API status.",
			getString(event.Data, "name"), getInt(event.Data, "failures"), getString(event.Data, "cooldown"))

	case EventServerStartupFailed:
		subject = "Server Startup FAILED"
		message = fmt.Sprintf(
			"The server failed to start.\n\n"+
				"Component: %s\n"+
				"Error: %s",
			getString(event.Data, "component"), getString(event.Data, "error"))

	case EventHighFailureRate:
		subject = "High Failure Rate Warning"
		message = fmt.Sprintf(
			"The %s circuit breaker has recorded %d/%d failures.\n\n"+
				"If failures continue, the circuit will open.",
			getString(event.Data, "name"), getInt(event.Data, "failures"), getInt(event.Data, "threshold"))

	case EventMetadataDegraded:
		failed := getStringSlice(event.Data, "failed")
		subject = "Filter Metadata Degraded"
		message = fmt.Sprintf(
			"These reference lists failed and were served empty: %s\n\n"+
				"First error: %s",
			strings.Join(failed, ", "), getString(event.Data, "error"))

	case EventCircuitBreakerRecovered:
		subject = "Circuit Breaker Recovered"
		message = fmt.Sprintf("The %s circuit breaker has recovered and is now operational.", getString(event.Data, "name"))

	case EventServerStarted:
		subject = "Server Started"
		message = fmt.Sprintf("Server started on port %s (upstream: %s).",
			getString(event.Data, "port"), getString(event.Data, "upstream"))

	case EventCacheCleared:
		subject = "Cache Cleared"
		message = fmt.Sprintf("The memo cache was cleared (%d entries dropped).", getInt(event.Data, "entries"))

	default:
		return "", ""
	}

	switch event.Severity {
	case SeverityCritical:
		subject = "🚨 " + subject
	case SeverityWarning:
		subject = "⚠️ " + subject
	case SeverityInfo:
		subject = "ℹ️ " + subject
	}

	return subject, message
}

func (h *AlertHandler) sendAlert(subject, message string) {
	if len(h.notifiers) == 0 {
		log.Warnf("%s No notifiers configured, skipping alert: %s", logcolors.LogNotifier, subject)
		return
	}

	log.Infof("%s Sending alert: %s", logcolors.LogNotifier, subject)

	successCount := 0
	for _, n := range h.notifiers {
		if err := n.Send(subject, message); err != nil {
			log.Errorf("%s Failed to send alert via notifier: %v", logcolors.LogNotifier, err)
		} else {
			successCount++
		}
	}

	if successCount > 0 {
		log.Infof("%s Alert sent via %d/%d notifiers", logcolors.LogNotifier, successCount, len(h.notifiers))
	}
}

// ResetCooldown clears the cooldown for one event type
func (h *AlertHandler) ResetCooldown(eventType EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cooldowns, eventType)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}

func getInt(data map[string]interface{}, key string) int {
	if val, ok := data[key].(int); ok {
		return val
	}
	return 0
}

func getStringSlice(data map[string]interface{}, key string) []string {
	if val, ok := data[key].([]string); ok {
		return val
	}
	return nil
}
