package circuitbreaker

import (
	"dogs-api-go/logcolors"
	"dogs-api-go/services/notifier"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Normal operation, requests allowed
	StateOpen                  // Circuit tripped, requests blocked
	StateHalfOpen              // One probe request in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// CircuitBreaker guards an upstream dependency. After Threshold consecutive
// failures it rejects calls for Cooldown, then lets a single probe through.
type CircuitBreaker struct {
	name            string
	state           State
	failures        int
	threshold       int
	cooldown        time.Duration
	halfOpenTimeout time.Duration
	openedAt        time.Time
	halfOpenStart   time.Time
	now             func() time.Time
	mu              sync.RWMutex
}

// Config holds circuit breaker configuration
type Config struct {
	Name            string        // Name for logging and alerts
	Threshold       int           // Consecutive failures before opening
	Cooldown        time.Duration // How long to stay open before probing
	HalfOpenTimeout time.Duration // Max wait for the probe before reopening
	Now             func() time.Time
}

// New creates a new circuit breaker
func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.HalfOpenTimeout <= 0 {
		cfg.HalfOpenTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "upstream"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &CircuitBreaker{
		name:            cfg.Name,
		state:           StateClosed,
		threshold:       cfg.Threshold,
		cooldown:        cfg.Cooldown,
		halfOpenTimeout: cfg.HalfOpenTimeout,
		now:             cfg.Now,
	}
}

// Name returns the breaker name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether a request may proceed. In the open state it flips to
// half-open once the cooldown has passed and admits exactly one probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if now.Sub(cb.openedAt) >= cb.cooldown {
			cb.state = StateHalfOpen
			cb.halfOpenStart = now
			log.Infof("%s Cooldown passed, transitioning to HALF-OPEN", logcolors.CircuitBreakerPrefix(cb.name))
			return true
		}
		return false

	case StateHalfOpen:
		if now.Sub(cb.halfOpenStart) >= cb.halfOpenTimeout {
			cb.state = StateOpen
			cb.openedAt = now
			log.Warnf("%s Probe timed out, transitioning back to OPEN", logcolors.CircuitBreakerPrefix(cb.name))
		}
		return false

	default:
		return true
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateClosed
		cb.failures = 0
		log.Infof("%s Probe succeeded, transitioning to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
		notifier.PublishCircuitBreakerRecovered(cb.name)
	case StateClosed:
		cb.failures = 0
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	if cb.state == StateHalfOpen {
		cb.state = StateOpen
		cb.openedAt = cb.now()
		log.Warnf("%s Probe failed, transitioning back to OPEN", logcolors.CircuitBreakerPrefix(cb.name))
		notifier.PublishCircuitBreakerOpen(cb.name, cb.failures, cb.cooldown)
		return
	}

	if cb.state != StateClosed {
		return
	}

	// Warn at 60% of threshold, never below 2
	warningThreshold := (cb.threshold * 3) / 5
	if warningThreshold < 2 {
		warningThreshold = 2
	}
	if cb.failures == warningThreshold && cb.failures < cb.threshold {
		notifier.PublishHighFailureRate(cb.name, cb.failures, cb.threshold)
	}

	if cb.failures >= cb.threshold {
		cb.state = StateOpen
		cb.openedAt = cb.now()
		log.Warnf("%s Threshold reached (%d failures), transitioning to OPEN (cooldown: %v)",
			logcolors.CircuitBreakerPrefix(cb.name), cb.failures, cb.cooldown)
		notifier.PublishCircuitBreakerOpen(cb.name, cb.failures, cb.cooldown)
	}
}

// Execute runs fn if the breaker allows it. isFailure decides which errors
// count against the breaker; a nil isFailure counts every error.
func (cb *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return err
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Threshold returns the configured failure threshold
func (cb *CircuitBreaker) Threshold() int {
	return cb.threshold
}

// Status is a point-in-time view of the breaker for the status endpoint
type Status struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	Failures       int    `json:"failures"`
	Threshold      int    `json:"threshold"`
	Cooldown       string `json:"cooldown"`
	TimeUntilRetry string `json:"time_until_retry,omitempty"`
}

// Status returns the breaker state, counters and remaining wait
func (cb *CircuitBreaker) Status() Status {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	s := Status{
		Name:      cb.name,
		State:     cb.state.String(),
		Failures:  cb.failures,
		Threshold: cb.threshold,
		Cooldown:  cb.cooldown.String(),
	}
	if wait := cb.timeUntilRetryLocked(); wait > 0 {
		s.TimeUntilRetry = wait.Round(time.Second).String()
	}
	return s
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.openedAt = time.Time{}
	cb.halfOpenStart = time.Time{}
	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
}

// IsOpen returns true if the circuit is open
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state == StateOpen
}

// TimeUntilRetry returns the remaining cooldown when open, the remaining
// probe window when half-open, and 0 when closed.
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.timeUntilRetryLocked()
}

func (cb *CircuitBreaker) timeUntilRetryLocked() time.Duration {
	var start time.Time
	var window time.Duration

	switch cb.state {
	case StateOpen:
		start, window = cb.openedAt, cb.cooldown
	case StateHalfOpen:
		start, window = cb.halfOpenStart, cb.halfOpenTimeout
	default:
		return 0
	}

	elapsed := cb.now().Sub(start)
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}
