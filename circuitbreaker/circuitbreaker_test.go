package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is advanced manually so state transitions don't depend on sleeps
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := newFakeClock()
	cb := New(Config{
		Name:            "test",
		Threshold:       threshold,
		Cooldown:        cooldown,
		HalfOpenTimeout: 5 * time.Second,
		Now:             clock.Now,
	})
	return cb, clock
}

func TestNew(t *testing.T) {
	cb := New(Config{
		Name:      "rescue-api",
		Threshold: 3,
		Cooldown:  10 * time.Second,
	})

	if cb.Name() != "rescue-api" {
		t.Errorf("Expected name 'rescue-api', got %q", cb.Name())
	}
	if cb.Threshold() != 3 {
		t.Errorf("Expected threshold 3, got %d", cb.Threshold())
	}
	if cb.cooldown != 10*time.Second {
		t.Errorf("Expected cooldown 10s, got %v", cb.cooldown)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected initial state CLOSED, got %s", cb.State())
	}
}

func TestNew_Defaults(t *testing.T) {
	cb := New(Config{})

	if cb.threshold != 5 {
		t.Errorf("Expected default threshold 5, got %d", cb.threshold)
	}
	if cb.cooldown != time.Minute {
		t.Errorf("Expected default cooldown 1m, got %v", cb.cooldown)
	}
	if cb.halfOpenTimeout != 30*time.Second {
		t.Errorf("Expected default halfOpenTimeout 30s, got %v", cb.halfOpenTimeout)
	}
	if cb.name != "upstream" {
		t.Errorf("Expected default name 'upstream', got %q", cb.name)
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	for i := 1; i < 3; i++ {
		cb.RecordFailure()
		if cb.State() != StateClosed {
			t.Fatalf("Expected CLOSED after %d failures, got %s", i, cb.State())
		}
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("Expected OPEN after 3 failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false in OPEN state")
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.Failures() != 2 {
		t.Errorf("Expected 2 failures, got %d", cb.Failures())
	}

	cb.RecordSuccess()
	if cb.Failures() != 0 {
		t.Errorf("Expected 0 failures after success, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_HalfOpenCycle(t *testing.T) {
	tests := []struct {
		name      string
		probeOK   bool
		wantState State
	}{
		{"probe success closes", true, StateClosed},
		{"probe failure reopens", false, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(2, time.Minute)
			cb.RecordFailure()
			cb.RecordFailure()

			clock.Advance(59 * time.Second)
			if cb.Allow() {
				t.Fatal("Expected Allow() to be false before cooldown elapsed")
			}

			clock.Advance(time.Second)
			if !cb.Allow() {
				t.Fatal("Expected Allow() to admit a probe after cooldown")
			}
			if cb.State() != StateHalfOpen {
				t.Fatalf("Expected HALF-OPEN, got %s", cb.State())
			}
			if cb.Allow() {
				t.Error("Expected a second request to be blocked while probing")
			}

			if tt.probeOK {
				cb.RecordSuccess()
			} else {
				cb.RecordFailure()
			}

			if cb.State() != tt.wantState {
				t.Errorf("Expected %s, got %s", tt.wantState, cb.State())
			}
		})
	}
}

func TestCircuitBreaker_HalfOpenTimeout(t *testing.T) {
	cb, clock := newTestBreaker(1, 10*time.Second)
	cb.RecordFailure()

	clock.Advance(10 * time.Second)
	if !cb.Allow() {
		t.Fatal("Expected probe to be admitted")
	}

	clock.Advance(5 * time.Second)
	if cb.Allow() {
		t.Error("Expected Allow() to be false after probe timeout")
	}
	if cb.State() != StateOpen {
		t.Errorf("Expected OPEN after probe timeout, got %s", cb.State())
	}
	if got := cb.TimeUntilRetry(); got != 10*time.Second {
		t.Errorf("Expected full cooldown after reopening, got %v", got)
	}
}

func TestCircuitBreaker_TimeUntilRetry(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)

	if cb.TimeUntilRetry() != 0 {
		t.Errorf("Expected 0 when closed, got %v", cb.TimeUntilRetry())
	}

	cb.RecordFailure()
	clock.Advance(20 * time.Second)
	if got := cb.TimeUntilRetry(); got != 40*time.Second {
		t.Errorf("Expected 40s remaining, got %v", got)
	}

	clock.Advance(40 * time.Second)
	cb.Allow()
	clock.Advance(2 * time.Second)
	if got := cb.TimeUntilRetry(); got != 3*time.Second {
		t.Errorf("Expected 3s of probe window remaining, got %v", got)
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	errServer := errors.New("server error")
	errClient := errors.New("client error")
	serverOnly := func(err error) bool { return errors.Is(err, errServer) }

	cb, _ := newTestBreaker(2, time.Minute)

	if err := cb.Execute(func() error { return errClient }, serverOnly); !errors.Is(err, errClient) {
		t.Fatalf("Expected client error to pass through, got %v", err)
	}
	if cb.Failures() != 0 {
		t.Errorf("Expected client errors not to count, got %d failures", cb.Failures())
	}

	cb.Execute(func() error { return errServer }, serverOnly)
	cb.Execute(func() error { return errServer }, serverOnly)
	if !cb.IsOpen() {
		t.Fatalf("Expected OPEN after two server errors, got %s", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil }, serverOnly)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected fn not to run while circuit is open")
	}
}

func TestCircuitBreaker_ExecuteNilClassifier(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)

	cb.Execute(func() error { return errors.New("boom") }, nil)
	if !cb.IsOpen() {
		t.Errorf("Expected every error to count with nil classifier, got %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	cb.RecordFailure()

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED after reset, got %s", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("Expected 0 failures after reset, got %d", cb.Failures())
	}
	if !cb.Allow() {
		t.Error("Expected Allow() to be true after reset")
	}
}

func TestCircuitBreaker_Status(t *testing.T) {
	cb, clock := newTestBreaker(2, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()
	clock.Advance(15 * time.Second)

	s := cb.Status()
	if s.Name != "test" || s.State != "OPEN" || s.Failures != 2 || s.Threshold != 2 {
		t.Errorf("Unexpected status: %+v", s)
	}
	if s.TimeUntilRetry != "45s" {
		t.Errorf("Expected 45s until retry, got %q", s.TimeUntilRetry)
	}
}

func TestCircuitBreaker_StateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "CLOSED"},
		{StateOpen, "OPEN"},
		{StateHalfOpen, "HALF-OPEN"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := New(Config{Threshold: 100, Cooldown: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); cb.Allow() }()
		go func() { defer wg.Done(); cb.RecordFailure() }()
		go func() { defer wg.Done(); _ = cb.Status() }()
	}
	wg.Wait()

	if cb.Failures() != 50 {
		t.Errorf("Expected 50 failures, got %d", cb.Failures())
	}
}
