// Package debounce separates the raw search text from the value that is
// actually sent upstream.
package debounce

import (
	"dogs-api-go/logcolors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultDelay = 300 * time.Millisecond

// Search is a trailing-edge debounced text input. SearchValue follows every
// change at once; DebouncedValue only takes the latest value after delay
// has passed with no further change.
type Search struct {
	mu        sync.Mutex
	delay     time.Duration
	onCommit  func(string)
	value     string
	debounced string
	timer     *time.Timer
	gen       uint64 // bumped on every change, clear and close
	closed    bool
}

// New creates a debounced search. onCommit, if non-nil, is called with each
// new debounced value, on the timer goroutine or on the ClearSearch caller.
func New(delay time.Duration, onCommit func(string)) *Search {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Search{delay: delay, onCommit: onCommit}
}

// NewWithValue creates a debounced search whose raw and debounced values
// both start at initial
func NewWithValue(delay time.Duration, initial string, onCommit func(string)) *Search {
	s := New(delay, onCommit)
	s.value = initial
	s.debounced = initial
	return s
}

// HandleSearchChange records a keystroke
func (s *Search) HandleSearchChange(v string) {
	s.SetSearchValue(v)
}

// SetSearchValue replaces the raw value and restarts the quiet period
func (s *Search) SetSearchValue(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.value = v
	s.gen++
	gen := s.gen

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// fire commits the raw value if no change, clear or close happened since
// the timer for gen was armed
func (s *Search) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.debounced == s.value {
		s.mu.Unlock()
		return
	}
	s.debounced = s.value
	v := s.debounced
	s.mu.Unlock()

	log.Debugf("%s Committed %q", logcolors.LogSearch, v)
	if s.onCommit != nil {
		s.onCommit(v)
	}
}

// ClearSearch empties both values at once and drops any pending commit
func (s *Search) ClearSearch() {
	if s.clear() && s.onCommit != nil {
		s.onCommit("")
	}
}

// Discard empties both values like ClearSearch but never commits. Used when
// the caller publishes the cleared state itself.
func (s *Search) Discard() {
	s.clear()
}

// clear reports whether the debounced value changed
func (s *Search) clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.value = ""
	changed := s.debounced != ""
	s.debounced = ""
	return changed
}

// SearchValue returns the raw value
func (s *Search) SearchValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// DebouncedValue returns the last committed value
func (s *Search) DebouncedValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debounced
}

// Pending reports whether a commit is scheduled
func (s *Search) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Close cancels any pending commit. Nothing commits afterwards.
func (s *Search) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
