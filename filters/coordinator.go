package filters

import (
	"dogs-api-go/logcolors"
	"maps"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Snapshot is one committed view of the coordinator. APIParams and
// ActiveFilterCount are always derived from Filters of the same commit.
type Snapshot struct {
	Filters           State             `json:"filters"`
	APIParams         map[string]string `json:"apiParams"`
	ActiveFilterCount int               `json:"activeFilterCount"`
	ResetTrigger      uint64            `json:"resetTrigger"`
	Version           uint64            `json:"version"`
}

func (s Snapshot) clone() Snapshot {
	s.APIParams = maps.Clone(s.APIParams)
	return s
}

// Coordinator is the single owner of filter state. Every change is one
// commit: the state, its derived values and the version move together, and
// subscribers hear about it once.
type Coordinator struct {
	mu   sync.Mutex
	snap Snapshot

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// New returns a coordinator with every field at its sentinel
func New() *Coordinator {
	return NewWithState(DefaultState())
}

// NewWithState returns a coordinator starting from initial, for example a
// state parsed from a URL
func NewWithState(initial State) *Coordinator {
	return &Coordinator{
		snap: Snapshot{
			Filters:           initial,
			APIParams:         initial.APIParams(),
			ActiveFilterCount: initial.ActiveCount(),
		},
		subs: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the latest committed view
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.clone()
}

// Filters returns the current filter values
func (c *Coordinator) Filters() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Filters
}

// Subscribe registers fn to be called after every commit. fn runs on the
// committing goroutine, outside the coordinator lock. Under concurrent
// writers calls may arrive out of order; Version orders them.
func (c *Coordinator) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// UpdateFilter sets one field. Setting a field to its current value, or
// naming an unknown field, changes nothing and notifies no one.
func (c *Coordinator) UpdateFilter(f Field, value string) bool {
	return c.UpdateFilters(map[Field]string{f: value})
}

// UpdateFilters applies several fields as one commit with one notification.
// Entries equal to the current value and unknown fields are ignored.
func (c *Coordinator) UpdateFilters(changes map[Field]string) bool {
	c.mu.Lock()
	next := c.snap.Filters
	n := 0
	for f, v := range changes {
		cur, ok := next.Get(f)
		if !ok || cur == v {
			continue
		}
		next = next.With(f, v)
		n++
	}
	if n == 0 {
		c.mu.Unlock()
		return false
	}
	snap := c.commitLocked(next, false)
	c.mu.Unlock()

	log.Debugf("%s Updated %d field(s), %d active", logcolors.LogFilters, n, snap.ActiveFilterCount)
	c.notify(snap)
	return true
}

// ResetFilters puts every field back to its sentinel and bumps the reset
// trigger. It always commits, even from the default state.
func (c *Coordinator) ResetFilters() {
	c.mu.Lock()
	snap := c.commitLocked(DefaultState(), true)
	c.mu.Unlock()

	log.Debugf("%s Reset (trigger %d)", logcolors.LogFilters, snap.ResetTrigger)
	c.notify(snap)
}

// ClearFilter resets the field with the given short alias. Unknown aliases
// and fields already at their sentinel are no-ops.
func (c *Coordinator) ClearFilter(short string) bool {
	f, ok := LookupShort(short)
	if !ok {
		return false
	}
	return c.UpdateFilter(f, f.Sentinel())
}

// commitLocked installs next as the current state. Caller holds c.mu.
func (c *Coordinator) commitLocked(next State, reset bool) Snapshot {
	c.snap = Snapshot{
		Filters:           next,
		APIParams:         next.APIParams(),
		ActiveFilterCount: next.ActiveCount(),
		ResetTrigger:      c.snap.ResetTrigger,
		Version:           c.snap.Version + 1,
	}
	if reset {
		c.snap.ResetTrigger++
	}
	return c.snap.clone()
}

func (c *Coordinator) notify(snap Snapshot) {
	c.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(snap.clone())
	}
}
