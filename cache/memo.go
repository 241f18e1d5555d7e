package cache

import (
	"context"
	"dogs-api-go/logcolors"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL            = 5 * time.Minute
	DefaultSweepThreshold = 100
	DefaultCallTimeout    = 30 * time.Second
)

// Mode selects whether wrapped calls are stored
type Mode int

const (
	ModeTTL    Mode = iota // store results for TTL
	ModeBypass             // call straight through, store nothing
)

func (m Mode) String() string {
	if m == ModeBypass {
		return "bypass"
	}
	return "ttl"
}

// ErrCacheOnlyMiss is returned for cache-only calls with no fresh entry
var ErrCacheOnlyMiss = errors.New("no fresh cache entry")

// Options configures a Memo. Zero values pick the defaults.
type Options struct {
	TTL            time.Duration
	Mode           Mode
	SweepThreshold int
	Now            func() time.Time

	// CallTimeout bounds a shared upstream call. It runs detached from the
	// caller that started it, so one caller giving up does not fail the rest.
	CallTimeout time.Duration

	// Observer, if set, is told the outcome of every wrapped call
	Observer func(name string, outcome Outcome)
}

type entry struct {
	data      interface{}
	createdAt time.Time
}

// Memo is a process-local TTL memoization table for read-only upstream calls.
// Stored values are shared between callers and must not be mutated.
type Memo struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group

	ttl         time.Duration
	mode        Mode
	threshold   int
	now         func() time.Time
	observer    func(string, Outcome)
	callTimeout time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	fallbacks atomic.Int64
}

// Stats is a snapshot of memo counters
type Stats struct {
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	Fallbacks int64  `json:"fallbacks"`
	Entries   int    `json:"entries"`
	Mode      string `json:"mode"`
	TTL       string `json:"ttl"`
}

// New creates an empty memo
func New(opts Options) *Memo {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SweepThreshold <= 0 {
		opts.SweepThreshold = DefaultSweepThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}

	return &Memo{
		entries:     make(map[string]entry),
		ttl:         opts.TTL,
		mode:        opts.Mode,
		threshold:   opts.SweepThreshold,
		now:         opts.Now,
		observer:    opts.Observer,
		callTimeout: opts.CallTimeout,
	}
}

// Mode returns the configured mode
func (m *Memo) Mode() Mode {
	return m.mode
}

// call is the untyped core behind every wrapper. fallback is the JSON of the
// fallback value captured at wrap time, decode turns it into a fresh copy.
func (m *Memo) call(ctx context.Context, name, key string, fn func(context.Context) (interface{}, error), fallback func() (interface{}, error)) (interface{}, error) {
	if m.mode == ModeTTL {
		if data, ok := m.lookup(key); ok {
			m.hits.Add(1)
			m.record(ctx, name, OutcomeHit)
			return data, nil
		}
	}

	if IsCacheOnly(ctx) {
		return nil, fmt.Errorf("%s: %w", name, ErrCacheOnlyMiss)
	}

	m.misses.Add(1)

	var data interface{}
	var err error
	if m.mode == ModeBypass {
		data, err = fn(ctx)
	} else {
		data, err = m.shared(ctx, key, fn)
	}

	if err == nil {
		m.record(ctx, name, OutcomeMiss)
		return data, nil
	}

	if fallback == nil {
		m.record(ctx, name, OutcomeMiss)
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	m.fallbacks.Add(1)
	m.record(ctx, name, OutcomeFallback)
	if r := recorderFrom(ctx); r != nil {
		r.recordErr(fmt.Errorf("%s: %w", name, err))
	}
	log.Warnf("%s %s failed, serving fallback: %v", logcolors.LogCacheFallback, name, err)

	fb, decodeErr := fallback()
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decode fallback: %w", name, decodeErr)
	}
	return fb, nil
}

// shared runs fn once per key for all concurrent callers. The call keeps the
// first caller's values but not its cancellation; each caller stops waiting
// when its own ctx is done.
func (m *Memo) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := m.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.callTimeout)
		defer cancel()

		v, err := fn(callCtx)
		if err != nil {
			return nil, err
		}
		m.store(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Memo) lookup(key string) (interface{}, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().Sub(e.createdAt) >= m.ttl {
		return nil, false
	}
	return e.data, true
}

func (m *Memo) store(key string, data interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{data: data, createdAt: m.now()}

	if len(m.entries) > m.threshold {
		m.sweepLocked()
	}
}

// sweepLocked drops every stale entry. Caller holds m.mu.
func (m *Memo) sweepLocked() int {
	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if now.Sub(e.createdAt) >= m.ttl {
			delete(m.entries, k)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("%s Removed %d stale entries (%d remaining)", logcolors.LogCacheSweep, removed, len(m.entries))
	}
	return removed
}

// Sweep drops every stale entry and returns how many were removed
func (m *Memo) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

func (m *Memo) record(ctx context.Context, name string, o Outcome) {
	if r := recorderFrom(ctx); r != nil {
		r.Record(o)
	}
	if m.observer != nil {
		m.observer(name, o)
	}
}

// Clear drops every entry and returns how many there were
func (m *Memo) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	m.entries = make(map[string]entry)
	log.Infof("%s Cleared %d entries", logcolors.LogCacheClear, n)
	return n
}

// Len returns the number of stored entries, fresh or stale
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Keys returns the stored keys in sorted order
func (m *Memo) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Stats returns the current counters
func (m *Memo) Stats() Stats {
	return Stats{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Fallbacks: m.fallbacks.Load(),
		Entries:   m.Len(),
		Mode:      m.mode.String(),
		TTL:       m.ttl.String(),
	}
}
