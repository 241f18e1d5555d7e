package cache

import (
	"context"
	"sync"
)

// Outcome describes how a wrapped call was served
type Outcome string

const (
	OutcomeHit      Outcome = "HIT"
	OutcomeMiss     Outcome = "MISS"
	OutcomeFallback Outcome = "FALLBACK"
)

func (o Outcome) rank() int {
	switch o {
	case OutcomeHit:
		return 1
	case OutcomeMiss:
		return 2
	case OutcomeFallback:
		return 3
	default:
		return 0
	}
}

// Recorder collects the outcomes of the wrapped calls made under one context.
// The reported outcome is the worst one seen: FALLBACK over MISS over HIT.
// It also keeps the first error that a fallback replaced. A Recorder created
// under another one forwards everything to it.
type Recorder struct {
	parent *Recorder

	mu      sync.Mutex
	outcome Outcome
	err     error
}

// Record notes one call outcome
func (r *Recorder) Record(o Outcome) {
	r.mu.Lock()
	if o.rank() > r.outcome.rank() {
		r.outcome = o
	}
	r.mu.Unlock()

	if r.parent != nil {
		r.parent.Record(o)
	}
}

func (r *Recorder) recordErr(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()

	if r.parent != nil {
		r.parent.recordErr(err)
	}
}

// Err returns the first upstream error hidden behind a fallback
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Outcome returns the aggregated outcome, empty if nothing was recorded
func (r *Recorder) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

type recorderKey struct{}
type cacheOnlyKey struct{}

// WithRecorder attaches a fresh Recorder to ctx, chained to any Recorder
// already there
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	r := &Recorder{parent: recorderFrom(ctx)}
	return context.WithValue(ctx, recorderKey{}, r), r
}

func recorderFrom(ctx context.Context) *Recorder {
	r, _ := ctx.Value(recorderKey{}).(*Recorder)
	return r
}

// WithCacheOnly marks ctx so wrapped calls never reach upstream. A call with
// no fresh entry fails with ErrCacheOnlyMiss.
func WithCacheOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheOnlyKey{}, true)
}

// IsCacheOnly reports whether ctx was marked with WithCacheOnly
func IsCacheOnly(ctx context.Context) bool {
	v, _ := ctx.Value(cacheOnlyKey{}).(bool)
	return v
}
