package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type query struct {
	Breed string `json:"breed"`
	Page  int    `json:"page"`
}

func countingFetch(calls *atomic.Int32) func(context.Context, query) ([]string, error) {
	return func(_ context.Context, q query) ([]string, error) {
		calls.Add(1)
		return []string{q.Breed}, nil
	}
}

func TestWrap_ReusesResultWithinTTL(t *testing.T) {
	clk := newClock()
	m := New(Options{TTL: time.Minute, Now: clk.Now})

	var calls atomic.Int32
	fetch := Wrap(m, "animals", countingFetch(&calls))
	ctx := context.Background()

	first, err := fetch(ctx, query{Breed: "Labrador"})
	require.NoError(t, err)
	second, err := fetch(ctx, query{Breed: "Labrador"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)

	clk.Advance(time.Minute)
	_, err = fetch(ctx, query{Breed: "Labrador"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load(), "expired entry must be refetched")
}

func TestWrap_DistinctArgumentsDistinctEntries(t *testing.T) {
	m := New(Options{})

	var calls atomic.Int32
	fetch := Wrap(m, "animals", countingFetch(&calls))
	ctx := context.Background()

	_, _ = fetch(ctx, query{Breed: "Labrador"})
	_, _ = fetch(ctx, query{Breed: "Beagle"})
	_, _ = fetch(ctx, query{Breed: "Labrador", Page: 1})

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{
		`animals:[{"breed":"Beagle","page":0}]`,
		`animals:[{"breed":"Labrador","page":0}]`,
		`animals:[{"breed":"Labrador","page":1}]`,
	}, m.Keys())
}

func TestWrap0_KeyIsName(t *testing.T) {
	m := New(Options{})
	breeds := Wrap0(m, "breeds", func(context.Context) ([]string, error) {
		return []string{"Beagle"}, nil
	})

	_, err := breeds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"breeds"}, m.Keys())
}

func TestWrap_ErrorPropagatesWithName(t *testing.T) {
	m := New(Options{})
	cause := errors.New("connection refused")

	fetch := Wrap(m, "animalBySlug", func(context.Context, string) (string, error) {
		return "", cause
	})

	_, err := fetch(context.Background(), "rex")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "animalBySlug")
	assert.Zero(t, m.Len(), "failures are not stored")
}

func TestWrapWithFallback_ReturnsDefensiveCopy(t *testing.T) {
	m := New(Options{})
	failing := func(context.Context, string) ([]string, error) {
		return nil, errors.New("upstream 500")
	}
	fetch := WrapWithFallback(m, "regions", failing, []string{"Anywhere"})
	ctx := context.Background()

	got, err := fetch(ctx, "DE")
	require.NoError(t, err)
	assert.Equal(t, []string{"Anywhere"}, got)

	got[0] = "mutated"

	again, err := fetch(ctx, "DE")
	require.NoError(t, err)
	assert.Equal(t, []string{"Anywhere"}, again)
	assert.Equal(t, int64(2), m.Stats().Fallbacks)
}

func TestWrap0WithFallback_EmptyListStaysNonNil(t *testing.T) {
	m := New(Options{})
	breeds := Wrap0WithFallback(m, "breeds", func(context.Context) ([]string, error) {
		return nil, errors.New("timeout")
	}, []string{})

	got, err := breeds(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWrapWithFallback_StructFallback(t *testing.T) {
	type counts struct {
		Dogs  int            `json:"dogs"`
		ByAge map[string]int `json:"by_age"`
	}

	m := New(Options{})
	fb := counts{ByAge: map[string]int{}}
	stats := Wrap0WithFallback(m, "statistics", func(context.Context) (counts, error) {
		return counts{}, errors.New("down")
	}, fb)

	got, err := stats(context.Background())
	require.NoError(t, err)
	got.ByAge["puppy"] = 3

	again, err := stats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.ByAge)
	assert.Empty(t, fb.ByAge)
}

func TestBypassMode(t *testing.T) {
	m := New(Options{Mode: ModeBypass})

	var calls atomic.Int32
	fetch := Wrap(m, "animals", countingFetch(&calls))
	ctx := context.Background()

	_, _ = fetch(ctx, query{Breed: "Pug"})
	_, _ = fetch(ctx, query{Breed: "Pug"})

	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, m.Len())

	withFallback := WrapWithFallback(m, "regions", func(context.Context, string) ([]string, error) {
		return nil, errors.New("down")
	}, []string{})
	got, err := withFallback(ctx, "FR")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, m.Len())
}

func TestWrap_ConcurrentMissesShareOneCall(t *testing.T) {
	m := New(Options{})

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := Wrap(m, "organizations", func(context.Context, int) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"Happy Paws"}, nil
	})

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = fetch(context.Background(), 1)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"Happy Paws"}, r)
	}
}

func TestSweep_DropsStaleEntriesPastThreshold(t *testing.T) {
	clk := newClock()
	m := New(Options{TTL: time.Minute, SweepThreshold: 2, Now: clk.Now})

	fetch := Wrap(m, "animal", func(_ context.Context, slug string) (string, error) {
		return slug, nil
	})
	ctx := context.Background()

	_, _ = fetch(ctx, "a")
	_, _ = fetch(ctx, "b")
	clk.Advance(2 * time.Minute)
	assert.Equal(t, 2, m.Len(), "stale entries stay until the map passes the threshold")

	_, _ = fetch(ctx, "c")
	assert.Equal(t, []string{`animal:["c"]`}, m.Keys())
}

func TestSweep_KeepsFreshEntries(t *testing.T) {
	clk := newClock()
	m := New(Options{TTL: time.Minute, SweepThreshold: 1, Now: clk.Now})

	fetch := Wrap(m, "animal", func(_ context.Context, slug string) (string, error) {
		return slug, nil
	})
	ctx := context.Background()

	_, _ = fetch(ctx, "a")
	clk.Advance(30 * time.Second)
	_, _ = fetch(ctx, "b")

	assert.Equal(t, 2, m.Len())
	assert.Zero(t, m.Sweep())
}

func TestCacheOnly(t *testing.T) {
	m := New(Options{})

	var calls atomic.Int32
	fetch := Wrap(m, "animals", countingFetch(&calls))
	cacheOnly := WithCacheOnly(context.Background())

	_, err := fetch(cacheOnly, query{Breed: "Husky"})
	assert.ErrorIs(t, err, ErrCacheOnlyMiss)
	assert.Zero(t, calls.Load())

	_, err = fetch(context.Background(), query{Breed: "Husky"})
	require.NoError(t, err)

	got, err := fetch(cacheOnly, query{Breed: "Husky"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Husky"}, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRecorderAndObserver(t *testing.T) {
	var mu sync.Mutex
	seen := map[string][]Outcome{}
	m := New(Options{Observer: func(name string, o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		seen[name] = append(seen[name], o)
	}})

	ok := Wrap0(m, "breeds", func(context.Context) ([]string, error) { return []string{"Pug"}, nil })
	bad := Wrap0WithFallback(m, "countries", func(context.Context) ([]string, error) {
		return nil, errors.New("down")
	}, []string{})

	ctx, rec := WithRecorder(context.Background())
	_, _ = ok(ctx)
	assert.Equal(t, OutcomeMiss, rec.Outcome())

	ctx, rec = WithRecorder(context.Background())
	_, _ = ok(ctx)
	assert.Equal(t, OutcomeHit, rec.Outcome())

	_, _ = bad(ctx)
	assert.Equal(t, OutcomeFallback, rec.Outcome())
	require.Error(t, rec.Err())
	assert.Contains(t, rec.Err().Error(), "countries: down")

	assert.Equal(t, []Outcome{OutcomeMiss, OutcomeHit}, seen["breeds"])
	assert.Equal(t, []Outcome{OutcomeFallback}, seen["countries"])
}

func TestNestedRecorderForwardsToParent(t *testing.T) {
	m := New(Options{})
	bad := Wrap0WithFallback(m, "regions", func(context.Context) ([]string, error) {
		return nil, errors.New("timeout")
	}, []string{})

	outer, parent := WithRecorder(context.Background())
	inner, child := WithRecorder(outer)
	_, _ = bad(inner)

	assert.Equal(t, OutcomeFallback, child.Outcome())
	assert.Equal(t, OutcomeFallback, parent.Outcome())
	require.Error(t, parent.Err())
	assert.Contains(t, parent.Err().Error(), "regions: timeout")
}

func TestClearAndStats(t *testing.T) {
	m := New(Options{})
	fetch := Wrap(m, "animal", func(_ context.Context, slug string) (string, error) {
		return slug, nil
	})
	ctx := context.Background()

	_, _ = fetch(ctx, "a")
	_, _ = fetch(ctx, "a")
	_, _ = fetch(ctx, "b")

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, "ttl", stats.Mode)
	assert.Equal(t, "5m0s", stats.TTL)

	assert.Equal(t, 2, m.Clear())
	assert.Zero(t, m.Len())
}

func TestWrapWithFallback_UnserializableFallbackPanics(t *testing.T) {
	m := New(Options{})
	assert.Panics(t, func() {
		WrapWithFallback(m, "bad", func(context.Context, int) (chan int, error) {
			return nil, nil
		}, make(chan int))
	})
}

func TestWrap_CancelledCallerDoesNotFailSharedCall(t *testing.T) {
	m := New(Options{})

	var calls atomic.Int32
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	fetch := Wrap0(m, "breeds", func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		started <- struct{}{}
		select {
		case <-release:
			return []string{"Beagle"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := fetch(ctxA)
		errA <- err
	}()
	<-started

	type result struct {
		breeds []string
		err    error
	}
	resB := make(chan result, 1)
	go func() {
		breeds, err := fetch(context.Background())
		resB <- result{breeds, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, []string{"Beagle"}, b.breeds)
	assert.Equal(t, int32(1), calls.Load())

	cached, err := fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Beagle"}, cached)
	assert.Equal(t, int32(1), calls.Load(), "shared result is stored")
}

func TestWrap_SharedCallTimesOut(t *testing.T) {
	m := New(Options{CallTimeout: 20 * time.Millisecond})

	fetch := Wrap0(m, "breeds", func(ctx context.Context) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := fetch(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "breeds:")
}

func TestWrap_MismatchedCachedTypeIsAnError(t *testing.T) {
	m := New(Options{})
	ctx := context.Background()

	names := Wrap0(m, "breeds", func(context.Context) ([]string, error) {
		return []string{"Beagle"}, nil
	})
	count := Wrap0(m, "breeds", func(context.Context) (int, error) {
		return 1, nil
	})

	_, err := names(ctx)
	require.NoError(t, err)

	n, err := count(ctx)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "[]string")
}
