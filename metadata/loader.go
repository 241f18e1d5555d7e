// Package metadata loads the reference lists behind the filter controls.
// The lists are fetched together and settle independently: one failed list
// comes back empty without holding up or blanking the others.
package metadata

import (
	"context"
	"dogs-api-go/cache"
	"dogs-api-go/filters"
	"dogs-api-go/logcolors"
	"dogs-api-go/services/catalog"
	"dogs-api-go/services/notifier"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// List names, as reported in Result.Failed
const (
	ListStandardizedBreeds = "standardizedBreeds"
	ListLocationCountries  = "locationCountries"
	ListAvailableCountries = "availableCountries"
	ListOrganizations      = "organizations"
	ListAvailableRegions   = "availableRegions"
)

// Metadata holds the reference lists. Failed lists are empty, never nil.
type Metadata struct {
	StandardizedBreeds []string               `json:"standardizedBreeds"`
	LocationCountries  []string               `json:"locationCountries"`
	AvailableCountries []string               `json:"availableCountries"`
	Organizations      []catalog.Organization `json:"organizations"`
	AvailableRegions   []string               `json:"availableRegions"`
}

func emptyMetadata() Metadata {
	return Metadata{
		StandardizedBreeds: []string{},
		LocationCountries:  []string{},
		AvailableCountries: []string{},
		Organizations:      []catalog.Organization{},
		AvailableRegions:   []string{},
	}
}

// Source is what the loader reads from; *catalog.Service implements it
type Source interface {
	StandardizedBreeds(ctx context.Context) ([]string, error)
	LocationCountries(ctx context.Context) ([]string, error)
	AvailableCountries(ctx context.Context) ([]string, error)
	Organizations(ctx context.Context) ([]catalog.Organization, error)
	AvailableRegions(ctx context.Context, country string) ([]string, error)
}

// Result is the settled outcome of one Load
type Result struct {
	Metadata Metadata
	Err      error    // first failure in settle order, nil if none
	Failed   []string // names of the lists that failed
	Stale    bool     // superseded by a newer Load or by Close; not applied
}

// Loader owns the metadata state for one consumer
type Loader struct {
	src Source

	mu        sync.Mutex
	meta      Metadata
	loading   bool
	err       error
	gen       uint64
	regionGen uint64
	closed    bool
}

// NewLoader creates a loader with empty lists
func NewLoader(src Source) *Loader {
	return &Loader{
		src:  src,
		meta: emptyMetadata(),
	}
}

// Metadata returns the last applied lists
func (l *Loader) Metadata() Metadata {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.meta
}

// Loading reports whether a Load is in flight
func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Err returns the first error of the last applied Load
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close marks the loader as gone. In-flight and later loads are discarded.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.gen++
	l.regionGen++
	l.loading = false
}

// settler records failures in the order fetches settle
type settler struct {
	mu       sync.Mutex
	firstErr error
	failed   []string
}

func (s *settler) fail(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstErr == nil {
		s.firstErr = fmt.Errorf("%s: %w", name, err)
	}
	s.failed = append(s.failed, name)
}

// fetchList runs one reference fetch. A fallback served by the cache layer
// still counts as a failure here.
func fetchList[T any](ctx context.Context, s *settler, name string, fetch func(context.Context) ([]T, error)) []T {
	ctx, rec := cache.WithRecorder(ctx)
	list, err := fetch(ctx)
	if err == nil {
		err = rec.Err()
	}
	if err != nil {
		s.fail(name, err)
		return []T{}
	}
	if list == nil {
		list = []T{}
	}
	return list
}

// Load fetches the four reference lists concurrently and waits for all of
// them to settle. It never fails as a whole.
func (l *Loader) Load(ctx context.Context) Result {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return Result{Metadata: emptyMetadata(), Stale: true}
	}
	l.gen++
	gen := l.gen
	l.loading = true
	l.mu.Unlock()

	var (
		g    errgroup.Group
		s    settler
		next = emptyMetadata()
	)

	g.Go(func() error {
		next.StandardizedBreeds = fetchList(ctx, &s, ListStandardizedBreeds, l.src.StandardizedBreeds)
		return nil
	})
	g.Go(func() error {
		next.LocationCountries = fetchList(ctx, &s, ListLocationCountries, l.src.LocationCountries)
		return nil
	})
	g.Go(func() error {
		next.AvailableCountries = fetchList(ctx, &s, ListAvailableCountries, l.src.AvailableCountries)
		return nil
	})
	g.Go(func() error {
		next.Organizations = fetchList(ctx, &s, ListOrganizations, l.src.Organizations)
		return nil
	})
	_ = g.Wait()

	res := Result{Metadata: next, Err: s.firstErr, Failed: s.failed}

	l.mu.Lock()
	if gen != l.gen || l.closed {
		l.mu.Unlock()
		res.Stale = true
		log.Debugf("%s Discarding stale load (generation %d)", logcolors.LogMetadata, gen)
		return res
	}
	next.AvailableRegions = l.meta.AvailableRegions
	l.meta = next
	l.err = s.firstErr
	l.loading = false
	l.mu.Unlock()

	res.Metadata = next
	if s.firstErr != nil {
		log.Warnf("%s %d of 4 lists failed (%v): %v", logcolors.LogMetadata, len(s.failed), s.failed, s.firstErr)
		notifier.PublishMetadataDegraded(s.failed, s.firstErr)
	} else {
		log.Debugf("%s Loaded %d breeds, %d organizations", logcolors.LogMetadata, len(next.StandardizedBreeds), len(next.Organizations))
	}
	return res
}

// LoadRegions refreshes the region list for country. An empty country or
// the "Any country" sentinel clears the list without fetching.
func (l *Loader) LoadRegions(ctx context.Context, country string) ([]string, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return []string{}, nil
	}
	l.regionGen++
	gen := l.regionGen
	if country == "" || country == filters.AnyCountry {
		l.meta.AvailableRegions = []string{}
		l.mu.Unlock()
		return []string{}, nil
	}
	l.mu.Unlock()

	var s settler
	regions := fetchList(ctx, &s, ListAvailableRegions, func(ctx context.Context) ([]string, error) {
		return l.src.AvailableRegions(ctx, country)
	})

	l.mu.Lock()
	if gen == l.regionGen && !l.closed {
		l.meta.AvailableRegions = regions
	}
	l.mu.Unlock()

	return regions, s.firstErr
}
