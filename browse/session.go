// Package browse composes the filter coordinator, debounced search and
// metadata loader into one dog-list browsing session.
package browse

import (
	"context"
	"dogs-api-go/debounce"
	"dogs-api-go/filters"
	"dogs-api-go/logcolors"
	"dogs-api-go/metadata"
	"dogs-api-go/services/catalog"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultPageSize = 20

// Source is everything a session reads; *catalog.Service implements it
type Source interface {
	metadata.Source
	Animals(ctx context.Context, q catalog.AnimalQuery) ([]catalog.Animal, error)
}

// Options configures a Session
type Options struct {
	PageSize      int
	DebounceDelay time.Duration
	Initial       filters.State // zero value means every field at its sentinel

	// OnChange, if set, is called after the list or its loading state changes
	OnChange func(View)
}

// View is what a renderer needs from the session
type View struct {
	Filters     filters.Snapshot
	SearchValue string
	Dogs        []catalog.Animal
	HasMore     bool
	Loading     bool
	Err         error
}

// Session drives one list of dogs. The list is refetched from page 0 once
// per filter commit and only depends on the committed filters and reset
// trigger, never on individual fields.
type Session struct {
	src      Source
	coord    *filters.Coordinator
	search   *debounce.Search
	meta     *metadata.Loader
	pageSize int
	onChange func(View)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	dogs        []catalog.Animal
	hasMore     bool
	loading     bool
	err         error
	listGen     uint64
	lastVersion uint64
	params      map[string]string

	unsubscribe func()
}

// New creates a session. Call Start to issue the first fetches and Close
// when done.
func New(ctx context.Context, src Source, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	initial := opts.Initial
	if initial == (filters.State{}) {
		initial = filters.DefaultState()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		src:      src,
		coord:    filters.NewWithState(initial),
		meta:     metadata.NewLoader(src),
		pageSize: opts.PageSize,
		onChange: opts.OnChange,
		ctx:      ctx,
		cancel:   cancel,
	}

	s.search = debounce.NewWithValue(opts.DebounceDelay, initial.SearchQuery, func(v string) {
		s.coord.UpdateFilter(filters.SearchQuery, v)
	})
	s.unsubscribe = s.coord.Subscribe(s.onCommit)
	return s
}

// Start loads the metadata and the first page for the initial filters
func (s *Session) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.meta.Load(s.ctx)
		if c := s.coord.Filters().AvailableCountry; c != filters.AnyCountry {
			s.meta.LoadRegions(s.ctx, c)
		}
	}()

	s.refetch(s.coord.Snapshot())
}

// Coordinator exposes the filter state
func (s *Session) Coordinator() *filters.Coordinator {
	return s.coord
}

// Search exposes the debounced search input
func (s *Session) Search() *debounce.Search {
	return s.search
}

// Metadata exposes the reference-list loader
func (s *Session) Metadata() *metadata.Loader {
	return s.meta
}

// SetFilter updates one field by short alias. Changing the adoptable-to
// country also resets the region and reloads the region list, in the same
// commit. Search goes through the debounced input.
func (s *Session) SetFilter(short, value string) bool {
	f, ok := filters.LookupShort(short)
	if !ok {
		return false
	}

	switch f {
	case filters.SearchQuery:
		s.search.SetSearchValue(value)
		return true
	case filters.AvailableCountry:
		changed := s.coord.UpdateFilters(map[filters.Field]string{
			filters.AvailableCountry: value,
			filters.AvailableRegion:  filters.AnyRegion,
		})
		if changed {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.meta.LoadRegions(s.ctx, value)
			}()
		}
		return changed
	default:
		return s.coord.UpdateFilter(f, value)
	}
}

// ClearFilter resets one field by short alias. Clearing the available
// country also clears its region and region list.
func (s *Session) ClearFilter(short string) bool {
	switch short {
	case filters.SearchQuery.Short():
		s.search.ClearSearch()
		return true
	case filters.AvailableCountry.Short():
		return s.SetFilter(short, filters.AnyCountry)
	default:
		return s.coord.ClearFilter(short)
	}
}

// Reset clears the search and every filter in a single commit
func (s *Session) Reset() {
	s.search.Discard()
	s.coord.ResetFilters()
	s.meta.LoadRegions(s.ctx, filters.AnyCountry)
}

func (s *Session) onCommit(snap filters.Snapshot) {
	s.refetch(snap)
}

// refetch replaces the list with page 0 for snap. Older commits and their
// in-flight responses are dropped.
func (s *Session) refetch(snap filters.Snapshot) {
	s.mu.Lock()
	if snap.Version < s.lastVersion || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.lastVersion = snap.Version
	s.listGen++
	gen := s.listGen
	s.params = snap.APIParams
	s.dogs = nil
	s.hasMore = false
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	log.Debugf("%s Refetching with %d active filter(s) (version %d, reset %d)",
		logcolors.LogBrowse, snap.ActiveFilterCount, snap.Version, snap.ResetTrigger)

	s.notify()
	s.fetchPage(gen, snap.APIParams, 0)
}

// LoadMore fetches the next page and appends it. It returns false when a
// fetch is already running or the last page was short.
func (s *Session) LoadMore() bool {
	s.mu.Lock()
	if s.loading || !s.hasMore || s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	s.loading = true
	gen := s.listGen
	params := s.params
	offset := len(s.dogs)
	s.mu.Unlock()

	s.notify()
	s.fetchPage(gen, params, offset)
	return true
}

func (s *Session) fetchPage(gen uint64, params map[string]string, offset int) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		dogs, err := s.src.Animals(s.ctx, catalog.AnimalQuery{
			Params: params,
			Limit:  s.pageSize,
			Offset: offset,
		})

		s.mu.Lock()
		if gen != s.listGen {
			s.mu.Unlock()
			log.Debugf("%s Dropping stale page (generation %d)", logcolors.LogBrowse, gen)
			return
		}
		s.loading = false
		if err != nil {
			s.err = err
			s.hasMore = false
		} else {
			s.dogs = append(s.dogs, dogs...)
			s.hasMore = len(dogs) == s.pageSize
		}
		s.mu.Unlock()

		if err != nil {
			log.Warnf("%s Fetch failed: %v", logcolors.LogBrowse, err)
		}
		s.notify()
	}()
}

// View returns the current list state
func (s *Session) View() View {
	s.mu.Lock()
	v := View{
		Dogs:    append([]catalog.Animal(nil), s.dogs...),
		HasMore: s.hasMore,
		Loading: s.loading,
		Err:     s.err,
	}
	s.mu.Unlock()

	v.Filters = s.coord.Snapshot()
	v.SearchValue = s.search.SearchValue()
	return v
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.View())
	}
}

// Wait blocks until every in-flight fetch has finished
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close stops the session: pending search commits are cancelled, in-flight
// fetches are cancelled and their results dropped.
func (s *Session) Close() {
	s.unsubscribe()
	s.search.Close()
	s.meta.Close()
	s.cancel()

	s.mu.Lock()
	s.listGen++
	s.mu.Unlock()

	s.wg.Wait()
}
