package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/course-client/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before a search term is applied.
const DefaultDebounce = 300 * time.Millisecond

// ErrPagerClosed is returned by Start after Close.
var ErrPagerClosed = errors.New("pager closed")

// FetchFunc issues one list request with the given query and returns the
// raw response body. It must return promptly once ctx is canceled.
type FetchFunc func(ctx context.Context, query url.Values) ([]byte, error)

// Snapshot is a consistent view of a Pager's state.
type Snapshot[T any] struct {
	Items   []T
	Meta    Meta
	Stats   json.RawMessage
	Loading bool
	Err     error

	// Search is the raw search input, DebouncedSearch the applied term.
	Search          string
	DebouncedSearch string
	Page            int
	PageSize        int
	Params          Params

	// Version increases with every state change.
	Version uint64
}

// PagerOption configures a Pager.
type PagerOption func(*pagerOptions)

type pagerOptions struct {
	debounce time.Duration
	page     int
	pageSize int
	params   Params
	onChange func()
	logger   *zerolog.Logger
}

// WithDebounce sets the search debounce delay.
func WithDebounce(d time.Duration) PagerOption {
	return func(o *pagerOptions) { o.debounce = d }
}

// WithInitialPage sets the first page to load.
func WithInitialPage(page int) PagerOption {
	return func(o *pagerOptions) { o.page = page }
}

// WithPageSize sets the initial page size.
func WithPageSize(size int) PagerOption {
	return func(o *pagerOptions) { o.pageSize = size }
}

// WithParams sets the initial extra filters.
func WithParams(params Params) PagerOption {
	return func(o *pagerOptions) { o.params = params.Clone() }
}

// WithOnChange registers fn to be called after every state change.
// fn may run on any goroutine and must not block; it should read the new
// state with Snapshot.
func WithOnChange(fn func()) PagerOption {
	return func(o *pagerOptions) { o.onChange = fn }
}

// WithPagerLogger sets the pager's logger.
func WithPagerLogger(logger zerolog.Logger) PagerOption {
	return func(o *pagerOptions) { o.logger = &logger }
}

// Pager drives a paginated, searchable, filterable list endpoint.
//
// Every change to page, page size, applied search or filters issues a new
// request and cancels the previous one. Only the most recently issued
// request may update the result. Search input is debounced, except that
// clearing it applies immediately. Changing what is searched or filtered
// resets the page to 1.
//
// The Pager never retries; a failed request is reported in Snapshot.Err
// until the next successful one.
type Pager[T any] struct {
	fetch    FetchFunc
	debounce time.Duration
	onChange func()
	logger   zerolog.Logger

	mu   sync.Mutex
	idle *sync.Cond

	// query state
	page            int
	pageSize        int
	search          string
	debouncedSearch string
	params          Params

	// result state
	items   []T
	meta    Meta
	stats   json.RawMessage
	loading bool
	err     error
	version uint64

	ctx       context.Context
	cancel    context.CancelFunc // in-flight request
	seq       uint64             // id of the latest issued request
	lastKey   string             // query of the latest issued request
	timer     *time.Timer
	searchGen uint64
	pending   int // timers and requests not yet settled
	started   bool
	closed    bool
}

// NewPager creates a Pager for fetch. It does nothing until Start.
func NewPager[T any](fetch FetchFunc, opts ...PagerOption) *Pager[T] {
	if fetch == nil {
		panic("pagination: nil fetch func")
	}

	o := pagerOptions{
		debounce: DefaultDebounce,
		page:     1,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.debounce < 0 {
		o.debounce = 0
	}

	logger := logging.NewLogger(logging.ComponentPager)
	if o.logger != nil {
		logger = *o.logger
	}

	p := &Pager[T]{
		fetch:    fetch,
		debounce: o.debounce,
		onChange: o.onChange,
		logger:   logger,
		page:     ClampPage(o.page),
		pageSize: ClampPageSize(o.pageSize),
		params:   o.params,
		items:    []T{},
	}
	p.meta = EmptyMeta(p.page, p.pageSize)
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Start issues the first request. Requests are canceled when ctx ends.
func (p *Pager[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPagerClosed
	}
	if p.started {
		p.mu.Unlock()
		return errors.New("pager already started")
	}
	p.ctx = ctx
	p.started = true
	p.issueLocked()
	p.mu.Unlock()

	p.notify()
	return nil
}

// Close aborts the in-flight request and any pending search commit.
// Later mutations have no effect.
func (p *Pager[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.stopTimerLocked()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.loading = false
	p.version++
	p.mu.Unlock()

	p.notify()
}

// Wait blocks until no search commit is scheduled and no request is in
// flight.
func (p *Pager[T]) Wait() {
	p.mu.Lock()
	for p.pending > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

// Snapshot returns the current state.
func (p *Pager[T]) Snapshot() Snapshot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := make([]T, len(p.items))
	copy(items, p.items)

	return Snapshot[T]{
		Items:           items,
		Meta:            p.meta,
		Stats:           append(json.RawMessage(nil), p.stats...),
		Loading:         p.loading,
		Err:             p.err,
		Search:          p.search,
		DebouncedSearch: p.debouncedSearch,
		Page:            p.page,
		PageSize:        p.pageSize,
		Params:          p.params.Clone(),
		Version:         p.version,
	}
}

// SetPage moves to page, clamped to >= 1.
func (p *Pager[T]) SetPage(page int) {
	p.mutate(func() bool {
		page = ClampPage(page)
		if page == p.page {
			return false
		}
		p.page = page
		return true
	})
}

// SetPageSize changes the page size, clamped to [1, 200], and returns to
// the first page.
func (p *Pager[T]) SetPageSize(size int) {
	p.mutate(func() bool {
		size = ClampPageSize(size)
		if size == p.pageSize {
			return false
		}
		p.pageSize = size
		p.page = 1
		return true
	})
}

// SetParams replaces the extra filters. When the effective filters change
// the pager returns to the first page.
func (p *Pager[T]) SetParams(params Params) {
	p.mutate(func() bool {
		changed := params.key() != p.params.key()
		p.params = params.Clone()
		if changed {
			p.page = 1
		}
		return true
	})
}

// SetSearch records the raw search input. The term is applied after the
// debounce delay, or at once when the input is blank.
func (p *Pager[T]) SetSearch(search string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	p.search = search
	p.version++
	p.stopTimerLocked()
	p.searchGen++

	term := strings.TrimSpace(search)
	if term == "" || p.debounce == 0 {
		p.commitSearchLocked(term)
		p.mu.Unlock()
		p.notify()
		return
	}

	gen := p.searchGen
	p.pending++
	p.timer = time.AfterFunc(p.debounce, func() {
		p.mu.Lock()
		if gen == p.searchGen && !p.closed {
			p.timer = nil
			p.commitSearchLocked(term)
		}
		p.doneLocked()
		p.mu.Unlock()
		p.notify()
	})
	p.mu.Unlock()
	p.notify()
}

// Refresh re-issues the current request.
func (p *Pager[T]) Refresh() {
	p.mu.Lock()
	if p.closed || !p.started {
		p.mu.Unlock()
		return
	}
	p.issueLocked()
	p.mu.Unlock()
	p.notify()
}

// mutate applies fn under the lock and fetches if the query changed.
func (p *Pager[T]) mutate(fn func() bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if !fn() {
		p.mu.Unlock()
		return
	}
	p.version++
	p.fetchIfChangedLocked()
	p.mu.Unlock()
	p.notify()
}

func (p *Pager[T]) commitSearchLocked(term string) {
	if term == p.debouncedSearch {
		return
	}
	p.debouncedSearch = term
	p.page = 1
	p.version++
	p.fetchIfChangedLocked()
}

func (p *Pager[T]) queryLocked() url.Values {
	return BuildQuery(p.page, p.pageSize, p.debouncedSearch, p.params)
}

func (p *Pager[T]) fetchIfChangedLocked() {
	if !p.started {
		return
	}
	if p.queryLocked().Encode() == p.lastKey {
		return
	}
	p.issueLocked()
}

// issueLocked cancels the in-flight request and starts a new one.
func (p *Pager[T]) issueLocked() {
	if p.cancel != nil {
		p.cancel()
	}

	ctx, cancel := context.WithCancel(p.ctx)
	p.cancel = cancel
	p.seq++
	seq := p.seq

	query := p.queryLocked()
	p.lastKey = query.Encode()
	page, pageSize := p.page, p.pageSize

	p.loading = true
	p.version++
	p.pending++

	p.logger.Debug().
		Uint64("seq", seq).
		Str("query", p.lastKey).
		Msg("Fetching page")

	go p.run(ctx, cancel, seq, query, page, pageSize)
}

func (p *Pager[T]) run(ctx context.Context, cancel context.CancelFunc, seq uint64, query url.Values, page, pageSize int) {
	body, err := p.fetch(ctx, query)

	var result PagedResult[T]
	if err == nil {
		result, err = Decode[T](body, page, pageSize)
	}
	aborted := ctx.Err() != nil || errors.Is(err, context.Canceled)
	cancel()

	p.mu.Lock()
	defer func() {
		p.doneLocked()
		p.mu.Unlock()
		p.notify()
	}()

	if seq != p.seq || p.closed {
		p.logger.Debug().Uint64("seq", seq).Msg("Discarding superseded response")
		return
	}

	p.cancel = nil
	p.loading = false
	p.version++

	if aborted {
		return
	}

	if err != nil {
		p.logger.Warn().Err(err).Str("query", query.Encode()).Msg("Page fetch failed")
		p.err = err
		p.items = []T{}
		p.meta = EmptyMeta(page, pageSize)
		p.stats = nil
		return
	}

	p.err = nil
	p.items = result.Items
	p.meta = result.Meta
	p.stats = result.Stats

	// The backend may clamp the page; follow it without refetching.
	if echoed := ClampPage(result.Page); echoed != p.page && p.page == page {
		p.page = echoed
		p.lastKey = p.queryLocked().Encode()
	}
}

func (p *Pager[T]) stopTimerLocked() {
	if p.timer != nil && p.timer.Stop() {
		p.doneLocked()
	}
	p.timer = nil
}

func (p *Pager[T]) doneLocked() {
	p.pending--
	if p.pending == 0 {
		p.idle.Broadcast()
	}
}

func (p *Pager[T]) notify() {
	if p.onChange != nil {
		p.onChange()
	}
}
