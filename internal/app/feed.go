package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"steam_reviews/internal/adapters/observability"
	"steam_reviews/internal/domain"
)

// Feed owns the paginated review state of one consumer: the accumulated
// reviews, the last query summary, the continuation cursor and the
// loading/error flags. At most one request is in flight; starting another
// cancels it, and a cancelled or superseded request never touches state.
type Feed struct {
	client domain.ReviewClient
	now    func() time.Time

	mu      sync.Mutex
	appID   string
	opts    domain.FetchOptions
	key     string
	mounted bool
	closed  bool

	reviews []domain.Review
	summary *domain.QuerySummary
	cursor  string // last received cursor, "" until the first page
	loading bool
	errMsg  string
	hasMore bool
	updated time.Time

	gen    uint64
	cancel context.CancelFunc

	lmu       sync.Mutex
	listeners map[int]func(domain.FeedState)
	nextID    int
}

type FeedOption func(*Feed)

// WithClock overrides time.Now for LastUpdated.
func WithClock(now func() time.Time) FeedOption {
	return func(f *Feed) { f.now = now }
}

// NewFeed builds a feed for appID. It does not fetch; call Mount.
func NewFeed(c domain.ReviewClient, appID string, opts domain.FetchOptions, fo ...FeedOption) *Feed {
	f := &Feed{
		client:    c,
		now:       time.Now,
		listeners: map[int]func(domain.FeedState){},
	}
	for _, o := range fo {
		o(f)
	}
	f.appID = appID
	f.opts = opts.WithDefaults()
	f.key = feedKey(appID, f.opts)
	f.resetLocked()
	return f
}

func feedKey(appID string, o domain.FetchOptions) string { return appID + "#" + o.Key() }

// fetchReq is one in-flight request and the generation it belongs to.
type fetchReq struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
	appID  string
	opts   domain.FetchOptions
}

// AppID returns the current target identifier.
func (f *Feed) AppID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appID
}

// Options returns the current request options (defaults applied).
func (f *Feed) Options() domain.FetchOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts
}

// Mount performs the initial auto-fetch when FetchOnMount is set. Later
// calls are no-ops.
func (f *Feed) Mount(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.ErrFeedClosed
	}
	if f.mounted || !f.opts.ShouldFetchOnMount() {
		f.mounted = true
		f.mu.Unlock()
		return nil
	}
	f.mounted = true
	req := f.beginLocked(ctx, f.effectiveCursorLocked())
	f.mu.Unlock()
	return f.run(req)
}

// Configure switches the target or the request options. A change to the app
// id or to any request-shaping option cancels the in-flight request, resets
// the accumulated state and, with FetchOnMount, fetches the first page.
// Identical parameters are a no-op.
func (f *Feed) Configure(ctx context.Context, appID string, opts domain.FetchOptions) error {
	opts = opts.WithDefaults()
	key := feedKey(appID, opts)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.ErrFeedClosed
	}
	f.opts.FetchOnMount = opts.FetchOnMount
	if key == f.key {
		f.mu.Unlock()
		return nil
	}
	f.appID, f.opts, f.key = appID, opts, key
	f.resetLocked()
	observability.ObserveFeed("reset")
	if !opts.ShouldFetchOnMount() {
		f.mu.Unlock()
		f.notify()
		return nil
	}
	f.mounted = true
	req := f.beginLocked(ctx, f.effectiveCursorLocked())
	f.mu.Unlock()
	return f.run(req)
}

// LoadMore fetches the next page. It is a no-op while a request is in flight
// or once the stream is exhausted (or stopped by an error).
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.ErrFeedClosed
	}
	if f.loading || !f.hasMore {
		f.mu.Unlock()
		return nil
	}
	req := f.beginLocked(ctx, f.effectiveCursorLocked())
	f.mu.Unlock()
	return f.run(req)
}

// Refresh drops everything fetched so far and fetches the first page again
// from the start-of-stream cursor.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.ErrFeedClosed
	}
	f.resetLocked()
	// a refresh restarts the stream even if the caller gave a starting cursor
	f.cursor = domain.CursorStart
	f.mounted = true
	observability.ObserveFeed("reset")
	req := f.beginLocked(ctx, domain.CursorStart)
	f.mu.Unlock()
	return f.run(req)
}

// Close cancels any in-flight request and detaches listeners. The feed is
// unusable afterwards.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.invalidateLocked()
	f.mu.Unlock()

	f.lmu.Lock()
	f.listeners = map[int]func(domain.FeedState){}
	f.lmu.Unlock()
}

// State returns a snapshot; the review slice is a copy.
func (f *Feed) State() domain.FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// Subscribe registers fn to be called with a snapshot after every state
// change. fn runs on the goroutine that caused the change.
func (f *Feed) Subscribe(fn func(domain.FeedState)) (unsubscribe func()) {
	f.lmu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.lmu.Unlock()
	return func() {
		f.lmu.Lock()
		delete(f.listeners, id)
		f.lmu.Unlock()
	}
}

// ---- internals ----

func (f *Feed) stateLocked() domain.FeedState {
	st := domain.FeedState{
		Summary:     f.summary,
		Loading:     f.loading,
		Error:       f.errMsg,
		HasMore:     f.hasMore,
		LastUpdated: f.updated,
	}
	if len(f.reviews) > 0 {
		st.Reviews = make([]domain.Review, len(f.reviews))
		copy(st.Reviews, f.reviews)
	}
	return st
}

// effectiveCursorLocked: last received cursor, else the caller-supplied
// starting cursor, else the start-of-stream sentinel.
func (f *Feed) effectiveCursorLocked() string {
	if f.cursor != "" {
		return f.cursor
	}
	if f.opts.Cursor != "" {
		return f.opts.Cursor
	}
	return domain.CursorStart
}

func (f *Feed) resetLocked() {
	f.invalidateLocked()
	f.reviews = nil
	f.summary = nil
	f.cursor = ""
	f.errMsg = ""
	f.hasMore = true
}

// invalidateLocked cancels the in-flight request and bumps the generation so
// its outcome is discarded.
func (f *Feed) invalidateLocked() {
	f.gen++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
		observability.ObserveFeed("cancel")
	}
	f.loading = false
}

func (f *Feed) beginLocked(ctx context.Context, cursor string) fetchReq {
	f.invalidateLocked()
	rctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.loading = true
	f.errMsg = ""
	opts := f.opts
	opts.Cursor = cursor
	return fetchReq{ctx: rctx, cancel: cancel, gen: f.gen, appID: f.appID, opts: opts}
}

func (f *Feed) run(req fetchReq) error {
	defer req.cancel()
	f.notify()
	observability.ObserveFeed("fetch")

	page, err := f.client.FetchReviews(req.ctx, req.appID, req.opts)

	f.mu.Lock()
	if req.gen != f.gen {
		// superseded by a newer fetch, a reset or Close
		f.mu.Unlock()
		return nil
	}
	f.cancel = nil
	f.loading = false

	if err != nil {
		if errors.Is(err, context.Canceled) {
			f.mu.Unlock()
			observability.ObserveFeed("cancel")
			f.notify()
			return nil
		}
		f.errMsg = err.Error()
		f.hasMore = false
		f.mu.Unlock()
		observability.ObserveFeed("error")
		log.Warn().Err(err).Str("app_id", req.appID).Str("cursor", req.opts.Cursor).Msg("review page fetch failed")
		f.notify()
		return err
	}

	f.reviews = append(f.reviews, page.Reviews...)
	f.summary = page.QuerySummary
	f.cursor = page.Cursor
	f.hasMore = page.HasMore()
	f.updated = f.now()
	total := len(f.reviews)
	f.mu.Unlock()

	observability.ObserveFeed("page")
	if !page.HasMore() {
		observability.ObserveFeed("end")
	}
	log.Debug().
		Str("app_id", req.appID).
		Int("page", len(page.Reviews)).
		Int("total", total).
		Bool("has_more", page.HasMore()).
		Msg("review page applied")
	f.notify()
	return nil
}

func (f *Feed) notify() {
	f.mu.Lock()
	st := f.stateLocked()
	f.mu.Unlock()

	f.lmu.Lock()
	fns := make([]func(domain.FeedState), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.lmu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
