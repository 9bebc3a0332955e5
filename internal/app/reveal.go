package app

import (
	"context"
	"sync"

	"steam_reviews/internal/domain"
)

// Revealer tracks how many of a feed's reviews are shown. The revealed count
// indexes into the fetched list; when it catches up, Next pulls another page.
type Revealer struct {
	feed    *Feed
	initial int

	mu       sync.Mutex
	revealed int
	animate  bool
}

// RevealSnapshot is what a view needs to render the reviews section.
type RevealSnapshot struct {
	Revealed    []domain.Review
	AnimateLast bool
	CanShowMore bool
	State       domain.FeedState
}

func NewRevealer(feed *Feed, initial int) *Revealer {
	if initial < 0 {
		initial = 0
	}
	return &Revealer{feed: feed, initial: initial, revealed: initial}
}

func (r *Revealer) Feed() *Feed { return r.feed }

// Next reveals one more review, loading the next page first when every
// fetched review is already visible. The new review is flagged for the
// entrance marker; if nothing new could be revealed the flag clears.
func (r *Revealer) Next(ctx context.Context) error {
	st := r.feed.State()

	r.mu.Lock()
	if r.revealed > len(st.Reviews) {
		r.revealed = len(st.Reviews)
	}
	exhausted := r.revealed >= len(st.Reviews)
	r.mu.Unlock()

	if exhausted && st.HasMore && !st.Loading {
		if err := r.feed.LoadMore(ctx); err != nil {
			r.mu.Lock()
			r.animate = false
			r.mu.Unlock()
			return err
		}
		st = r.feed.State()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revealed < len(st.Reviews) {
		r.revealed++
		r.animate = true
	} else {
		r.animate = false
	}
	return nil
}

// Refresh refetches from the start of the stream and resets the count.
func (r *Revealer) Refresh(ctx context.Context) error {
	r.Reset()
	return r.feed.Refresh(ctx)
}

// Configure retargets the feed. The count resets only when the app or the
// shaping options actually change.
func (r *Revealer) Configure(ctx context.Context, appID string, opts domain.FetchOptions) error {
	if feedKey(r.feed.AppID(), r.feed.Options()) != feedKey(appID, opts.WithDefaults()) {
		r.Reset()
	}
	return r.feed.Configure(ctx, appID, opts)
}

// Reset puts the revealed count back to its initial value.
func (r *Revealer) Reset() {
	r.mu.Lock()
	r.revealed = r.initial
	r.animate = false
	r.mu.Unlock()
}

func (r *Revealer) Snapshot() RevealSnapshot {
	st := r.feed.State()

	r.mu.Lock()
	n := r.revealed
	animate := r.animate
	r.mu.Unlock()

	if n > len(st.Reviews) {
		n = len(st.Reviews)
	}
	return RevealSnapshot{
		Revealed:    st.Reviews[:n],
		AnimateLast: animate && n > 0,
		CanShowMore: n < len(st.Reviews) || (st.HasMore && !st.Loading),
		State:       st,
	}
}
