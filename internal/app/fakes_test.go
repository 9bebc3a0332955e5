package app_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"steam_reviews/internal/domain"
)

// ---- fake review client ----

// step is one scripted response. With gate set, the call blocks until the gate
// is closed; honorCtx decides whether cancellation unblocks it early.
type step struct {
	page     domain.Page
	err      error
	gate     chan struct{}
	honorCtx bool
}

type call struct {
	appID string
	opts  domain.FetchOptions
}

type fakeClient struct {
	mu      sync.Mutex
	steps   []step
	calls   []call
	started chan call
	onFetch func(call)
}

func newFakeClient(steps ...step) *fakeClient {
	return &fakeClient{steps: steps, started: make(chan call, 64)}
}

func (c *fakeClient) FetchReviews(ctx context.Context, appID string, opts domain.FetchOptions) (domain.Page, error) {
	c.mu.Lock()
	cl := call{appID: appID, opts: opts}
	c.calls = append(c.calls, cl)
	var s step
	if len(c.steps) > 0 {
		s, c.steps = c.steps[0], c.steps[1:]
	} else {
		s = step{err: errors.New("fake: no scripted response")}
	}
	hook := c.onFetch
	c.mu.Unlock()

	if hook != nil {
		hook(cl)
	}
	select {
	case c.started <- cl:
	default:
	}

	if s.gate != nil {
		if s.honorCtx {
			select {
			case <-s.gate:
			case <-ctx.Done():
				return domain.Page{}, ctx.Err()
			}
		} else {
			<-s.gate
		}
	}
	return s.page, s.err
}

func (c *fakeClient) Calls() []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]call(nil), c.calls...)
}

func rev(id string) domain.Review {
	return domain.Review{RecommendationID: id, Language: "english", Text: "review " + id, VotedUp: true}
}

func ids(rs []domain.Review) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.RecommendationID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---- fake repository ----

type fakeRepo struct {
	mu        sync.Mutex
	reviews   map[string][]domain.Review
	summaries map[string]domain.QuerySummary
	misses    []string
	upsertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reviews: map[string][]domain.Review{}, summaries: map[string]domain.QuerySummary{}}
}

func (f *fakeRepo) UpsertReviews(ctx context.Context, appID string, rs []domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.reviews[appID] = append(f.reviews[appID], rs...)
	return nil
}

func (f *fakeRepo) UpsertSummary(ctx context.Context, appID string, s domain.QuerySummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[appID] = s
	return nil
}

func (f *fakeRepo) LogMiss(ctx context.Context, appID string, status int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses = append(f.misses, appID+":"+reason)
	sort.Strings(f.misses)
	return nil
}

func (f *fakeRepo) ListReviews(ctx context.Context, appID string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs := f.reviews[appID]
	if pg.Limit > 0 && len(rs) > pg.Limit {
		rs = rs[:pg.Limit]
	}
	return domain.ReviewsPage{Items: rs}, nil
}

func (f *fakeRepo) GetSummary(ctx context.Context, appID string) (domain.QuerySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.summaries[appID]
	if !ok {
		return domain.QuerySummary{}, domain.ErrNotFound
	}
	return s, nil
}

// ---- fake cache ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Page:
		*d = v.(domain.Page)
	case *domain.ReviewsPage:
		*d = v.(domain.ReviewsPage)
	case *int64:
		*d = v.(int64)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}
