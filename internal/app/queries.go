package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"steam_reviews/internal/domain"
)

// ErrArchiveDisabled is returned by archive reads when no repository is wired.
var ErrArchiveDisabled = errors.New("archive is not configured")

// sharedFetchTimeout bounds an upstream fetch shared by collapsed callers.
const sharedFetchTimeout = 30 * time.Second

// QueryService serves stateless reads: single storefront pages (cached,
// identical concurrent requests collapsed) and archived reviews.
type QueryService struct {
	client   domain.ReviewClient
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
	group    singleflight.Group
}

func NewQueryService(c domain.ReviewClient, r domain.ReviewRepository, cache domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{client: c, repo: r, cache: cache, cacheTTL: ttl}
}

// PageCacheKey is the cache key of one storefront page. gen is the app's
// cache generation; bumping it orphans every cached entry of the app.
func PageCacheKey(appID string, gen int64, opts domain.FetchOptions) string {
	return fmt.Sprintf("page:%s:%d:%s", appID, gen, opts.WithDefaults().Key())
}

// ArchiveCacheKey is the cache key of one archive listing.
func ArchiveCacheKey(appID string, gen int64, pg domain.PageQuery) string {
	cursor := ""
	if pg.Cursor != nil {
		cursor = *pg.Cursor
	}
	return fmt.Sprintf("archive:%s:%d:%d:%s", appID, gen, pg.Limit, cursor)
}

// GenerationKey holds the cache generation of one app.
func GenerationKey(appID string) string { return "gen:" + appID }

// generation reads the app's cache generation; unknown means 0.
func generation(ctx context.Context, cache domain.Cache, appID string) int64 {
	var gen int64
	if ok, _ := cache.Get(ctx, GenerationKey(appID), &gen); !ok {
		return 0
	}
	return gen
}

// GetPage returns one page for appID. Defaults are applied to opts.
func (s *QueryService) GetPage(ctx context.Context, appID string, opts domain.FetchOptions) (domain.Page, error) {
	if err := opts.Validate(); err != nil {
		return domain.Page{}, err
	}
	opts = opts.WithDefaults()

	var gen int64
	if s.cache != nil {
		gen = generation(ctx, s.cache, appID)
	}
	key := PageCacheKey(appID, gen, opts)

	var out domain.Page
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	// The shared fetch outlives any single caller; each caller still stops
	// waiting when its own ctx ends.
	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		p, err := s.client.FetchReviews(fctx, appID, opts)
		if err != nil {
			return domain.Page{}, err
		}
		if s.cache != nil {
			if b, _ := json.Marshal(p); len(b) < 1_000_000 {
				_ = s.cache.Set(fctx, key, p, int(s.cacheTTL.Seconds()))
			}
		}
		return p, nil
	})
	select {
	case <-ctx.Done():
		return domain.Page{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Page{}, res.Err
		}
		return res.Val.(domain.Page), nil
	}
}

func (s *QueryService) ListArchived(ctx context.Context, appID string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	if s.repo == nil {
		return domain.ReviewsPage{}, ErrArchiveDisabled
	}
	var gen int64
	if s.cache != nil {
		gen = generation(ctx, s.cache, appID)
	}
	key := ArchiveCacheKey(appID, gen, pg)
	var out domain.ReviewsPage
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	rs, err := s.repo.ListReviews(ctx, appID, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	copyRS := deepCopyReviewsPage(rs)

	if s.cache != nil {
		if b, _ := json.Marshal(copyRS); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, copyRS, int(s.cacheTTL.Seconds()))
		}
	}
	return copyRS, nil
}

func (s *QueryService) ArchivedSummary(ctx context.Context, appID string) (domain.QuerySummary, error) {
	if s.repo == nil {
		return domain.QuerySummary{}, ErrArchiveDisabled
	}
	return s.repo.GetSummary(ctx, appID)
}

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}
