package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"steam_reviews/internal/adapters/observability"
	"steam_reviews/internal/domain"
)

// ArchiveService walks an app's whole review stream and persists it.
type ArchiveService struct {
	client   domain.ReviewClient
	repo     domain.ReviewRepository
	cache    domain.Cache
	maxPages int
}

type ArchiveStats struct {
	Pages    int
	Reviews  int
	Complete bool // reached the end of the stream (not the page cap)
}

func NewArchiveService(c domain.ReviewClient, r domain.ReviewRepository, cache domain.Cache, maxPages int) *ArchiveService {
	return &ArchiveService{client: c, repo: r, cache: cache, maxPages: maxPages}
}

// ArchiveApp pages through appID from the start (or opts.Cursor) until the
// stream ends, a page comes back empty, a cursor repeats, or maxPages is hit.
// 404/401/403 are recorded as misses and are not errors.
func (s *ArchiveService) ArchiveApp(ctx context.Context, appID string, opts domain.FetchOptions) (ArchiveStats, error) {
	var stats ArchiveStats
	if err := opts.Validate(); err != nil {
		return stats, err
	}
	opts = opts.WithDefaults()
	cursor := opts.Cursor
	seen := map[string]struct{}{cursor: {}}

	for page := 0; s.maxPages <= 0 || page < s.maxPages; page++ {
		req := opts
		req.Cursor = cursor
		p, err := s.client.FetchReviews(ctx, appID, req)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				_ = s.repo.LogMiss(ctx, appID, 404, "reviews")
				s.invalidate(ctx, appID)
				return stats, nil
			case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
				_ = s.repo.LogMiss(ctx, appID, 403, "reviews")
				s.invalidate(ctx, appID)
				return stats, nil
			default:
				return stats, fmt.Errorf("fetch page %d of %s: %w", page, appID, err)
			}
		}
		stats.Pages++

		// Only the start-of-stream page carries the full totals.
		if cursor == domain.CursorStart && p.QuerySummary != nil {
			if err := s.repo.UpsertSummary(ctx, appID, *p.QuerySummary); err != nil {
				return stats, fmt.Errorf("upsert summary for %s: %w", appID, err)
			}
		}
		if len(p.Reviews) > 0 {
			if err := s.repo.UpsertReviews(ctx, appID, p.Reviews); err != nil {
				return stats, fmt.Errorf("upsert reviews failed for %s: %w", appID, err)
			}
			stats.Reviews += len(p.Reviews)
			observability.ObserveArchived(len(p.Reviews))
		}

		log.Debug().Str("app_id", appID).Int("page", page).Int("reviews", len(p.Reviews)).Int("total", stats.Reviews).Msg("archived page")

		if _, dup := seen[p.Cursor]; !p.HasMore() || len(p.Reviews) == 0 || dup {
			stats.Complete = true
			break
		}
		seen[p.Cursor] = struct{}{}
		cursor = p.Cursor
	}

	s.invalidate(ctx, appID)
	return stats, nil
}

// invalidate bumps the app's cache generation, orphaning every cached page
// and archive listing of the app. Orphans expire with their TTL.
func (s *ArchiveService) invalidate(ctx context.Context, appID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, GenerationKey(appID), time.Now().UnixNano(), 0); err != nil {
		log.Warn().Err(err).Str("app_id", appID).Msg("cache invalidation failed")
	}
}
