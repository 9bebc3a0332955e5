package domain

import "context"

type ReviewClient interface {
	// FetchReviews performs one appreviews request. Cancellation of ctx is
	// returned as ctx.Err(), unwrapped.
	FetchReviews(ctx context.Context, appID string, opts FetchOptions) (Page, error)
}

type ReviewRepository interface {
	// Write paths
	UpsertReviews(ctx context.Context, appID string, rs []Review) error
	UpsertSummary(ctx context.Context, appID string, s QuerySummary) error
	LogMiss(ctx context.Context, appID string, status int, reason string) error

	// Read paths
	ListReviews(ctx context.Context, appID string, pg PageQuery) (ReviewsPage, error)
	GetSummary(ctx context.Context, appID string) (QuerySummary, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries
type PageQuery struct {
	Limit  int
	Cursor *string
}

type ReviewsPage struct {
	Items      []Review `json:"items"`
	NextCursor *string  `json:"next_cursor,omitempty"`
}
