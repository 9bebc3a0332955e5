package render

import (
	"time"

	"steam_reviews/internal/app"
	"steam_reviews/internal/domain"
)

// View is the dashboard model: a title, the reviews section and the
// "show more" action.
type View struct {
	Title       string                `json:"title"`
	AppID       string                `json:"app_id"`
	Reviews     []Slot[domain.Review] `json:"reviews"`
	Summary     *domain.QuerySummary  `json:"query_summary,omitempty"`
	Fetched     int                   `json:"fetched"`
	Loading     bool                  `json:"loading"`
	Error       string                `json:"error,omitempty"`
	HasMore     bool                  `json:"has_more"`
	CanShowMore bool                  `json:"can_show_more"`
	LastUpdated time.Time             `json:"last_updated"`

	// MoreURL is the form target of the html "show more" button.
	MoreURL string `json:"-"`
}

// Dashboard builds the view of one revealer.
func Dashboard(title string, r *app.Revealer) *View {
	snap := r.Snapshot()
	return &View{
		Title:       title,
		AppID:       r.Feed().AppID(),
		Reviews:     Layout(snap.Revealed, snap.AnimateLast),
		Summary:     snap.State.Summary,
		Fetched:     len(snap.State.Reviews),
		Loading:     snap.State.Loading,
		Error:       snap.State.Error,
		HasMore:     snap.State.HasMore,
		CanShowMore: snap.CanShowMore,
		LastUpdated: snap.State.LastUpdated,
	}
}

// PageView wraps a single raw page, every review shown, nothing entering.
func PageView(title, appID string, p domain.Page) *View {
	return &View{
		Title:   title,
		AppID:   appID,
		Reviews: Layout(p.Reviews, false),
		Summary: p.QuerySummary,
		Fetched: len(p.Reviews),
		HasMore: p.HasMore(),
	}
}

// hours converts storefront playtime minutes.
func hours(minutes int64) float64 { return float64(minutes) / 60 }
