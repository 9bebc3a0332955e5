package app_test

import (
	"context"
	"testing"

	"steam_reviews/internal/app"
	"steam_reviews/internal/domain"
)

func TestRevealer_IndexesIntoFetchedList(t *testing.T) {
	fc := newFakeClient(
		step{page: domain.Page{Reviews: []domain.Review{rev("r1"), rev("r2")}, Cursor: "C1"}},
		step{page: domain.Page{Reviews: []domain.Review{rev("r3")}, Cursor: ""}},
	)
	feed := app.NewFeed(fc, "440", domain.FetchOptions{NumPerPage: 2})
	ctx := context.Background()
	_ = feed.Mount(ctx)

	r := app.NewRevealer(feed, 1)
	snap := r.Snapshot()
	if got := ids(snap.Revealed); !equal(got, []string{"r1"}) || snap.AnimateLast || !snap.CanShowMore {
		t.Fatalf("initial snapshot: %+v", snap)
	}

	// second item is already fetched: no request
	if err := r.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	snap = r.Snapshot()
	if got := ids(snap.Revealed); !equal(got, []string{"r1", "r2"}) || !snap.AnimateLast {
		t.Fatalf("after first Next: %+v", snap)
	}
	if n := len(fc.Calls()); n != 1 {
		t.Fatalf("Next with fetched items left must not fetch, calls=%d", n)
	}

	// list exhausted locally: pulls the next page
	if err := r.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	snap = r.Snapshot()
	if got := ids(snap.Revealed); !equal(got, []string{"r1", "r2", "r3"}) || !snap.AnimateLast {
		t.Fatalf("after second Next: %+v", snap)
	}
	if snap.CanShowMore {
		t.Fatalf("stream exhausted and everything revealed, CanShowMore must be false")
	}

	// capped: nothing new, animation flag clears
	if err := r.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	snap = r.Snapshot()
	if len(snap.Revealed) != 3 || snap.AnimateLast {
		t.Fatalf("capped Next: %+v", snap)
	}
	if n := len(fc.Calls()); n != 2 {
		t.Fatalf("calls = %d", n)
	}
}

func TestRevealer_RefreshResetsCount(t *testing.T) {
	fc := newFakeClient(
		step{page: domain.Page{Reviews: []domain.Review{rev("r1"), rev("r2"), rev("r3")}, Cursor: "C1"}},
		step{page: domain.Page{Reviews: []domain.Review{rev("n1")}, Cursor: "N1"}},
	)
	feed := app.NewFeed(fc, "440", domain.FetchOptions{})
	ctx := context.Background()
	_ = feed.Mount(ctx)

	r := app.NewRevealer(feed, 1)
	_ = r.Next(ctx)
	_ = r.Next(ctx)
	if len(r.Snapshot().Revealed) != 3 {
		t.Fatalf("expected 3 revealed")
	}

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := r.Snapshot()
	if got := ids(snap.Revealed); !equal(got, []string{"n1"}) || snap.AnimateLast {
		t.Fatalf("after refresh: %+v", snap)
	}
}

func TestRevealer_SurfacesLoadError(t *testing.T) {
	fc := newFakeClient(
		step{page: domain.Page{Reviews: []domain.Review{rev("r1")}, Cursor: "C1"}},
		step{err: domain.ErrNotFound},
	)
	feed := app.NewFeed(fc, "440", domain.FetchOptions{})
	ctx := context.Background()
	_ = feed.Mount(ctx)

	r := app.NewRevealer(feed, 1)
	if err := r.Next(ctx); err == nil {
		t.Fatalf("expected load error")
	}
	snap := r.Snapshot()
	if len(snap.Revealed) != 1 || snap.CanShowMore || snap.State.Error == "" {
		t.Fatalf("after error: %+v", snap)
	}
}

func TestRevealer_ConfigureResetsOnlyOnChange(t *testing.T) {
	fc := newFakeClient(
		step{page: domain.Page{Reviews: []domain.Review{rev("r1"), rev("r2")}, Cursor: "C1"}},
		step{page: domain.Page{Reviews: []domain.Review{rev("p1"), rev("p2")}, Cursor: "P1"}},
	)
	feed := app.NewFeed(fc, "440", domain.FetchOptions{})
	ctx := context.Background()
	_ = feed.Mount(ctx)

	r := app.NewRevealer(feed, 1)
	_ = r.Next(ctx)

	// same parameters: nothing resets
	if err := r.Configure(ctx, "440", domain.FetchOptions{}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if n := len(r.Snapshot().Revealed); n != 2 {
		t.Fatalf("revealed = %d", n)
	}

	if err := r.Configure(ctx, "440", domain.FetchOptions{ReviewType: "positive"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	snap := r.Snapshot()
	if got := ids(snap.Revealed); !equal(got, []string{"p1"}) {
		t.Fatalf("after reconfigure: %v", got)
	}
	if calls := fc.Calls(); len(calls) != 2 || calls[1].opts.ReviewType != "positive" {
		t.Fatalf("calls = %+v", calls)
	}
}
