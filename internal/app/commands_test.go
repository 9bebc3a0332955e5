package app_test

import (
	"context"
	"errors"
	"testing"

	"steam_reviews/internal/app"
	"steam_reviews/internal/domain"
)

func TestArchiveApp_WalksUntilStreamEnds(t *testing.T) {
	fc := newFakeClient(
		step{page: domain.Page{Success: 1, QuerySummary: summary(3), Reviews: []domain.Review{rev("r1"), rev("r2")}, Cursor: "C1"}},
		step{page: domain.Page{Success: 1, QuerySummary: &domain.QuerySummary{NumReviews: 1}, Reviews: []domain.Review{rev("r3")}, Cursor: ""}},
	)
	repo := newFakeRepo()
	cache := &fakeCache{}
	svc := app.NewArchiveService(fc, repo, cache, 0)

	stats, err := svc.ArchiveApp(context.Background(), "440", domain.FetchOptions{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if stats.Pages != 2 || stats.Reviews != 3 || !stats.Complete {
		t.Fatalf("stats = %+v", stats)
	}
	if got := ids(repo.reviews["440"]); !equal(got, []string{"r1", "r2", "r3"}) {
		t.Fatalf("stored %v", got)
	}
	// totals come from the first page only
	if s := repo.summaries["440"]; s.TotalReviews != 3 {
		t.Fatalf("summary = %+v", s)
	}

	calls := fc.Calls()
	if calls[0].opts.Cursor != domain.CursorStart || calls[1].opts.Cursor != "C1" {
		t.Fatalf("cursors = %q, %q", calls[0].opts.Cursor, calls[1].opts.Cursor)
	}
	if _, ok := cache.store[app.GenerationKey("440")]; !ok {
		t.Fatalf("cache generation not bumped: %v", cache.store)
	}
}

func TestArchiveApp_StopsOnRepeatedCursor(t *testing.T) {
	fc := newFakeClient(
		step{page: domain.Page{Reviews: []domain.Review{rev("r1")}, Cursor: "C1"}},
		step{page: domain.Page{Reviews: []domain.Review{rev("r2")}, Cursor: "C1"}},
	)
	repo := newFakeRepo()
	stats, err := app.NewArchiveService(fc, repo, nil, 0).ArchiveApp(context.Background(), "440", domain.FetchOptions{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if stats.Pages != 2 || !stats.Complete || len(fc.Calls()) != 2 {
		t.Fatalf("stats = %+v calls=%d", stats, len(fc.Calls()))
	}
}

func TestArchiveApp_StopsOnEmptyPage(t *testing.T) {
	fc := newFakeClient(
		step{page: domain.Page{Reviews: []domain.Review{rev("r1")}, Cursor: "C1"}},
		step{page: domain.Page{Reviews: nil, Cursor: "C2"}},
	)
	stats, err := app.NewArchiveService(fc, newFakeRepo(), nil, 0).ArchiveApp(context.Background(), "440", domain.FetchOptions{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if stats.Reviews != 1 || !stats.Complete {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestArchiveApp_PageCap(t *testing.T) {
	fc := newFakeClient(
		step{page: domain.Page{Reviews: []domain.Review{rev("r1")}, Cursor: "C1"}},
		step{page: domain.Page{Reviews: []domain.Review{rev("r2")}, Cursor: "C2"}},
		step{page: domain.Page{Reviews: []domain.Review{rev("r3")}, Cursor: "C3"}},
	)
	stats, err := app.NewArchiveService(fc, newFakeRepo(), nil, 2).ArchiveApp(context.Background(), "440", domain.FetchOptions{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if stats.Pages != 2 || stats.Complete {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestArchiveApp_MissesAreLoggedNotFailed(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"not found", domain.ErrNotFound},
		{"forbidden", domain.ErrForbidden},
		{"unauthorized", domain.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			fc := newFakeClient(step{err: tc.err})
			stats, err := app.NewArchiveService(fc, repo, nil, 0).ArchiveApp(context.Background(), "999", domain.FetchOptions{})
			if err != nil {
				t.Fatalf("err: %v", err)
			}
			if stats.Pages != 0 || len(repo.misses) != 1 || repo.misses[0] != "999:reviews" {
				t.Fatalf("stats=%+v misses=%v", stats, repo.misses)
			}
		})
	}
}

func TestArchiveApp_PropagatesFailures(t *testing.T) {
	t.Run("upstream", func(t *testing.T) {
		fc := newFakeClient(step{err: domain.ErrRateLimited})
		_, err := app.NewArchiveService(fc, newFakeRepo(), nil, 0).ArchiveApp(context.Background(), "440", domain.FetchOptions{})
		if !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("expected wrapped ErrRateLimited, got %v", err)
		}
	})
	t.Run("storage", func(t *testing.T) {
		boom := errors.New("disk full")
		repo := newFakeRepo()
		repo.upsertErr = boom
		fc := newFakeClient(step{page: domain.Page{Reviews: []domain.Review{rev("r1")}, Cursor: "C1"}})
		_, err := app.NewArchiveService(fc, repo, nil, 0).ArchiveApp(context.Background(), "440", domain.FetchOptions{})
		if !errors.Is(err, boom) {
			t.Fatalf("expected storage error, got %v", err)
		}
	})
	t.Run("invalid options", func(t *testing.T) {
		fc := newFakeClient()
		_, err := app.NewArchiveService(fc, newFakeRepo(), nil, 0).ArchiveApp(context.Background(), "440", domain.FetchOptions{NumPerPage: 500})
		if !errors.Is(err, domain.ErrInvalidOptions) || len(fc.Calls()) != 0 {
			t.Fatalf("err=%v calls=%d", err, len(fc.Calls()))
		}
	})
}
