package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"steam_reviews/internal/app"
	"steam_reviews/internal/domain"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestSessions_OpenGetClose(t *testing.T) {
	fc := newFakeClient(step{page: domain.Page{Reviews: []domain.Review{rev("r1"), rev("r2")}, Cursor: "C1"}})
	reg := app.NewSessions(fc, time.Minute)

	sess, err := reg.Open(context.Background(), "440", domain.FetchOptions{}, 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("session id must be set")
	}
	snap := sess.Revealer.Snapshot()
	if got := ids(snap.Revealed); !equal(got, []string{"r1"}) || len(snap.State.Reviews) != 2 {
		t.Fatalf("snapshot after open: %+v", snap)
	}

	got, err := reg.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get: %v", err)
	}
	if err := reg.Close(sess.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := reg.Get(sess.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := sess.Feed().LoadMore(context.Background()); !errors.Is(err, domain.ErrFeedClosed) {
		t.Fatalf("closed session feed must be unusable, got %v", err)
	}
}

func TestSessions_OpenRejectsInvalidOptions(t *testing.T) {
	reg := app.NewSessions(newFakeClient(), time.Minute)
	if _, err := reg.Open(context.Background(), "440", domain.FetchOptions{ReviewType: "mixed"}, 1); !errors.Is(err, domain.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("nothing should be registered")
	}
}

func TestSessions_OpenKeepsFailedFirstFetchInState(t *testing.T) {
	reg := app.NewSessions(newFakeClient(step{err: domain.ErrNotFound}), time.Minute)
	sess, err := reg.Open(context.Background(), "1", domain.FetchOptions{}, 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st := sess.Feed().State(); st.Error == "" || st.HasMore {
		t.Fatalf("state = %+v", st)
	}
}

func TestSessions_SweepExpiresIdle(t *testing.T) {
	clock := &manualClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	off := false
	reg := app.NewSessions(newFakeClient(), 10*time.Minute, app.WithSessionClock(clock.Now))

	a, _ := reg.Open(context.Background(), "440", domain.FetchOptions{FetchOnMount: &off}, 1)
	b, _ := reg.Open(context.Background(), "570", domain.FetchOptions{FetchOnMount: &off}, 1)

	clock.Advance(6 * time.Minute)
	if _, err := reg.Get(b.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	clock.Advance(6 * time.Minute)

	if n := reg.Sweep(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, err := reg.Get(a.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("idle session should be gone")
	}
	if _, err := reg.Get(b.ID); err != nil {
		t.Fatalf("recently used session should survive: %v", err)
	}
}

func TestSessions_RunClosesAllOnShutdown(t *testing.T) {
	off := false
	reg := app.NewSessions(newFakeClient(), time.Hour)
	for i := 0; i < 3; i++ {
		if _, err := reg.Open(context.Background(), "440", domain.FetchOptions{FetchOnMount: &off}, 0); err != nil {
			t.Fatalf("Open: %v", err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
	if reg.Len() != 0 {
		t.Fatalf("sessions left: %d", reg.Len())
	}
}
