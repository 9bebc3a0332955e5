package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"steam_reviews/internal/adapters/observability"
	"steam_reviews/internal/domain"
)

// Session is one server-side reviews section: a feed plus its reveal count.
type Session struct {
	ID       string
	Created  time.Time
	Revealer *Revealer

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) Feed() *Feed { return s.Revealer.Feed() }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Sessions is an in-memory registry of open sessions with idle expiry.
type Sessions struct {
	client domain.ReviewClient
	ttl    time.Duration
	now    func() time.Time

	mu sync.Mutex
	m  map[string]*Session
}

type SessionsOption func(*Sessions)

// WithSessionClock overrides time.Now for idle tracking and feed timestamps.
func WithSessionClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) { s.now = now }
}

func NewSessions(c domain.ReviewClient, ttl time.Duration, so ...SessionsOption) *Sessions {
	s := &Sessions{client: c, ttl: ttl, now: time.Now, m: map[string]*Session{}}
	for _, o := range so {
		o(s)
	}
	return s
}

// Open registers a new session and mounts its feed. A failed first fetch is
// reported through the feed state, not as an error; only invalid options
// are rejected.
func (s *Sessions) Open(ctx context.Context, appID string, opts domain.FetchOptions, reveal int) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	feed := NewFeed(s.client, appID, opts, WithClock(s.now))
	sess := &Session{
		ID:       uuid.NewString(),
		Created:  now,
		Revealer: NewRevealer(feed, reveal),
		lastSeen: now,
	}

	s.mu.Lock()
	s.m[sess.ID] = sess
	s.mu.Unlock()
	observability.ActiveSessions.Inc()

	if err := feed.Mount(ctx); err != nil {
		log.Debug().Err(err).Str("session", sess.ID).Str("app_id", appID).Msg("initial fetch failed")
	}
	return sess, nil
}

// Get returns a live session and marks it as used.
func (s *Sessions) Get(id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.m[id]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// Close tears a session down and cancels its in-flight request.
func (s *Sessions) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Feed().Close()
	observability.ActiveSessions.Dec()
	return nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Sweep closes sessions idle for longer than the ttl and returns how many.
func (s *Sessions) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	var stale []string
	s.mu.Lock()
	for id, sess := range s.m {
		if sess.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range stale {
		if s.Close(id) == nil {
			n++
		}
	}
	if n > 0 {
		log.Info().Int("closed", n).Msg("expired idle sessions")
	}
	return n
}

// Run sweeps every interval until ctx is done, then closes everything.
func (s *Sessions) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

func (s *Sessions) CloseAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.m))
	for id := range s.m {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		_ = s.Close(id)
	}
}
