// internal/adapters/steam/client.go
package steam

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"steam_reviews/internal/adapters/observability"
	"steam_reviews/internal/domain"
)

const (
	// PublicBase is the storefront host used outside development.
	PublicBase = "https://store.steampowered.com"
	// DevProxyBase is the local development proxy path in front of PublicBase.
	DevProxyBase = "http://localhost:5173/api/steam"
)

type Client struct {
	base    string
	hc      *http.Client
	rl      *rate.Limiter
	retries int
}

type Option func(*Client)

// WithRetries enables up to n retries on 429 and transient 5xx responses.
// The default is 0: a failed request is reported as-is.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithHTTPClient replaces the default http.Client (20s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

func New(base string, rps int, opts ...Option) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if rps <= 0 {
		rps = 5
	}
	c := &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Base returns the endpoint root requests are built against.
func (c *Client) Base() string { return c.base }

// FetchReviews requests one page of reviews for appID.
func (c *Client) FetchReviews(ctx context.Context, appID string, opts domain.FetchOptions) (domain.Page, error) {
	u, err := BuildURL(c.base, appID, opts)
	if err != nil {
		return domain.Page{}, err
	}
	var out domain.Page
	if err := c.get(ctx, u, &out); err != nil {
		return domain.Page{}, err
	}
	log.Debug().
		Str("app_id", appID).
		Str("cursor", opts.Cursor).
		Int("reviews", len(out.Reviews)).
		Str("next_cursor", out.Cursor).
		Msg("appreviews page fetched")
	return out, nil
}

// BuildURL returns <base>/appreviews/<appID>?json=1&... with only the options
// that are set.
func BuildURL(base, appID string, o domain.FetchOptions) (string, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return "", fmt.Errorf("%w: app id is required", domain.ErrInvalidOptions)
	}
	q := url.Values{}
	q.Set("json", "1")
	if o.Language != "" {
		q.Set("language", o.Language)
	}
	if o.Filter != "" {
		q.Set("filter", o.Filter)
	}
	if o.PurchaseType != "" {
		q.Set("purchase_type", o.PurchaseType)
	}
	if o.DayRange != nil {
		q.Set("day_range", strconv.Itoa(*o.DayRange))
	}
	if o.ReviewType != "" {
		q.Set("review_type", o.ReviewType)
	}
	if o.NumPerPage > 0 {
		q.Set("num_per_page", strconv.Itoa(o.NumPerPage))
	}
	if o.IncludeReview != nil {
		q.Set("include_review", strconv.FormatBool(*o.IncludeReview))
	}
	if o.Cursor != "" {
		q.Set("cursor", o.Cursor)
	}
	return fmt.Sprintf("%s/appreviews/%s?%s", strings.TrimRight(base, "/"), url.PathEscape(appID), q.Encode()), nil
}

// ---- Internals ----

// get performs a GET with client-side rate limiting and JSON decode into out.
// With retries enabled it retries 429 and transient 5xx, honoring Retry-After.
// Cancellation is always returned as ctx.Err().
func (c *Client) get(ctx context.Context, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	var lastErr error
	for i := 0; i <= c.retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "steam-reviews/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("steam", "appreviews", 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < c.retries && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("steam", "appreviews", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("decode appreviews response: %w", err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return domain.ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return domain.ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				lastErr = domain.ErrRateLimited
			} else {
				lastErr = fmt.Errorf("steam: remote %d", resp.StatusCode)
			}
			if i < c.retries {
				log.Warn().Int("status", resp.StatusCode).Dur("wait", wait).Int("attempt", i+1).Msg("appreviews retry")
				if sleepCtx(ctx, wait) {
					continue
				}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("steam: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	if lastErr == nil {
		lastErr = errors.New("steam: request failed")
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms, 400ms, 800ms... for attempt i, plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
