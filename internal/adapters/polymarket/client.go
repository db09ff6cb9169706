// Package polymarket adapts the Polymarket data-api HTTP surface to the
// pipeline's ports (spec §6/§7): rate-limited, retrying HTTP calls
// feeding the activity feed, positions/balance, and order-submission
// adapters.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultActivityBase  = "https://data-api.polymarket.com"
	defaultPositionsBase = "https://data-api.polymarket.com"

	// Activity feed: data-api general limit, throttled to 60% of the
	// documented ceiling.
	activityRatePerSec = 30
	// Positions/balance lookups share the same data-api ceiling.
	positionsRatePerSec = 30

	defaultRetryLimit = 3

	// Decorrelated-jitter backoff bounds (AWS's "full jitter" successor):
	// each wait is a random draw between the floor and 3x the previous
	// wait, capped at backoffCeiling. Spreads out a thundering herd of
	// workers retrying the same outage far better than a fixed
	// exponential schedule.
	backoffFloor   = 200 * time.Millisecond
	backoffCeiling = 8 * time.Second
)

// Client is the rate-limited, retrying HTTP client shared by every
// Polymarket adapter in this package.
type Client struct {
	http             *http.Client
	activityBase     string
	positionsBase    string
	activityLimiter  *rate.Limiter
	positionsLimiter *rate.Limiter
	retryLimit       int
}

// NewClient builds a Client against the given base URLs, falling back to
// production defaults when empty. retryLimit <= 0 uses defaultRetryLimit.
func NewClient(activityBase, positionsBase string, retryLimit int) *Client {
	if activityBase == "" {
		activityBase = defaultActivityBase
	}
	if positionsBase == "" {
		positionsBase = defaultPositionsBase
	}
	if retryLimit <= 0 {
		retryLimit = defaultRetryLimit
	}
	return &Client{
		http:             &http.Client{Timeout: 10 * time.Second},
		activityBase:     activityBase,
		positionsBase:    positionsBase,
		activityLimiter:  rate.NewLimiter(activityRatePerSec, 10),
		positionsLimiter: rate.NewLimiter(positionsRatePerSec, 10),
		retryLimit:       retryLimit,
	}
}

// get performs a rate-limited, retrying GET and decodes the JSON body.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.call(ctx, limiter, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}, out)
}

// post performs a rate-limited, retrying POST with a JSON body and
// decodes the JSON response.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, url string, body, out any) error {
	return c.call(ctx, limiter, func() (*http.Request, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

// verdict is what a completed attempt tells the retry loop to do next.
type verdict int

const (
	verdictDone verdict = iota
	verdictRetry
	verdictFail
)

// classify inspects a round trip's outcome and decides the loop's next
// move. Splitting this out of the loop means the retry policy (below)
// never has to look at a status code itself.
func classify(resp *http.Response, transportErr error) (verdict, error) {
	if transportErr != nil {
		return verdictRetry, transportErr
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return verdictRetry, fmt.Errorf("polymarket: throttled (429)")
	case resp.StatusCode >= 500:
		return verdictRetry, fmt.Errorf("polymarket: upstream status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(resp.Body)
		return verdictFail, fmt.Errorf("polymarket: rejected with status %d: %s", resp.StatusCode, string(body))
	default:
		return verdictDone, nil
	}
}

// call builds one request per attempt via newReq (a fresh body reader is
// needed on every retry), applies the rate limiter, and retries
// transport errors, 429s, and 5xxs with decorrelated-jitter backoff
// (at most c.retryLimit retries after the first attempt, so
// c.retryLimit+1 attempts in all). 4xx responses and a successful
// decode both stop the loop immediately.
func (c *Client) call(ctx context.Context, limiter *rate.Limiter, newReq func() (*http.Request, error), out any) error {
	wait := backoffFloor
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("polymarket: rate limiter: %w", err)
		}

		req, err := newReq()
		if err != nil {
			return fmt.Errorf("polymarket: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, doErr := c.http.Do(req)

		v, vErr := classify(resp, doErr)
		if v == verdictDone {
			defer resp.Body.Close()
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("polymarket: decode response: %w", err)
			}
			return nil
		}

		if resp != nil {
			resp.Body.Close()
		}
		lastErr = vErr

		if v == verdictFail {
			return lastErr
		}

		if attempt >= c.retryLimit {
			return fmt.Errorf("polymarket: gave up after %d attempts: %w", attempt+1, lastErr)
		}

		slog.Warn("polymarket: retrying", "attempt", attempt+1, "limit", c.retryLimit, "cause", lastErr)
		wait = nextBackoff(wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("polymarket: %w", ctx.Err())
		}
	}
}

// nextBackoff draws the next wait from a decorrelated-jitter
// distribution: uniform over [backoffFloor, prev*3], capped at
// backoffCeiling. Unlike plain exponential backoff, two callers that
// start retrying in lockstep drift apart instead of hammering the API
// on the same schedule.
func nextBackoff(prev time.Duration) time.Duration {
	ceiling := prev * 3
	if ceiling > backoffCeiling {
		ceiling = backoffCeiling
	}
	if ceiling <= backoffFloor {
		return backoffFloor
	}
	span := ceiling - backoffFloor
	return backoffFloor + time.Duration(rand.Int63n(int64(span)))
}
