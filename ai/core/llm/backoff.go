package llm

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// BackoffPolicy returns the delay to wait after the given failed attempt
// (1-based) before the next one.
type BackoffPolicy func(attempt int) time.Duration

// LinearBackoff waits base*attempt: 5s, 10s, 15s, 20s for a 5s base.
func LinearBackoff(base time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			return 0
		}
		return base * time.Duration(attempt)
	}
}

// Sleeper blocks for a duration. Implementations must return early with
// ctx.Err() when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper sleeps on a real timer.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// Rate-limit headers sent by OpenRouter-compatible providers.
const (
	headerRateLimitReset = "X-RateLimit-Reset"
	headerRetryAfter     = "Retry-After"
)

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1_000_000_000_000

// rateLimitWait derives the wait from a 429 reply: max(0, reset-now) capped
// at limit. The second result is false when the reply carries no usable signal.
func rateLimitWait(h http.Header, now time.Time, limit time.Duration) (time.Duration, bool) {
	var wait time.Duration
	found := false

	if raw := strings.TrimSpace(h.Get(headerRateLimitReset)); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			var reset time.Time
			if v >= epochMillisThreshold {
				reset = time.UnixMilli(int64(v))
			} else {
				whole := math.Floor(v)
				reset = time.Unix(int64(whole), int64((v-whole)*float64(time.Second)))
			}
			wait, found = reset.Sub(now), true
		}
	}
	if !found {
		if raw := strings.TrimSpace(h.Get(headerRetryAfter)); raw != "" {
			if secs, err := strconv.ParseFloat(raw, 64); err == nil {
				wait, found = time.Duration(secs*float64(time.Second)), true
			} else if at, err := http.ParseTime(raw); err == nil {
				wait, found = at.Sub(now), true
			}
		}
	}
	if !found {
		return 0, false
	}

	if wait < 0 {
		wait = 0
	}
	if limit > 0 && wait > limit {
		wait = limit
	}
	return wait, true
}
