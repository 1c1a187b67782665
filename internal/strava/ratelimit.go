package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava read limits:
// - 100 requests per 15 minutes
// - 1000 requests per day

// RateLimiter tracks Strava's request budget. Requests are spaced by
// minInterval; once a window is spent, Wait fails fast with a
// rate_limited APIError instead of sleeping until the reset.
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	// 15-minute window
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	// Daily window
	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	r := &RateLimiter{
		now:         time.Now,
		shortLimit:  100,
		dailyLimit:  1000,
		minInterval: 150 * time.Millisecond,
	}
	r.resetWindows(r.now(), true)
	return r
}

// resetWindows clears windows whose reset time has passed
func (r *RateLimiter) resetWindows(now time.Time, force bool) {
	if force || now.After(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Truncate(15 * time.Minute).Add(15 * time.Minute)
	}
	if force || now.After(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
}

// Wait reserves one request. It only blocks for the spacing interval.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := r.now()
	r.resetWindows(now, false)

	if r.shortUsage >= r.shortLimit || r.dailyUsage >= r.dailyLimit {
		resetsAt := r.shortResetsAt
		if r.dailyUsage >= r.dailyLimit {
			resetsAt = r.dailyResetsAt
		}
		r.mu.Unlock()
		return &APIError{
			StatusCode: http.StatusTooManyRequests,
			Kind:       KindRateLimited,
			Message:    "request budget exhausted until " + resetsAt.Format(time.Kitchen),
		}
	}

	var delay time.Duration
	if next := r.lastRequest.Add(r.minInterval); next.After(now) {
		delay = next.Sub(now)
	}
	r.shortUsage++
	r.dailyUsage++
	r.lastRequest = now.Add(delay)
	r.mu.Unlock()

	if delay == 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage = short
		r.dailyUsage = daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit = short
		r.dailyLimit = daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}

// Usage returns current usage counts
func (r *RateLimiter) Usage() (shortUsage, dailyUsage int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortUsage, r.dailyUsage
}
